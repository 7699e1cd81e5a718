// Package memory provides an in-process workout cache for tests and local runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"example.com/fitsync/internal/domain"
	"example.com/fitsync/internal/persistence"
)

// Cache stores workout records in a map keyed by start milliseconds.
type Cache struct {
	mu      sync.RWMutex
	records map[int64]domain.WorkoutRecord
}

// NewCache constructs an empty Cache.
func NewCache() *Cache {
	return &Cache{records: make(map[int64]domain.WorkoutRecord)}
}

// Get implements domain.WorkoutCache.
func (c *Cache) Get(_ context.Context, start time.Time) (*domain.WorkoutRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.records[start.UnixMilli()]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Put implements domain.WorkoutCache.
func (c *Cache) Put(_ context.Context, record domain.WorkoutRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records[record.ID] = record
	return nil
}

// QueryRange implements domain.WorkoutCache.
func (c *Cache) QueryRange(_ context.Context, after, before time.Time) ([]domain.WorkoutRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	lower := after.UnixMilli()
	out := make([]domain.WorkoutRecord, 0)
	for ms, rec := range c.records {
		if ms <= lower {
			continue
		}
		if !before.IsZero() && ms >= before.UnixMilli() {
			continue
		}
		out = append(out, rec)
	}
	sortDescending(out)
	return out, nil
}

// Latest implements domain.WorkoutCache.
func (c *Cache) Latest(_ context.Context) (*domain.WorkoutRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var latest *domain.WorkoutRecord
	for _, rec := range c.records {
		if latest == nil || rec.ID > latest.ID {
			r := rec
			latest = &r
		}
	}
	return latest, nil
}

// ListRecent implements domain.WorkoutCache.
func (c *Cache) ListRecent(_ context.Context, filter domain.WorkoutFilter, cursor *domain.Cursor, limit int) ([]domain.WorkoutRecord, *domain.Cursor, error) {
	limit = persistence.PageSize(limit)

	c.mu.RLock()
	matched := make([]domain.WorkoutRecord, 0)
	for _, rec := range c.records {
		if filter.Type != nil && rec.Type != *filter.Type {
			continue
		}
		if filter.Type == nil && rec.Type == domain.ActivityStill {
			continue
		}
		if cursor != nil && rec.ID >= cursor.Start.UnixMilli() {
			continue
		}
		matched = append(matched, rec)
	}
	c.mu.RUnlock()

	sortDescending(matched)
	if len(matched) > limit {
		matched = matched[:limit]
	}

	var next *domain.Cursor
	if len(matched) == limit {
		next = &domain.Cursor{Start: matched[len(matched)-1].Start}
	}
	return matched, next, nil
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

func sortDescending(records []domain.WorkoutRecord) {
	sort.Slice(records, func(i, j int) bool { return records[i].ID > records[j].ID })
}
