package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/fitsync/internal/domain"
	"example.com/fitsync/internal/events"
	"example.com/fitsync/internal/observability"
	"example.com/fitsync/internal/persistence"
)

const workoutColumns = `start_ms, duration_ms, step_count, activity_type`

// Cache provides Postgres-backed persistence for workout records and their outbox events.
type Cache struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewCache constructs a Cache.
func NewCache(pool *pgxpool.Pool) *Cache {
	return &Cache{pool: pool, now: time.Now}
}

// Get returns the record starting at start, or nil when none is cached.
func (c *Cache) Get(ctx context.Context, start time.Time) (*domain.WorkoutRecord, error) {
	row := c.pool.QueryRow(ctx, `SELECT `+workoutColumns+` FROM workouts WHERE start_ms=$1`, start.UnixMilli())
	rec, err := scanWorkout(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, cacheErr("get", err)
	}
	return &rec, nil
}

// Put upserts the record and records a workout.cached outbox event inside a single transaction.
func (c *Cache) Put(ctx context.Context, record domain.WorkoutRecord) (err error) {
	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return cacheErr("put", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const upsert = `INSERT INTO workouts (` + workoutColumns + `)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (start_ms) DO UPDATE
        SET duration_ms=EXCLUDED.duration_ms, step_count=EXCLUDED.step_count, activity_type=EXCLUDED.activity_type, updated_at=NOW()`

	if _, err = tx.Exec(ctx, upsert,
		record.ID,
		record.Duration.Milliseconds(),
		record.StepCount,
		int(record.Type),
	); err != nil {
		return cacheErr("put", err)
	}

	cachedAt := c.now().UTC()
	if err = c.insertOutbox(ctx, tx, record, events.TypeWorkoutCached, events.WorkoutCached{
		WorkoutID:    record.ID,
		StartedAt:    record.Start,
		DurationMs:   record.Duration.Milliseconds(),
		StepCount:    record.StepCount,
		ActivityType: int(record.Type),
		CachedAt:     cachedAt,
	}); err != nil {
		return cacheErr("put", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return cacheErr("put", err)
	}
	observability.RecordWorkoutCached(cachedAt)
	return nil
}

func (c *Cache) insertOutbox(ctx context.Context, tx pgx.Tx, record domain.WorkoutRecord, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	aggregateID := strconv.FormatInt(record.ID, 10)
	dedupeKey := fmt.Sprintf("%s:%s", aggregateID, eventType)

	// Re-caching an identical start must not enqueue a second event.
	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (dedupe_key) DO NOTHING`

	_, err = tx.Exec(ctx, stmt,
		"workout",
		aggregateID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		meta.PartitionKeyFn(record),
		body,
		dedupeKey,
	)
	return err
}

// QueryRange returns records with after < start (and start < before when before is set), newest first.
func (c *Cache) QueryRange(ctx context.Context, after, before time.Time) ([]domain.WorkoutRecord, error) {
	args := []interface{}{after.UnixMilli()}
	query := `SELECT ` + workoutColumns + ` FROM workouts WHERE start_ms > $1`
	if !before.IsZero() {
		query += ` AND start_ms < $2`
		args = append(args, before.UnixMilli())
	}
	query += ` ORDER BY start_ms DESC`

	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, cacheErr("query range", err)
	}
	defer rows.Close()

	results, err := collectWorkouts(rows, 0)
	if err != nil {
		return nil, cacheErr("query range", err)
	}
	return results, nil
}

// Latest returns the record with the greatest start, or nil when the cache is empty.
func (c *Cache) Latest(ctx context.Context) (*domain.WorkoutRecord, error) {
	row := c.pool.QueryRow(ctx, `SELECT `+workoutColumns+` FROM workouts ORDER BY start_ms DESC LIMIT 1`)
	rec, err := scanWorkout(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, cacheErr("latest", err)
	}
	return &rec, nil
}

// ListRecent returns cached workouts ordered by start descending.
func (c *Cache) ListRecent(ctx context.Context, filter domain.WorkoutFilter, cursor *domain.Cursor, limit int) ([]domain.WorkoutRecord, *domain.Cursor, error) {
	limit = persistence.PageSize(limit)

	args := []interface{}{limit}
	query := `SELECT ` + workoutColumns + ` FROM workouts WHERE TRUE`

	if filter.Type != nil {
		args = append(args, int(*filter.Type))
		query += fmt.Sprintf(` AND activity_type = $%d`, len(args))
	} else {
		args = append(args, int(domain.ActivityStill))
		query += fmt.Sprintf(` AND activity_type <> $%d`, len(args))
	}

	if cursor != nil {
		args = append(args, cursor.Start.UnixMilli())
		query += fmt.Sprintf(` AND start_ms < $%d`, len(args))
	}

	query += ` ORDER BY start_ms DESC LIMIT $1`

	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, cacheErr("list recent", err)
	}
	defer rows.Close()

	results, err := collectWorkouts(rows, limit)
	if err != nil {
		return nil, nil, cacheErr("list recent", err)
	}

	var nextCursor *domain.Cursor
	if len(results) == limit {
		nextCursor = &domain.Cursor{Start: results[len(results)-1].Start}
	}
	return results, nextCursor, nil
}

func collectWorkouts(rows pgx.Rows, capacity int) ([]domain.WorkoutRecord, error) {
	results := make([]domain.WorkoutRecord, 0, capacity)
	for rows.Next() {
		rec, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func scanWorkout(row pgx.Row) (domain.WorkoutRecord, error) {
	var (
		startMs    int64
		durationMs int64
		steps      int
		activity   int
	)
	if err := row.Scan(&startMs, &durationMs, &steps, &activity); err != nil {
		return domain.WorkoutRecord{}, err
	}
	return domain.WorkoutRecord{
		ID:        startMs,
		Start:     time.UnixMilli(startMs).UTC(),
		Duration:  time.Duration(durationMs) * time.Millisecond,
		StepCount: steps,
		Type:      domain.ActivityType(activity),
	}, nil
}

func cacheErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrCacheIO, op, err)
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	SchemaSubject  string
	PartitionKeyFn func(domain.WorkoutRecord) string
}

var eventCatalog = map[string]EventMetadata{
	events.TypeWorkoutCached: {
		Topic:         "workout_events",
		SchemaSubject: "workout_events-value",
		PartitionKeyFn: func(r domain.WorkoutRecord) string {
			return r.Type.String()
		},
	},
}
