package domain

import (
	"context"
	"time"
)

// Cursor models the pagination token for recent workout listings.
type Cursor struct {
	Start time.Time
}

// WorkoutFilter narrows ListRecent results. A nil Type lists every type
// except STILL.
type WorkoutFilter struct {
	Type *ActivityType
}

// WorkoutCache is the durable store of backfilled workout records.
type WorkoutCache interface {
	Get(ctx context.Context, start time.Time) (*WorkoutRecord, error)
	Put(ctx context.Context, record WorkoutRecord) error
	// QueryRange returns records with after < Start (and Start < before when
	// before is non-zero), ordered by Start descending.
	QueryRange(ctx context.Context, after, before time.Time) ([]WorkoutRecord, error)
	Latest(ctx context.Context) (*WorkoutRecord, error)
	ListRecent(ctx context.Context, filter WorkoutFilter, cursor *Cursor, limit int) ([]WorkoutRecord, *Cursor, error)
}

// SyncState persists whether the historical backfill has completed once.
type SyncState interface {
	BackfillComplete(ctx context.Context) (bool, error)
	SetBackfillComplete(ctx context.Context, complete bool) error
}
