// Package events defines the payloads exchanged over Kafka.
package events

import "time"

// Event type names carried in the outbox and on the command topic.
const (
	TypeWorkoutCached   = "workout.cached"
	TypeSyncRequested   = "sync.requested"
	TypeReportRequested = "report.requested"
)

// WorkoutCached is emitted when the backfill stores a workout record.
type WorkoutCached struct {
	WorkoutID    int64     `json:"workout_id"`
	StartedAt    time.Time `json:"started_at"`
	DurationMs   int64     `json:"duration_ms"`
	StepCount    int       `json:"step_count"`
	ActivityType int       `json:"activity_type"`
	CachedAt     time.Time `json:"cached_at"`
}

// SyncRequested asks the engine to run a backfill.
type SyncRequested struct {
	RequestedAt time.Time `json:"requested_at"`
	// Reset clears the backfill flag first, forcing the full window.
	Reset bool `json:"reset,omitempty"`
}

// ReportRequested asks the engine to rebuild the report for a time frame.
type ReportRequested struct {
	TimeFrame   string    `json:"timeframe"`
	RequestedAt time.Time `json:"requested_at"`
}
