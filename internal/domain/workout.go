// Package domain defines the workout cache model and report aggregation rules.
package domain

import (
	"fmt"
	"time"
)

// ActivityType is the fitness platform's integer activity classification.
type ActivityType int

// Activity values reported by the fitness history API.
const (
	ActivityInVehicle ActivityType = 0
	ActivityBiking    ActivityType = 1
	ActivityOnFoot    ActivityType = 2
	ActivityStill     ActivityType = 3
	ActivityUnknown   ActivityType = 4
	ActivityTilting   ActivityType = 5
	ActivityWalking   ActivityType = 7
	ActivityRunning   ActivityType = 8
	ActivityAerobics  ActivityType = 9
	ActivityHiking    ActivityType = 35
	ActivitySleep     ActivityType = 72

	// ActivityTimeFrame is the report tile that cycles the active TimeFrame.
	// It never appears in cached data.
	ActivityTimeFrame ActivityType = -1
)

var activityNames = map[ActivityType]string{
	ActivityInVehicle: "in_vehicle",
	ActivityBiking:    "biking",
	ActivityOnFoot:    "on_foot",
	ActivityStill:     "still",
	ActivityUnknown:   "unknown",
	ActivityTilting:   "tilting",
	ActivityWalking:   "walking",
	ActivityRunning:   "running",
	ActivityAerobics:  "aerobics",
	ActivityHiking:    "hiking",
	ActivitySleep:     "sleep",
	ActivityTimeFrame: "time_frame",
}

// String returns the lower snake case name, or activity_<n> for unnamed codes.
func (a ActivityType) String() string {
	if name, ok := activityNames[a]; ok {
		return name
	}
	return fmt.Sprintf("activity_%d", int(a))
}

// WorkoutRecord is a cached activity segment. ID equals Start in epoch
// milliseconds and is the dedup key for backfilled segments.
type WorkoutRecord struct {
	ID        int64
	Start     time.Time
	Duration  time.Duration
	StepCount int
	Type      ActivityType
}

// NewWorkoutRecord builds a record for the segment [start, end).
func NewWorkoutRecord(start, end time.Time, steps int, activity ActivityType) WorkoutRecord {
	if steps < 0 {
		steps = 0
	}
	return WorkoutRecord{
		ID:        start.UnixMilli(),
		Start:     time.UnixMilli(start.UnixMilli()).UTC(),
		Duration:  end.Sub(start),
		StepCount: steps,
		Type:      activity,
	}
}

// End returns Start + Duration.
func (w WorkoutRecord) End() time.Time {
	return w.Start.Add(w.Duration)
}
