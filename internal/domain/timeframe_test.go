package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeFrameNextCyclesBackToFirst(t *testing.T) {
	all := TimeFrames()
	current := all[0]
	seen := map[TimeFrame]bool{}
	for i := 0; i < len(all); i++ {
		seen[current] = true
		current = current.Next()
	}
	require.Equal(t, all[0], current)
	require.Len(t, seen, len(all))
	require.Equal(t, BeginningOfDay, TimeFrame(42).Next())
}

func TestTimeFrameBounds(t *testing.T) {
	loc := time.FixedZone("test", -5*3600)
	// Thursday
	now := time.Date(2025, time.March, 13, 15, 30, 0, 0, loc)

	start, end := BeginningOfDay.Bounds(now)
	require.Equal(t, time.Date(2025, time.March, 13, 0, 0, 0, 0, loc), start)
	require.Equal(t, now, end)

	start, _ = BeginningOfWeek.Bounds(now)
	require.Equal(t, time.Date(2025, time.March, 9, 0, 0, 0, 0, loc), start)

	start, _ = BeginningOfMonth.Bounds(now)
	require.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, loc), start)

	start, end = LastMonth.Bounds(now)
	require.Equal(t, time.Date(2025, time.February, 1, 0, 0, 0, 0, loc), start)
	require.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, loc), end)
}

func TestTimeFrameLongestIsLastMonth(t *testing.T) {
	for _, tf := range TimeFrames() {
		require.Equal(t, tf == LastMonth, tf.Longest(), tf.String())
	}
}

func TestParseTimeFrame(t *testing.T) {
	for _, tf := range TimeFrames() {
		parsed, err := ParseTimeFrame(" " + tf.String() + " ")
		require.NoError(t, err)
		require.Equal(t, tf, parsed)
	}
	_, err := ParseTimeFrame("fortnight")
	require.Error(t, err)
}

func TestNewWorkoutRecordUsesStartAsID(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_123)
	end := start.Add(12 * time.Minute)
	rec := NewWorkoutRecord(start, end, -4, ActivityWalking)
	require.Equal(t, int64(1_700_000_000_123), rec.ID)
	require.Equal(t, 12*time.Minute, rec.Duration)
	require.Zero(t, rec.StepCount)
	require.True(t, rec.End().Equal(end))
}
