package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/fitsync/internal/domain"
)

func seed(t *testing.T, c *Cache, base time.Time, types ...domain.ActivityType) {
	t.Helper()
	for i, typ := range types {
		s := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, c.Put(context.Background(), domain.NewWorkoutRecord(s, s.Add(5*time.Minute), 10*(i+1), typ)))
	}
}

func TestCacheQueryRangeStrictBothEnds(t *testing.T) {
	ctx := context.Background()
	c := NewCache()
	base := time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)
	seed(t, c, base, domain.ActivityWalking, domain.ActivityRunning, domain.ActivityBiking, domain.ActivityWalking)

	got, err := c.QueryRange(ctx, base, base.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, domain.ActivityBiking, got[0].Type)
	require.Equal(t, domain.ActivityRunning, got[1].Type)

	open, err := c.QueryRange(ctx, base.Add(-time.Second), time.Time{})
	require.NoError(t, err)
	require.Len(t, open, 4)
}

func TestCacheGetLatestAndUpsert(t *testing.T) {
	ctx := context.Background()
	c := NewCache()

	latest, err := c.Latest(ctx)
	require.NoError(t, err)
	require.Nil(t, latest)

	base := time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)
	seed(t, c, base, domain.ActivityWalking, domain.ActivityRunning)

	latest, err = c.Latest(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.ActivityRunning, latest.Type)

	updated := domain.NewWorkoutRecord(base, base.Add(time.Minute), 99, domain.ActivityWalking)
	require.NoError(t, c.Put(ctx, updated))
	require.Equal(t, 2, c.Len())

	got, err := c.Get(ctx, base)
	require.NoError(t, err)
	require.Equal(t, 99, got.StepCount)

	missing, err := c.Get(ctx, base.Add(time.Millisecond))
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestCacheListRecent(t *testing.T) {
	ctx := context.Background()
	c := NewCache()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	seed(t, c, base, domain.ActivityWalking, domain.ActivityStill, domain.ActivityRunning, domain.ActivityWalking)

	page, next, err := c.ListRecent(ctx, domain.WorkoutFilter{}, nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.True(t, page[0].Start.After(page[1].Start))
	require.NotNil(t, next)

	rest, next, err := c.ListRecent(ctx, domain.WorkoutFilter{}, next, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Nil(t, next)
	require.True(t, rest[0].Start.Equal(base))

	still := domain.ActivityStill
	only, _, err := c.ListRecent(ctx, domain.WorkoutFilter{Type: &still}, nil, 0)
	require.NoError(t, err)
	require.Len(t, only, 1)
}
