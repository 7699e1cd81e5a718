//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/fitsync/internal/domain"
)

func TestCachePutWritesRecordAndOutboxEvent(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)
	cache := NewCache(pool)

	start := time.Date(2025, 3, 13, 9, 0, 0, 0, time.UTC)
	record := domain.NewWorkoutRecord(start, start.Add(10*time.Minute), 500, domain.ActivityWalking)
	require.NoError(t, cache.Put(ctx, record))
	require.NoError(t, cache.Put(ctx, record))

	stored, err := cache.Get(ctx, start)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, record, *stored)

	var events int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE event_type='workout.cached'`).Scan(&events))
	require.Equal(t, 1, events, "re-caching the same start must not duplicate the event")

	missing, err := cache.Get(ctx, start.Add(time.Minute))
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestCacheQueryRangeIsStrict(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)
	cache := NewCache(pool)

	base := time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		s := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, cache.Put(ctx, domain.NewWorkoutRecord(s, s.Add(time.Minute), i, domain.ActivityRunning)))
	}

	got, err := cache.QueryRange(ctx, base, base.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.True(t, got[0].Start.Equal(base.Add(2*time.Hour)))
	require.True(t, got[1].Start.Equal(base.Add(time.Hour)))

	open, err := cache.QueryRange(ctx, base, time.Time{})
	require.NoError(t, err)
	require.Len(t, open, 3)

	latest, err := cache.Latest(ctx)
	require.NoError(t, err)
	require.True(t, latest.Start.Equal(base.Add(3*time.Hour)))
}

func TestCacheListRecentPaginatesAndSkipsStill(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)
	cache := NewCache(pool)

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	types := []domain.ActivityType{domain.ActivityWalking, domain.ActivityStill, domain.ActivityRunning, domain.ActivityWalking}
	for i, typ := range types {
		s := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, cache.Put(ctx, domain.NewWorkoutRecord(s, s.Add(time.Minute), 1, typ)))
	}

	page, next, err := cache.ListRecent(ctx, domain.WorkoutFilter{}, nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, next)

	rest, next, err := cache.ListRecent(ctx, domain.WorkoutFilter{}, next, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Nil(t, next)
	require.Equal(t, domain.ActivityWalking, rest[0].Type)

	walking := domain.ActivityWalking
	filtered, _, err := cache.ListRecent(ctx, domain.WorkoutFilter{Type: &walking}, nil, 10)
	require.NoError(t, err)
	require.Len(t, filtered, 2)
}

func setupPostgres(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("fitsync"),
		postgrescontainer.WithUsername("fitsync"),
		postgrescontainer.WithPassword("fitsync"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	files := []string{
		"../../../db/migrations/0001_init.up.sql",
	}

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, rel := range files {
		contents, readErr := os.ReadFile(resolvePath(t, rel))
		require.NoError(t, readErr)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoError(t, execErr)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
