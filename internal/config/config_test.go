package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	require.Equal(t, time.Minute, cfg.CallTimeout)
	require.Equal(t, 45*24*time.Hour, cfg.BackfillWindow)
	require.Equal(t, 8*time.Hour, cfg.SafetyMargin)
	require.Equal(t, 2*time.Hour, cfg.UncachedWindow)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
	require.Equal(t, 24*time.Hour, cfg.ReportSnapshotTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " a:1, ,b:2 ")
	t.Setenv("FITNESS_CALL_TIMEOUT", "15s")
	t.Setenv("WORKER_COUNT", "4")
	t.Setenv("BACKFILL_WINDOW", "not-a-duration")
	t.Setenv("REPORT_TIMEZONE", "UTC")

	cfg := Load()
	require.Equal(t, []string{"a:1", "b:2"}, cfg.KafkaBrokers)
	require.Equal(t, 15*time.Second, cfg.CallTimeout)
	require.Equal(t, 4, cfg.WorkerCount)
	require.Equal(t, 45*24*time.Hour, cfg.BackfillWindow)
	require.Equal(t, time.UTC, cfg.Location())
}
