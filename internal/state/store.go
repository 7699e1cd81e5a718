package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"example.com/fitsync/internal/domain"
)

const (
	keyPrefix           = "fitsync:"
	backfillCompleteKey = keyPrefix + "sync:backfill_complete"
	reportKeyPrefix     = keyPrefix + "report:"
)

// Store persists the backfill flag and report snapshots. It satisfies
// domain.SyncState and the engine's report listener contract.
type Store struct {
	kv          KVStore
	logger      *zap.Logger
	snapshotTTL time.Duration
	timeout     time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithSnapshotTTL expires report snapshots after ttl. Zero keeps them forever.
func WithSnapshotTTL(ttl time.Duration) Option {
	return func(s *Store) { s.snapshotTTL = ttl }
}

// WithLogger sets the logger used when listener writes fail.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore wraps kv.
func NewStore(kv KVStore, opts ...Option) *Store {
	s := &Store{kv: kv, logger: zap.NewNop(), timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BackfillComplete reports whether a backfill has finished at least once.
func (s *Store) BackfillComplete(ctx context.Context) (bool, error) {
	val, err := s.kv.Get(ctx, backfillCompleteKey)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return false, nil
		}
		return false, fmt.Errorf("read backfill flag: %w", err)
	}
	return val == "1", nil
}

// SetBackfillComplete stores the flag. Clearing it deletes the key.
func (s *Store) SetBackfillComplete(ctx context.Context, complete bool) error {
	if !complete {
		return s.Reset(ctx)
	}
	if err := s.kv.Set(ctx, backfillCompleteKey, "1", 0); err != nil {
		return fmt.Errorf("write backfill flag: %w", err)
	}
	return nil
}

// Reset clears the backfill flag so the next backfill covers the full window.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.kv.Del(ctx, backfillCompleteKey); err != nil {
		return fmt.Errorf("reset backfill flag: %w", err)
	}
	return nil
}

// SaveReport stores the report as the latest snapshot for its time frame.
func (s *Store) SaveReport(ctx context.Context, report domain.Report) error {
	body, err := json.Marshal(SnapshotOf(report))
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, reportKey(report.TimeFrame), string(body), s.snapshotTTL); err != nil {
		return fmt.Errorf("write report snapshot: %w", err)
	}
	return nil
}

// LoadReport returns the latest snapshot for tf. ok is false when none exists.
func (s *Store) LoadReport(ctx context.Context, tf domain.TimeFrame) (snap Snapshot, ok bool, err error) {
	val, err := s.kv.Get(ctx, reportKey(tf))
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("read report snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode report snapshot: %w", err)
	}
	return snap, true, nil
}

// OnReportUpdated persists final reports. Partial reports are skipped so a
// run that fails after its cache pass leaves the previous snapshot in place.
func (s *Store) OnReportUpdated(report domain.Report) {
	if report.Partial {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.SaveReport(ctx, report); err != nil {
		s.logger.Warn("persist report snapshot failed",
			zap.String("timeframe", report.TimeFrame.String()),
			zap.Error(err),
		)
	}
}

func reportKey(tf domain.TimeFrame) string {
	return reportKeyPrefix + tf.String()
}
