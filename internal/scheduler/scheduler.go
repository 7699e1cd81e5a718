// Package scheduler periodically asks the consumer to run an incremental backfill.
package scheduler

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var ticksCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fitsync",
	Subsystem: "scheduler",
	Name:      "sync_requests_total",
	Help:      "Number of sync.requested commands the scheduler tried to publish, by outcome.",
}, []string{"outcome"})

func init() {
	prometheus.MustRegister(ticksCounter)
}

// Publisher sends sync commands.
type Publisher interface {
	RequestSync(ctx context.Context, reset bool) error
}

// Scheduler publishes one sync request per interval.
type Scheduler struct {
	publisher Publisher
	interval  time.Duration
	logger    *zap.Logger
}

// New constructs a Scheduler. A non-positive interval defaults to 30 minutes.
func New(publisher Publisher, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{publisher: publisher, interval: interval, logger: logger}
}

// Run publishes immediately and then on every tick until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick publishes a single sync request. Failures are logged and counted.
func (s *Scheduler) Tick(ctx context.Context) {
	pubCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.publisher.RequestSync(pubCtx, false); err != nil {
		if ctx.Err() != nil {
			return
		}
		ticksCounter.WithLabelValues("failed").Inc()
		s.logger.Warn("sync request not published", zap.Error(err))
		return
	}
	ticksCounter.WithLabelValues("published").Inc()
	s.logger.Debug("sync request published")
}
