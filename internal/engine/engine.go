// Package engine runs the backfill and report jobs that keep the workout
// cache current and publish per-activity reports.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"example.com/fitsync/internal/domain"
	"example.com/fitsync/internal/fitapi"
	"example.com/fitsync/internal/worker"
)

// ErrStopped is returned when a job is requested after the worker pool closed.
var ErrStopped = errors.New("engine stopped")

// FitnessClient reads from the fitness-history API.
type FitnessClient interface {
	Read(ctx context.Context, req fitapi.Request) (fitapi.ReadResult, error)
}

// Listener receives published reports on the loop goroutine.
type Listener interface {
	OnReportUpdated(report domain.Report)
}

// Listeners fans a report out to each listener in order.
type Listeners []Listener

func (ls Listeners) OnReportUpdated(report domain.Report) {
	for _, l := range ls {
		l.OnReportUpdated(report)
	}
}

// JobKind names a background job.
type JobKind string

const (
	JobBackfill JobKind = "backfill"
	JobReport   JobKind = "report"
)

// JobState is the lifecycle position of the most recent run of a job kind.
type JobState string

const (
	StateIdle      JobState = "IDLE"
	StateRunning   JobState = "RUNNING"
	StateSucceeded JobState = "SUCCEEDED"
	StateFailed    JobState = "FAILED"
)

// JobStatus describes the most recent run of a job kind.
type JobStatus struct {
	Kind       JobKind
	State      JobState
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Error      string
	// Inserted counts records written by a backfill run.
	Inserted int
	// TimeFrame is the window of a report run.
	TimeFrame domain.TimeFrame
}

// Windows bounds the backfill and live queries.
type Windows struct {
	// Backfill is how far back a first or reset backfill reaches.
	Backfill time.Duration
	// SafetyMargin is subtracted from the newest cached start on incremental runs.
	SafetyMargin time.Duration
	// Uncached is the recent window left out of the cache and read live instead.
	Uncached time.Duration
}

// DefaultWindows returns 45 days, 8 hours and 2 hours.
func DefaultWindows() Windows {
	return Windows{
		Backfill:     45 * 24 * time.Hour,
		SafetyMargin: 8 * time.Hour,
		Uncached:     2 * time.Hour,
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the zone used to compute report windows.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithWindows overrides DefaultWindows.
func WithWindows(w Windows) Option {
	return func(e *Engine) { e.windows = w }
}

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithContext sets the context that background jobs run under.
func WithContext(ctx context.Context) Option {
	return func(e *Engine) { e.ctx = ctx }
}

type reportSlot struct {
	status     JobStatus
	running    bool
	generation uint64
	pending    *domain.TimeFrame
}

// Engine coordinates backfill and report jobs. At most one run of each kind
// is in flight; a report request during a run supersedes it.
type Engine struct {
	client   FitnessClient
	cache    domain.WorkoutCache
	state    domain.SyncState
	listener Listener
	pool     *worker.Pool
	loop     *worker.Loop
	logger   *zap.Logger
	windows  Windows
	loc      *time.Location
	now      func() time.Time
	ctx      context.Context

	mu        sync.Mutex
	timeFrame domain.TimeFrame
	lastRun   *domain.TimeFrame
	backfill  JobStatus
	report    reportSlot
}

// New wires an Engine. Jobs run on pool; listener publications are posted to
// loop, or delivered inline when loop is nil.
func New(client FitnessClient, cache domain.WorkoutCache, state domain.SyncState, listener Listener, pool *worker.Pool, loop *worker.Loop, opts ...Option) *Engine {
	e := &Engine{
		client:   client,
		cache:    cache,
		state:    state,
		listener: listener,
		pool:     pool,
		loop:     loop,
		logger:   zap.NewNop(),
		windows:  DefaultWindows(),
		loc:      time.Local,
		now:      time.Now,
		ctx:      context.Background(),
		backfill: JobStatus{Kind: JobBackfill, State: StateIdle},
		report:   reportSlot{status: JobStatus{Kind: JobReport, State: StateIdle}},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.listener == nil {
		e.listener = Listeners(nil)
	}
	return e
}

// Backfill pulls activity segments that are not cached yet and stores them,
// returning how many records were inserted. It marks the backfill flag
// complete on success.
func (e *Engine) Backfill(ctx context.Context) (int, error) {
	now := e.now()
	end := now.Add(-e.windows.Uncached)
	start := now.Add(-e.windows.Backfill)

	complete, err := e.state.BackfillComplete(ctx)
	if err != nil {
		return 0, err
	}
	if complete {
		latest, err := e.cache.Latest(ctx)
		if err != nil {
			return 0, err
		}
		if latest != nil {
			start = latest.Start.Add(-e.windows.SafetyMargin)
		}
	}

	logger := e.logger.With(zap.Time("range_start", start), zap.Time("range_end", end), zap.Bool("incremental", complete))
	logger.Info("backfill window")

	inserted := 0
	if start.Before(end) {
		result, err := e.client.Read(ctx, fitapi.QueryActivitySegments(start, end))
		if err != nil {
			return 0, err
		}

		for _, seg := range fitapi.Segments(result) {
			existing, err := e.cache.Get(ctx, seg.Start)
			if err != nil {
				return inserted, err
			}
			if existing != nil {
				continue
			}

			steps, err := e.client.Read(ctx, fitapi.QueryStepCount(seg.Start, seg.End))
			if err != nil {
				return inserted, err
			}

			record := domain.NewWorkoutRecord(seg.Start, seg.End, fitapi.CountSteps(steps), seg.Activity)
			if err := e.cache.Put(ctx, record); err != nil {
				return inserted, err
			}
			inserted++
			recordsInsertedCounter.Inc()
		}
	}

	if err := e.state.SetBackfillComplete(ctx, true); err != nil {
		return inserted, err
	}
	return inserted, nil
}

// Report builds the final report for tf without publishing it.
func (e *Engine) Report(ctx context.Context, tf domain.TimeFrame) (domain.Report, error) {
	return e.buildReport(ctx, tf, nil)
}

func (e *Engine) buildReport(ctx context.Context, tf domain.TimeFrame, emit func(domain.Report)) (domain.Report, error) {
	now := e.now().In(e.loc)
	start, end := tf.Bounds(now)

	agg := domain.NewReportAggregator()
	cached, err := e.cache.QueryRange(ctx, start, end)
	if err != nil {
		return domain.Report{}, err
	}
	// Oldest first: entries are ordered by each type's first workout.
	for i := len(cached) - 1; i >= 0; i-- {
		agg.Add(cached[i])
	}
	if emit != nil {
		emit(e.snapshot(tf, agg, start, end, true))
	}

	live, estimate, err := e.fetchLive(ctx, tf, now, start, end)
	if err != nil {
		return domain.Report{}, err
	}

	for _, record := range fitapi.Summaries(live) {
		agg.Add(record)
	}

	// Walking steps come from the bucketed estimate; walking duration is kept.
	walking, _ := agg.Entry(domain.ActivityWalking)
	agg.Replace(domain.WorkoutRecord{
		Type:      domain.ActivityWalking,
		Duration:  walking.Duration,
		StepCount: fitapi.CountSteps(estimate),
	})

	report := e.snapshot(tf, agg, start, end, false)
	if emit != nil {
		emit(report)
	}
	return report, nil
}

func (e *Engine) snapshot(tf domain.TimeFrame, agg *domain.ReportAggregator, start, end time.Time, partial bool) domain.Report {
	return domain.Report{
		TimeFrame:   tf,
		Label:       tf.Label(),
		Partial:     partial,
		RangeStart:  start,
		RangeEnd:    end,
		GeneratedAt: e.now(),
		Entries:     agg.Entries(),
	}
}

// Status returns the latest backfill and report job states.
func (e *Engine) Status() []JobStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return []JobStatus{e.backfill, e.report.status}
}

// TimeFrame returns the currently selected report window.
func (e *Engine) TimeFrame() domain.TimeFrame {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timeFrame
}
