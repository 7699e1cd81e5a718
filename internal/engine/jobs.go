package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"example.com/fitsync/internal/domain"
)

// Selection is the outcome of SelectItem.
type Selection struct {
	// Advanced is set when the time frame tile was selected.
	Advanced  bool
	TimeFrame domain.TimeFrame
	Workouts  []domain.WorkoutRecord
	Next      *domain.Cursor
}

// StartBackfill submits a backfill run. It returns domain.ErrJobInFlight when
// one is already running.
func (e *Engine) StartBackfill() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.backfill.State == StateRunning {
		return domain.ErrJobInFlight
	}

	runID := uuid.NewString()
	begin := time.Now()
	e.backfill = JobStatus{Kind: JobBackfill, State: StateRunning, RunID: runID, StartedAt: e.now()}

	var inserted int
	ok := e.pool.Submit(func() error {
		n, err := e.Backfill(e.ctx)
		inserted = n
		return err
	}, func(err error) {
		e.finishBackfill(runID, begin, inserted, err)
	})
	if !ok {
		e.backfill.State = StateFailed
		e.backfill.Error = ErrStopped.Error()
		return ErrStopped
	}
	return nil
}

func (e *Engine) finishBackfill(runID string, begin time.Time, inserted int, err error) {
	e.mu.Lock()
	if e.backfill.RunID == runID {
		e.backfill.FinishedAt = e.now()
		e.backfill.Inserted = inserted
		if err != nil {
			e.backfill.State = StateFailed
			e.backfill.Error = err.Error()
		} else {
			e.backfill.State = StateSucceeded
		}
	}
	e.mu.Unlock()

	logger := e.logger.With(zap.String("job", string(JobBackfill)), zap.String("run_id", runID), zap.Int("inserted", inserted))
	if err != nil {
		recordJob(JobBackfill, StateFailed, begin)
		logger.Error("backfill failed", zap.Error(err))
		return
	}
	recordJob(JobBackfill, StateSucceeded, begin)
	logger.Info("backfill finished")

	if inserted > 0 {
		e.RefreshReport(true)
	}
}

// RequestReport selects tf and runs a report for it. A run already in flight
// is superseded: its results are dropped and only the latest requested time
// frame runs once it returns.
func (e *Engine) RequestReport(tf domain.TimeFrame) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.timeFrame = tf
	e.lastRun = &tf
	e.report.generation++

	if e.report.running {
		if e.report.pending == nil {
			reportsSupersededCounter.Inc()
		}
		next := tf
		e.report.pending = &next
		return
	}
	e.startReportLocked(tf, e.report.generation)
}

// RunReport runs a report for tf without changing the selected time frame.
// It never supersedes a run in flight: when one is running, tf is queued
// only if nothing else is pending.
func (e *Engine) RunReport(tf domain.TimeFrame) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.report.running {
		if e.report.pending == nil {
			next := tf
			e.report.pending = &next
		}
		return
	}
	e.startReportLocked(tf, e.report.generation)
}

// RefreshReport reruns the report for the selected time frame when forced or
// when that frame has not been reported yet. It reports whether a run was
// requested.
func (e *Engine) RefreshReport(force bool) bool {
	e.mu.Lock()
	tf := e.timeFrame
	run := force || e.lastRun == nil || *e.lastRun != tf
	e.mu.Unlock()

	if run {
		e.RequestReport(tf)
	}
	return run
}

func (e *Engine) startReportLocked(tf domain.TimeFrame, generation uint64) {
	runID := uuid.NewString()
	begin := time.Now()
	e.report.running = true
	e.report.status = JobStatus{Kind: JobReport, State: StateRunning, RunID: runID, StartedAt: e.now(), TimeFrame: tf}

	ok := e.pool.Submit(func() error {
		_, err := e.buildReport(e.ctx, tf, func(r domain.Report) { e.publish(generation, r) })
		return err
	}, func(err error) {
		e.finishReport(runID, tf, generation, begin, err)
	})
	if !ok {
		e.report.running = false
		e.report.status.State = StateFailed
		e.report.status.Error = ErrStopped.Error()
	}
}

func (e *Engine) finishReport(runID string, tf domain.TimeFrame, generation uint64, begin time.Time, err error) {
	e.mu.Lock()
	superseded := e.report.generation != generation
	e.report.running = false
	e.report.status.FinishedAt = e.now()
	outcome := StateSucceeded
	if err != nil {
		outcome = StateFailed
		e.report.status.Error = err.Error()
	}
	e.report.status.State = outcome
	if next := e.report.pending; next != nil {
		e.report.pending = nil
		e.startReportLocked(*next, e.report.generation)
	}
	e.mu.Unlock()

	recordJob(JobReport, outcome, begin)
	logger := e.logger.With(
		zap.String("job", string(JobReport)),
		zap.String("run_id", runID),
		zap.String("timeframe", tf.String()),
		zap.Bool("superseded", superseded),
	)
	if err != nil {
		logger.Error("report failed", zap.Error(err))
		return
	}
	logger.Info("report finished")
}

func (e *Engine) current(generation uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.report.generation == generation
}

// publish hands r to the listener on the loop unless a newer request has
// superseded the run that produced it.
func (e *Engine) publish(generation uint64, r domain.Report) {
	if !e.current(generation) {
		return
	}
	deliver := func() {
		if e.current(generation) {
			e.listener.OnReportUpdated(r)
		}
	}
	if e.loop == nil {
		deliver()
		return
	}
	e.loop.Post(deliver)
}

// SelectItem handles a tap on a report entry. The time frame tile advances
// the window and refreshes; any other activity lists its recent workouts.
func (e *Engine) SelectItem(ctx context.Context, activity domain.ActivityType, cursor *domain.Cursor, limit int) (Selection, error) {
	if activity == domain.ActivityTimeFrame {
		e.mu.Lock()
		e.timeFrame = e.timeFrame.Next()
		tf := e.timeFrame
		e.mu.Unlock()

		e.RefreshReport(false)
		return Selection{Advanced: true, TimeFrame: tf}, nil
	}

	records, next, err := e.cache.ListRecent(ctx, domain.WorkoutFilter{Type: &activity}, cursor, limit)
	if err != nil {
		return Selection{}, err
	}
	return Selection{TimeFrame: e.TimeFrame(), Workouts: records, Next: next}, nil
}

// ResetBackfill clears the backfill flag and starts a full-window backfill.
func (e *Engine) ResetBackfill(ctx context.Context) error {
	if err := e.state.SetBackfillComplete(ctx, false); err != nil {
		return err
	}
	return e.StartBackfill()
}

// Connect starts the initial backfill and shows the selected report.
func (e *Engine) Connect() {
	if err := e.StartBackfill(); err != nil && !errors.Is(err, domain.ErrJobInFlight) {
		e.logger.Warn("initial backfill not started", zap.Error(err))
	}
	e.RefreshReport(false)
}

// Refresh runs a backfill and forces a report run.
func (e *Engine) Refresh() {
	if err := e.StartBackfill(); err != nil && !errors.Is(err, domain.ErrJobInFlight) {
		e.logger.Warn("backfill not started", zap.Error(err))
	}
	e.RefreshReport(true)
}
