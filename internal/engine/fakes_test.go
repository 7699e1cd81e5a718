package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/fitsync/internal/domain"
	"example.com/fitsync/internal/fitapi"
	"example.com/fitsync/internal/persistence/memory"
	"example.com/fitsync/internal/worker"
)

var testNow = time.Date(2025, 3, 13, 15, 0, 0, 0, time.UTC)

type fakeClient struct {
	mu       sync.Mutex
	segments []fitapi.Segment
	steps    map[int64]int
	stepErrs map[int64]error
	live     fitapi.ReadResult
	estimate int
	errs     map[string]error
	requests map[string][]fitapi.Request
	gates    map[string]chan struct{}
	entered  map[string]chan struct{}
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		steps:    make(map[int64]int),
		stepErrs: make(map[int64]error),
		errs:     make(map[string]error),
		requests: make(map[string][]fitapi.Request),
		gates:    make(map[string]chan struct{}),
		entered:  make(map[string]chan struct{}),
	}
}

func (f *fakeClient) addSegment(start time.Time, d time.Duration, activity domain.ActivityType, steps int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.segments = append(f.segments, fitapi.Segment{Start: start, End: start.Add(d), Activity: activity})
	f.steps[start.UnixMilli()] = steps
}

// hold blocks reads of the named query until the returned release func runs.
func (f *fakeClient) hold(name string) (entered <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	in := make(chan struct{}, 16)
	f.gates[name] = gate
	f.entered[name] = in
	var once sync.Once
	return in, func() { once.Do(func() { close(gate) }) }
}

func (f *fakeClient) calls(name string) []fitapi.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fitapi.Request(nil), f.requests[name]...)
}

func (f *fakeClient) Read(ctx context.Context, req fitapi.Request) (fitapi.ReadResult, error) {
	f.mu.Lock()
	f.requests[req.Name] = append(f.requests[req.Name], req)
	err := f.errs[req.Name]
	gate, in := f.gates[req.Name], f.entered[req.Name]
	f.mu.Unlock()

	if gate != nil {
		select {
		case in <- struct{}{}:
		default:
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return fitapi.ReadResult{}, ctx.Err()
		}
	}
	if err != nil {
		return fitapi.ReadResult{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	switch req.Name {
	case fitapi.QueryNameActivitySegments:
		points := make([]fitapi.DataPoint, 0, len(f.segments))
		for _, seg := range f.segments {
			points = append(points, segmentPoint(seg))
		}
		return fitapi.ReadResult{DataSets: []fitapi.DataSet{{Points: points}}}, nil
	case fitapi.QueryNameStepCount:
		if err := f.stepErrs[req.Start.UnixMilli()]; err != nil {
			return fitapi.ReadResult{}, err
		}
		return stepResult(f.steps[req.Start.UnixMilli()]), nil
	case fitapi.QueryNameActivitySegmentBuckets:
		return f.live, nil
	case fitapi.QueryNameStepEstimate:
		return stepResult(f.estimate), nil
	}
	return fitapi.ReadResult{}, nil
}

func segmentPoint(seg fitapi.Segment) fitapi.DataPoint {
	activity := int64(seg.Activity)
	return fitapi.DataPoint{
		DataTypeName:   fitapi.TypeActivitySegment,
		StartTimeNanos: seg.Start.UnixNano(),
		EndTimeNanos:   seg.End.UnixNano(),
		Values:         []fitapi.Value{{IntVal: &activity}},
	}
}

func stepResult(steps int) fitapi.ReadResult {
	if steps == 0 {
		return fitapi.ReadResult{}
	}
	n := int64(steps)
	return fitapi.ReadResult{Buckets: []fitapi.Bucket{{DataSets: []fitapi.DataSet{{Points: []fitapi.DataPoint{{
		DataTypeName: fitapi.TypeStepCountDelta,
		Values:       []fitapi.Value{{IntVal: &n}},
	}}}}}}}
}

func liveSummary(activity domain.ActivityType, d time.Duration, steps int) fitapi.Bucket {
	act := int(activity)
	typ, ms, n := int64(activity), float64(d.Milliseconds()), int64(steps)
	return fitapi.Bucket{
		Activity: &act,
		DataSets: []fitapi.DataSet{
			{Points: []fitapi.DataPoint{{DataTypeName: fitapi.TypeStepCountDelta, Values: []fitapi.Value{{IntVal: &n}}}}},
			{Points: []fitapi.DataPoint{{DataTypeName: fitapi.TypeActivitySummary, Values: []fitapi.Value{{IntVal: &typ}, {FpVal: &ms}}}}},
		},
	}
}

type fakeSyncState struct {
	mu       sync.Mutex
	complete bool
}

func (s *fakeSyncState) BackfillComplete(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complete, nil
}

func (s *fakeSyncState) SetBackfillComplete(_ context.Context, complete bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.complete = complete
	return nil
}

type recorder struct {
	mu      sync.Mutex
	reports []domain.Report
}

func (r *recorder) OnReportUpdated(report domain.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
}

func (r *recorder) all() []domain.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Report(nil), r.reports...)
}

type failingRangeCache struct {
	*memory.Cache
	err error
}

func (c failingRangeCache) QueryRange(context.Context, time.Time, time.Time) ([]domain.WorkoutRecord, error) {
	return nil, c.err
}

type harness struct {
	engine   *Engine
	client   *fakeClient
	cache    *memory.Cache
	state    *fakeSyncState
	listener *recorder
}

func newHarness(t *testing.T, opts ...func(*harnessConfig)) *harness {
	t.Helper()

	cfg := harnessConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	loop := worker.NewLoop(64)
	go loop.Run(ctx)
	pool := worker.NewPool(2, loop)
	t.Cleanup(func() {
		cancel()
		pool.Close()
	})

	h := &harness{
		client:   newFakeClient(),
		cache:    memory.NewCache(),
		state:    &fakeSyncState{},
		listener: &recorder{},
	}
	var cache domain.WorkoutCache = h.cache
	if cfg.rangeErr != nil {
		cache = failingRangeCache{Cache: h.cache, err: cfg.rangeErr}
	}

	h.engine = New(h.client, cache, h.state, h.listener, pool, loop,
		WithClock(func() time.Time { return testNow }),
		WithLocation(time.UTC),
		WithContext(ctx),
	)
	return h
}

type harnessConfig struct {
	rangeErr error
}

func withRangeError(err error) func(*harnessConfig) {
	return func(c *harnessConfig) { c.rangeErr = err }
}

func (h *harness) status(kind JobKind) JobStatus {
	for _, st := range h.engine.Status() {
		if st.Kind == kind {
			return st
		}
	}
	return JobStatus{}
}

func (h *harness) waitFor(t *testing.T, kind JobKind, state JobState) JobStatus {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.status(kind).State == state
	}, 3*time.Second, 5*time.Millisecond, "waiting for %s to reach %s", kind, state)
	return h.status(kind)
}

func putRecord(t *testing.T, c domain.WorkoutCache, start time.Time, d time.Duration, steps int, activity domain.ActivityType) {
	t.Helper()
	require.NoError(t, c.Put(context.Background(), domain.NewWorkoutRecord(start, start.Add(d), steps, activity)))
}
