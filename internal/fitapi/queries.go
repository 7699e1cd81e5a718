package fitapi

import "time"

// Data sources queried by the sync engine.
const (
	SourceMergedSegments = "derived:com.google.activity.segment:com.google.android.gms:merge_activity_segments"
	SourceEstimatedSteps = "derived:com.google.step_count.delta:com.google.android.gms:estimated_steps"
)

// Query names, used for logging and metrics labels.
const (
	QueryNameActivitySegments       = "activity_segments"
	QueryNameActivitySegmentBuckets = "activity_segment_buckets"
	QueryNameStepCount              = "step_count"
	QueryNameStepEstimate           = "step_estimate"
)

// Request describes one time-ranged history read.
type Request struct {
	Name  string
	Start time.Time
	End   time.Time

	// DataSourceID selects a raw dataset read when Aggregate is empty.
	DataSourceID string

	Aggregate               []AggregateBy
	BucketByTime            time.Duration
	BucketByActivitySegment time.Duration
}

// AggregateBy names a data type, optionally pinned to one source.
type AggregateBy struct {
	DataTypeName string `json:"dataTypeName,omitempty"`
	DataSourceID string `json:"dataSourceId,omitempty"`
}

// Bucketed reports whether the request goes through the aggregate endpoint.
func (r Request) Bucketed() bool {
	return len(r.Aggregate) > 0
}

// QueryActivitySegments reads raw activity segments in [start, end].
func QueryActivitySegments(start, end time.Time) Request {
	return Request{
		Name:         QueryNameActivitySegments,
		Start:        start,
		End:          end,
		DataSourceID: SourceMergedSegments,
	}
}

// QueryActivitySegmentBuckets buckets [start, end] by activity segment with
// an activity summary and step delta per bucket.
func QueryActivitySegmentBuckets(start, end time.Time) Request {
	return Request{
		Name:  QueryNameActivitySegmentBuckets,
		Start: start,
		End:   end,
		Aggregate: []AggregateBy{
			{DataTypeName: TypeStepCountDelta},
			{DataTypeName: TypeActivitySegment},
		},
		BucketByActivitySegment: time.Minute,
	}
}

// QueryStepCount sums step deltas over [start, end) into a single bucket.
func QueryStepCount(start, end time.Time) Request {
	span := end.Sub(start)
	if span <= 0 {
		span = time.Millisecond
	}
	return Request{
		Name:         QueryNameStepCount,
		Start:        start,
		End:          end,
		Aggregate:    []AggregateBy{{DataTypeName: TypeStepCountDelta}},
		BucketByTime: span,
	}
}

// QueryStepEstimate reads the estimated step source in daily buckets.
func QueryStepEstimate(start, end time.Time) Request {
	return Request{
		Name:         QueryNameStepEstimate,
		Start:        start,
		End:          end,
		Aggregate:    []AggregateBy{{DataTypeName: TypeStepCountDelta, DataSourceID: SourceEstimatedSteps}},
		BucketByTime: 24 * time.Hour,
	}
}
