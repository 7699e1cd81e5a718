// Package fitapi reads activity and step history from the cloud fitness API.
package fitapi

import (
	"math"
	"time"
)

// Data type names used by the history API.
const (
	TypeActivitySegment = "com.google.activity.segment"
	TypeActivitySummary = "com.google.activity.summary"
	TypeStepCountDelta  = "com.google.step_count.delta"
)

// Field names within the typed field sets.
const (
	FieldActivity    = "activity"
	FieldDuration    = "duration"
	FieldNumSegments = "num_segments"
	FieldSteps       = "steps"
)

// Values are positional on the wire; this table names them.
var fieldLayouts = map[string][]string{
	TypeActivitySegment: {FieldActivity},
	TypeActivitySummary: {FieldActivity, FieldDuration, FieldNumSegments},
	TypeStepCountDelta:  {FieldSteps},
}

// ReadResult is the decoded response of a single Read. Bucketed queries fill
// Buckets; raw dataset reads fill DataSets.
type ReadResult struct {
	Buckets  []Bucket
	DataSets []DataSet
}

// Bucket groups data sets by time window or activity segment.
type Bucket struct {
	StartTimeMillis int64     `json:"startTimeMillis,string"`
	EndTimeMillis   int64     `json:"endTimeMillis,string"`
	Activity        *int      `json:"activity,omitempty"`
	DataSets        []DataSet `json:"dataset"`
}

// DataSet is the set of points produced by one data source.
type DataSet struct {
	DataSourceID string      `json:"dataSourceId"`
	Points       []DataPoint `json:"point"`
}

// DataPoint is one typed sample covering [start, end).
type DataPoint struct {
	StartTimeNanos int64   `json:"startTimeNanos,string"`
	EndTimeNanos   int64   `json:"endTimeNanos,string"`
	DataTypeName   string  `json:"dataTypeName"`
	Values         []Value `json:"value"`
}

// Value holds one positional field value.
type Value struct {
	IntVal *int64   `json:"intVal,omitempty"`
	FpVal  *float64 `json:"fpVal,omitempty"`
}

// Int returns the integer form of the value, rounding floating point values.
func (v Value) Int() int64 {
	if v.IntVal != nil {
		return *v.IntVal
	}
	if v.FpVal != nil {
		return int64(math.Round(*v.FpVal))
	}
	return 0
}

// Start returns the point start time.
func (p DataPoint) Start() time.Time {
	return time.Unix(0, p.StartTimeNanos).UTC()
}

// End returns the point end time.
func (p DataPoint) End() time.Time {
	return time.Unix(0, p.EndTimeNanos).UTC()
}

// Fields returns the names of the point's field set, in wire order.
func (p DataPoint) Fields() []string {
	return fieldLayouts[p.DataTypeName]
}

// Field looks up a named field of the point's data type.
func (p DataPoint) Field(name string) (Value, bool) {
	for i, field := range p.Fields() {
		if field == name {
			if i < len(p.Values) {
				return p.Values[i], true
			}
			return Value{}, false
		}
	}
	return Value{}, false
}

type aggregateResponse struct {
	Buckets []Bucket `json:"bucket"`
}

type datasetResponse struct {
	DataSourceID string      `json:"dataSourceId"`
	Points       []DataPoint `json:"point"`
}
