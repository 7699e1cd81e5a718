package fitapi

import (
	"time"

	"example.com/fitsync/internal/domain"
)

// Segment is a classified activity interval reported by the API.
type Segment struct {
	Start    time.Time
	End      time.Time
	Activity domain.ActivityType
}

// CountSteps sums the positive step deltas across every bucket of the result.
func CountSteps(result ReadResult) int {
	total := 0
	for _, bucket := range result.Buckets {
		total += bucketSteps(bucket)
	}
	return total
}

func bucketSteps(bucket Bucket) int {
	steps := 0
	for _, ds := range bucket.DataSets {
		for _, dp := range ds.Points {
			if dp.DataTypeName != TypeStepCountDelta {
				continue
			}
			for _, v := range dp.Values {
				if n := v.Int(); n > 0 {
					steps += int(n)
				}
			}
		}
	}
	return steps
}

// Segments lists the activity segments of an unbucketed read. Points without
// an activity field are skipped.
func Segments(result ReadResult) []Segment {
	var out []Segment
	for _, ds := range result.DataSets {
		for _, dp := range ds.Points {
			if dp.DataTypeName != TypeActivitySegment {
				continue
			}
			activity, ok := dp.Field(FieldActivity)
			if !ok {
				continue
			}
			out = append(out, Segment{
				Start:    time.UnixMilli(dp.Start().UnixMilli()).UTC(),
				End:      time.UnixMilli(dp.End().UnixMilli()).UTC(),
				Activity: domain.ActivityType(activity.Int()),
			})
		}
	}
	return out
}

// Summaries converts the activity summaries of a bucketed read into transient
// records. A bucket's step delta is credited to the summary matching the
// bucket's activity.
func Summaries(result ReadResult) []domain.WorkoutRecord {
	var out []domain.WorkoutRecord
	for _, bucket := range result.Buckets {
		steps := bucketSteps(bucket)
		credited := false
		for _, ds := range bucket.DataSets {
			for _, dp := range ds.Points {
				if dp.DataTypeName != TypeActivitySummary {
					continue
				}
				activity, ok := dp.Field(FieldActivity)
				if !ok {
					continue
				}
				record := domain.WorkoutRecord{
					Start: dp.Start(),
					Type:  domain.ActivityType(activity.Int()),
				}
				if duration, ok := dp.Field(FieldDuration); ok {
					record.Duration = time.Duration(duration.Int()) * time.Millisecond
				}
				if !credited && bucket.Activity != nil && *bucket.Activity == int(record.Type) {
					record.StepCount = steps
					credited = true
				}
				out = append(out, record)
			}
		}
	}
	return out
}
