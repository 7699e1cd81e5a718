package state

import (
	"time"

	"example.com/fitsync/internal/domain"
)

// EntrySnapshot is the wire form of a report entry.
type EntrySnapshot struct {
	ActivityType int    `json:"activity_type"`
	Name         string `json:"name"`
	DurationMs   int64  `json:"duration_ms"`
	StepCount    int    `json:"step_count"`
}

// Snapshot is the wire form of a published report.
type Snapshot struct {
	TimeFrame   string          `json:"timeframe"`
	Label       string          `json:"label"`
	Partial     bool            `json:"partial"`
	RangeStart  time.Time       `json:"range_start"`
	RangeEnd    time.Time       `json:"range_end"`
	GeneratedAt time.Time       `json:"generated_at"`
	Entries     []EntrySnapshot `json:"entries"`
}

// SnapshotOf converts a report into its wire form.
func SnapshotOf(r domain.Report) Snapshot {
	entries := make([]EntrySnapshot, 0, len(r.Entries))
	for _, e := range r.Entries {
		entries = append(entries, EntrySnapshot{
			ActivityType: int(e.Type),
			Name:         e.Name,
			DurationMs:   e.Duration.Milliseconds(),
			StepCount:    e.StepCount,
		})
	}
	return Snapshot{
		TimeFrame:   r.TimeFrame.String(),
		Label:       r.Label,
		Partial:     r.Partial,
		RangeStart:  r.RangeStart,
		RangeEnd:    r.RangeEnd,
		GeneratedAt: r.GeneratedAt,
		Entries:     entries,
	}
}

// Report converts the snapshot back into a domain report.
func (s Snapshot) Report() (domain.Report, error) {
	tf, err := domain.ParseTimeFrame(s.TimeFrame)
	if err != nil {
		return domain.Report{}, err
	}
	entries := make([]domain.ReportEntry, 0, len(s.Entries))
	for _, e := range s.Entries {
		entries = append(entries, domain.ReportEntry{
			Type:      domain.ActivityType(e.ActivityType),
			Name:      e.Name,
			Duration:  time.Duration(e.DurationMs) * time.Millisecond,
			StepCount: e.StepCount,
		})
	}
	return domain.Report{
		TimeFrame:   tf,
		Label:       s.Label,
		Partial:     s.Partial,
		RangeStart:  s.RangeStart,
		RangeEnd:    s.RangeEnd,
		GeneratedAt: s.GeneratedAt,
		Entries:     entries,
	}, nil
}
