package domain

import "time"

// ReportEntry accumulates duration and steps for one activity type.
type ReportEntry struct {
	Type      ActivityType
	Name      string
	Duration  time.Duration
	StepCount int
}

// Report is an immutable snapshot of an aggregation pass.
type Report struct {
	TimeFrame   TimeFrame
	Label       string
	Partial     bool
	RangeStart  time.Time
	RangeEnd    time.Time
	GeneratedAt time.Time
	Entries     []ReportEntry
}

// Entry returns the entry for the given type, if present.
func (r Report) Entry(activity ActivityType) (ReportEntry, bool) {
	for _, e := range r.Entries {
		if e.Type == activity {
			return e, true
		}
	}
	return ReportEntry{}, false
}

// ReportAggregator folds workout records into per-type entries. Entries keep
// the order in which their type was first seen since the last Clear.
// It is not safe for concurrent use; each report run owns its aggregator.
type ReportAggregator struct {
	entries []ReportEntry
	index   map[ActivityType]int
}

// NewReportAggregator returns an empty aggregator.
func NewReportAggregator() *ReportAggregator {
	return &ReportAggregator{index: make(map[ActivityType]int)}
}

// Clear drops all entries.
func (a *ReportAggregator) Clear() {
	a.entries = a.entries[:0]
	a.index = make(map[ActivityType]int)
}

// Add sums the record into the entry for its type, creating it on first sight.
func (a *ReportAggregator) Add(record WorkoutRecord) {
	if i, ok := a.index[record.Type]; ok {
		a.entries[i].Duration += record.Duration
		a.entries[i].StepCount += record.StepCount
		return
	}
	a.append(record)
}

// Replace overwrites the entry for the record's type with the record's values.
func (a *ReportAggregator) Replace(record WorkoutRecord) {
	if i, ok := a.index[record.Type]; ok {
		a.entries[i] = entryFor(record)
		return
	}
	a.append(record)
}

// Entry returns the current entry for a type.
func (a *ReportAggregator) Entry(activity ActivityType) (ReportEntry, bool) {
	i, ok := a.index[activity]
	if !ok {
		return ReportEntry{}, false
	}
	return a.entries[i], true
}

// Len returns the number of distinct types seen.
func (a *ReportAggregator) Len() int {
	return len(a.entries)
}

// Entries returns a copy of the entries in first-seen order.
func (a *ReportAggregator) Entries() []ReportEntry {
	out := make([]ReportEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

func (a *ReportAggregator) append(record WorkoutRecord) {
	a.index[record.Type] = len(a.entries)
	a.entries = append(a.entries, entryFor(record))
}

func entryFor(record WorkoutRecord) ReportEntry {
	return ReportEntry{
		Type:      record.Type,
		Name:      record.Type.String(),
		Duration:  record.Duration,
		StepCount: record.StepCount,
	}
}
