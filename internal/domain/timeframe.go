package domain

import (
	"fmt"
	"strings"
	"time"
)

// TimeFrame selects the report window. Values cycle via Next.
type TimeFrame int

const (
	BeginningOfDay TimeFrame = iota
	BeginningOfWeek
	BeginningOfMonth
	LastMonth
)

var timeFrames = []TimeFrame{BeginningOfDay, BeginningOfWeek, BeginningOfMonth, LastMonth}

// TimeFrames lists every TimeFrame in successor order.
func TimeFrames() []TimeFrame {
	out := make([]TimeFrame, len(timeFrames))
	copy(out, timeFrames)
	return out
}

// Next returns the successor, wrapping from the last value to the first.
func (t TimeFrame) Next() TimeFrame {
	for i, tf := range timeFrames {
		if tf == t {
			return timeFrames[(i+1)%len(timeFrames)]
		}
	}
	return timeFrames[0]
}

// Longest reports whether this is the widest window. Live data is not
// queried for it since the whole window is already cached.
func (t TimeFrame) Longest() bool {
	return t == LastMonth
}

// Bounds returns the [start, end) window for the frame evaluated at now, in
// now's location.
func (t TimeFrame) Bounds(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	loc := now.Location()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)

	switch t {
	case BeginningOfWeek:
		offset := int(midnight.Weekday())
		return midnight.AddDate(0, 0, -offset), now
	case BeginningOfMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc), now
	case LastMonth:
		thisMonth := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return thisMonth.AddDate(0, -1, 0), thisMonth
	default:
		return midnight, now
	}
}

// Label is the display text for the frame.
func (t TimeFrame) Label() string {
	switch t {
	case BeginningOfWeek:
		return "This Week"
	case BeginningOfMonth:
		return "This Month"
	case LastMonth:
		return "Last Month"
	default:
		return "Today"
	}
}

// String returns the wire name used by the API and event payloads.
func (t TimeFrame) String() string {
	switch t {
	case BeginningOfDay:
		return "beginning_of_day"
	case BeginningOfWeek:
		return "beginning_of_week"
	case BeginningOfMonth:
		return "beginning_of_month"
	case LastMonth:
		return "last_month"
	}
	return fmt.Sprintf("time_frame_%d", int(t))
}

// ParseTimeFrame accepts the wire name produced by String.
func ParseTimeFrame(value string) (TimeFrame, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, tf := range timeFrames {
		if tf.String() == normalized {
			return tf, nil
		}
	}
	return BeginningOfDay, fmt.Errorf("unknown time frame %q", value)
}
