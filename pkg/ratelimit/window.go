package ratelimit

import (
	"fmt"
	"strings"
	"time"
)

// TimeWindow is a regeneration window expressed as a sum of seconds,
// minutes, hours, and days. All components are non-negative; they are
// additive rather than exclusive, so {Days: 1, Hours: 2} is a 26-hour
// window.
//
// TimeWindow is an immutable value type constructed once from
// configuration.
type TimeWindow struct {
	Seconds int
	Minutes int
	Hours   int
	Days    int
}

// TotalSeconds returns the window length in seconds.
func (w TimeWindow) TotalSeconds() int64 {
	return int64(w.Seconds) + 60*(int64(w.Minutes)+60*(int64(w.Hours)+24*int64(w.Days)))
}

// Duration returns the window length as a time.Duration.
func (w TimeWindow) Duration() time.Duration {
	return time.Duration(w.TotalSeconds()) * time.Second
}

// IsZero reports whether the window totals zero seconds.
func (w TimeWindow) IsZero() bool {
	return w.TotalSeconds() == 0
}

// String pretty-prints the window for student-facing messages, largest
// unit first: "1 day 2 hours", "90 seconds", "1 minute 1 second".
// A zero window prints as "none".
func (w TimeWindow) String() string {
	parts := make([]string, 0, 4)
	for _, c := range []struct {
		value int
		unit  string
	}{
		{w.Days, "day"},
		{w.Hours, "hour"},
		{w.Minutes, "minute"},
		{w.Seconds, "second"},
	} {
		if c.value == 0 {
			continue
		}
		s := fmt.Sprintf("%d %s", c.value, c.unit)
		if c.value != 1 {
			s += "s"
		}
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}
