package briefing

import (
	"fmt"
	"time"
)

// TimeWindow bounds a briefing run. Start is midnight today and End is
// midnight DaysAhead days later, both in Location. Every comparison against
// the bounds happens in Location, never in a source's native zone.
type TimeWindow struct {
	Start    time.Time
	End      time.Time
	Location *time.Location
}

// NewWindow builds the window covering today through daysAhead days ahead,
// anchored on now as seen from loc.
func NewWindow(now time.Time, loc *time.Location, daysAhead int) (TimeWindow, error) {
	if loc == nil {
		return TimeWindow{}, fmt.Errorf("window: location is required")
	}
	if daysAhead < 0 {
		return TimeWindow{}, fmt.Errorf("window: days ahead must be >= 0, got %d", daysAhead)
	}
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return TimeWindow{
		Start:    start,
		End:      start.AddDate(0, 0, daysAhead),
		Location: loc,
	}, nil
}

// Validate checks the window invariants.
func (w TimeWindow) Validate() error {
	if w.Location == nil {
		return fmt.Errorf("window: location is required")
	}
	if w.End.Before(w.Start) {
		return fmt.Errorf("window: end %s precedes start %s", w.End.Format(time.RFC3339), w.Start.Format(time.RFC3339))
	}
	return nil
}

// ContainsDate reports whether t, converted to the window's zone and
// truncated to a date, falls within [Start, End] inclusive.
func (w TimeWindow) ContainsDate(t time.Time) bool {
	day := dateOf(t.In(w.Location))
	return !day.Before(dateOf(w.Start.In(w.Location))) && !day.After(dateOf(w.End.In(w.Location)))
}

// Today returns the window's first day as a YYYY-MM-DD string.
func (w TimeWindow) Today() string {
	return w.Start.In(w.Location).Format(DateLayout)
}

// PastDays returns n ISO dates ending today, most recent first.
func (w TimeWindow) PastDays(n int) []string {
	if n <= 0 {
		return nil
	}
	days := make([]string, 0, n)
	start := w.Start.In(w.Location)
	for i := 0; i < n; i++ {
		days = append(days, start.AddDate(0, 0, -i).Format(DateLayout))
	}
	return days
}

// DateLayout is the calendar-date format used for fitness keys.
const DateLayout = "2006-01-02"

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
