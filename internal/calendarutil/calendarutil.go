// Package calendarutil provides the small set of date helpers the
// snapshot/valuation pipeline shares: parsing the wire date format and
// iterating a range inclusive of both ends. The teacher has no equivalent
// package; this follows its plain-function style.
package calendarutil

import (
	"fmt"
	"time"
)

// DateLayout is the YYYY-MM-DD wire format used by CSV import and the
// HTTP query parameters.
const DateLayout = "2006-01-02"

// ParseDate parses s as a UTC-truncated calendar day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t.UTC(), nil
}

// TruncateDay zeroes t's time-of-day component in UTC.
func TruncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns every calendar day from start to end, inclusive of
// both ends. Returns nil if end is before start.
func DaysBetween(start, end time.Time) []time.Time {
	start, end = TruncateDay(start), TruncateDay(end)
	if end.Before(start) {
		return nil
	}
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
