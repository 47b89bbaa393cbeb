package market

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and display format for trading days.
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts YYYY-MM-DD or RFC3339 and returns the UTC day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		t2, err2 := time.Parse(time.RFC3339, s)
		if err2 != nil {
			return time.Time{}, fmt.Errorf("bad date %q: %w", s, err)
		}
		t = t2
	}
	return Day(t), nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// InRange reports whether t's day lies in [start, end]. Zero bounds are open.
func InRange(t, start, end time.Time) bool {
	d := Day(t)
	if !start.IsZero() && d.Before(Day(start)) {
		return false
	}
	if !end.IsZero() && d.After(Day(end)) {
		return false
	}
	return true
}
