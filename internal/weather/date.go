package weather

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts are tried in order when parsing user supplied dates.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"01/02/2006",
	"02-01-2006",
	"02 Jan 2006",
	"2006/01/02",
}

// ParseDate parses a calendar date in any of the supported layouts and returns it as
// midnight UTC. An empty string yields the zero time (current conditions).
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.IsZero() {
			return time.Time{}, fmt.Errorf("%w: %q is not a usable date", ErrUnsupportedDate, s)
		}
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized date %q, use YYYY-MM-DD", ErrUnsupportedDate, s)
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a date the way providers expect it on the wire.
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
