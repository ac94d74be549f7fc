package planner

import (
	"regexp"
	"time"
)

const isoDateLayout = "2006-01-02"

var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseISODate parses a strict YYYY-MM-DD date, rejecting date-times and
// any other variant time.Parse would otherwise tolerate.
func ParseISODate(s string) (time.Time, error) {
	if !isoDatePattern.MatchString(s) {
		return time.Time{}, newInputError("invalid ISO date %q: expected YYYY-MM-DD", s)
	}
	t, err := time.Parse(isoDateLayout, s)
	if err != nil {
		return time.Time{}, newInputError("invalid ISO date %q: %v", s, err)
	}
	return t, nil
}

// Deadline resolves event_date + (offset_days + grace_days) days.
func Deadline(eventDate time.Time, offsetDays, graceDays int) time.Time {
	return eventDate.AddDate(0, 0, offsetDays+graceDays)
}

// FormatISODate renders a date the same way it was parsed.
func FormatISODate(t time.Time) string {
	return t.Format(isoDateLayout)
}
