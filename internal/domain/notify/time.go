// Package notify holds the pure, dependency-free time, dedupe-key, and
// email-rendering helpers shared by the reminder scanner and outbox
// dispatcher.
package notify

import "time"

// BerlinLocation is the anchor timezone for the notification send
// window. Loaded once at package init; falls back to UTC if the tzdata
// database is unavailable (should not happen in a normal deployment,
// but a panic here would take down the whole process at import time).
var BerlinLocation = mustLoadBerlin()

func mustLoadBerlin() *time.Location {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		return time.UTC
	}
	return loc
}

// QuietHoursStart and QuietHoursEnd bound the local send window,
// inclusive on both ends.
var (
	QuietHoursStart = time.Date(0, 1, 1, 8, 0, 0, 0, time.UTC)
	QuietHoursEnd   = time.Date(0, 1, 1, 20, 0, 0, 0, time.UTC)
)

// NowBerlin returns the current instant rendered in Europe/Berlin.
func NowBerlin() time.Time {
	return time.Now().In(BerlinLocation)
}

// IsWithinSendWindow reports whether dt, converted to Berlin local
// time, falls within [08:00, 20:00].
func IsWithinSendWindow(dt time.Time) bool {
	local := dt.In(BerlinLocation)
	t := clockOf(local)
	return !t.Before(QuietHoursStart) && !t.After(QuietHoursEnd)
}

// NextSendWindowStart returns the next instant (in dt's original
// location) at which the Berlin-local send window opens. If dt is
// already before today's window, that is today's 08:00; otherwise
// it's tomorrow's 08:00.
func NextSendWindowStart(dt time.Time) time.Time {
	local := dt.In(BerlinLocation)
	if clockOf(local).Before(QuietHoursStart) {
		return atClock(local, QuietHoursStart).In(dt.Location())
	}
	return atClock(local.AddDate(0, 0, 1), QuietHoursStart).In(dt.Location())
}

// DueSoonWindow returns the [today, today+3d] ISO-8601 date bounds
// (Berlin-local) used to select tasks that are due soon.
func DueSoonWindow(dt time.Time) (start, end string) {
	local := dt.In(BerlinLocation)
	today := truncateToDate(local)
	return today.Format("2006-01-02"), today.AddDate(0, 0, 3).Format("2006-01-02")
}

func clockOf(t time.Time) time.Time {
	return time.Date(0, 1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func atClock(day time.Time, clock time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, day.Location())
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
