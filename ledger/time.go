package ledger

import (
	"time"
)

// FarFuture stands in for a missing end date in overlap checks.
var FarFuture = time.Date(2100, time.December, 31, 0, 0, 0, 0, time.UTC)

// StartOfDay returns 00:00:00.000 of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999 of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// DayRange widens [start, end] to whole calendar days.
func DayRange(start, end time.Time) (time.Time, time.Time) {
	return StartOfDay(start), EndOfDay(end)
}

// ISODate is the UTC calendar date used for daily grouping.
func ISODate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
