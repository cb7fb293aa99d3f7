package core

import "time"

// CurrentPeriod returns the live period window containing now, in UTC.
// Monthly windows run from the first to the last instant of the calendar month,
// yearly windows from Jan 1 to the last instant of Dec 31.
func CurrentPeriod(p Period, now time.Time) (start, end time.Time) {
	now = now.UTC()
	switch p {
	case Yearly:
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(1, 0, 0).Add(-time.Nanosecond)
	default:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	}
	return start, end
}

// InWindow reports whether t falls within [start, end].
func InWindow(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

// NormalizeDate converts a transaction date to the precision every store keeps.
func NormalizeDate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// NewDate creates a UTC midnight date from year, month, day.
func NewDate(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// LastDayOfMonth returns the number of days in the month containing t.
func LastDayOfMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
