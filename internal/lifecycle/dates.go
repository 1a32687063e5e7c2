package lifecycle

import "time"

// AddCalendarMonths adds n calendar months to t. When the day of month does
// not exist in the target month it is clamped to that month's last day, so
// Jan 31 + 1 month is Feb 28 (Feb 29 in leap years).
func AddCalendarMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); d > last {
		d = last
	}
	hh, mm, ss := t.Clock()
	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

// MonthsBetween returns the number of whole calendar months from start to
// end under the same clamping rule, so
// MonthsBetween(s, AddCalendarMonths(s, n)) == n for every n >= 0.
func MonthsBetween(start, end time.Time) int {
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if AddCalendarMonths(start, months).After(end) {
		months--
	}
	return months
}

func daysIn(y int, m time.Month, loc *time.Location) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, loc).Day()
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}
