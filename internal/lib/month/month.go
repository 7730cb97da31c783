// Package month implements calendar month arithmetic for expiry computation.
package month

import "time"

// Add returns t shifted forward by the given number of months, clamping to
// the last day of the target month instead of rolling over. Jan 31 plus one
// month is Feb 29 in a leap year, not Mar 2 as time.AddDate would produce.
func Add(t time.Time, months int) time.Time {
	year, m, day := t.Date()
	hour, minute, sec := t.Clock()

	firstOfTarget := time.Date(year, m+time.Month(months), 1, hour, minute, sec, t.Nanosecond(), t.Location())
	if last := lastDay(firstOfTarget.Year(), firstOfTarget.Month()); day > last {
		day = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}

// lastDay returns the number of days in the given month.
func lastDay(year int, m time.Month) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
