package strategy

import "time"

// ExpiryFunc returns the instant at which insights emitted at now expire.
type ExpiryFunc func(now time.Time) time.Time

// EndOfDay returns midnight following t, in t's location.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
}

// EndOfMonth returns the first instant of the month following t, in t's location.
func EndOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
}

// MonthKey identifies the calendar month of t.
func MonthKey(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}
