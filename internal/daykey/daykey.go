// Package daykey converts wall-clock instants into logical day labels.
// A day does not start at midnight: it starts at ResetHour, so anything
// logged between 00:00 and 03:59 still belongs to the previous day.
package daykey

import "time"

// ResetHour is the local hour at which a new logical day begins.
const ResetHour = 4

// Key returns the day-key for the given instant, formatted YYYY-MM-DD.
// The instant is shifted back by ResetHour hours of literal wall-clock time
// before taking the local date portion. The shift is a fixed duration, not a
// timezone-aware calculation, so a DST transition inside the shifted window
// can move the boundary by an hour. That imprecision is accepted.
func Key(t time.Time) string {
	return t.Add(-ResetHour * time.Hour).Format("2006-01-02")
}
