package history

import (
	"errors"
	"time"
)

// msPerDay is the fixed day length used for day-of-year. It ignores DST, so on
// the day after a spring-forward transition the result can lag by one.
const msPerDay = 1000 * 60 * 60 * 24

// ErrNoEvents is returned by SelectIndex when there is nothing to select from.
var ErrNoEvents = errors.New("history: event count must be positive")

// SelectIndex returns (year + dayOfYear) mod eventCount.
// The same date picks a different event every year while staying reproducible.
func SelectIndex(eventCount, year, dayOfYear int) (int, error) {
	if eventCount <= 0 {
		return 0, ErrNoEvents
	}
	idx := (year + dayOfYear) % eventCount
	if idx < 0 {
		idx += eventCount
	}
	return idx, nil
}

// DayOfYear counts whole days between local midnight of Dec 31 of the previous
// year and t. Jan 1 is day 1, Dec 31 of a leap year is day 366.
func DayOfYear(t time.Time) int {
	start := time.Date(t.Year(), time.January, 0, 0, 0, 0, 0, t.Location())
	return int(t.Sub(start).Milliseconds() / msPerDay)
}
