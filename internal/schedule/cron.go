// Package schedule runs the daily post on a cron expression.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Schedule is a parsed 5-field cron expression. Each field is a bitmask of
// allowed values.
type Schedule struct {
	minute, hour, dom, month, dow uint64

	// cron semantics: when both day fields are restricted a day matches if
	// either of them does
	domRestricted, dowRestricted bool
}

var descriptors = map[string]string{
	"@yearly":   "0 0 1 1 *",
	"@annually": "0 0 1 1 *",
	"@monthly":  "0 0 1 * *",
	"@weekly":   "0 0 * * 0",
	"@daily":    "0 0 * * *",
	"@midnight": "0 0 * * *",
	"@hourly":   "0 * * * *",
}

// Parse accepts "minute hour day-of-month month day-of-week" with *, lists,
// ranges and steps, or one of the @daily style shorthands. Day-of-week 7 is
// Sunday, like 0.
func Parse(expr string) (*Schedule, error) {
	expr = strings.TrimSpace(expr)
	if d, ok := descriptors[strings.ToLower(expr)]; ok {
		expr = d
	}
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron: expected 5 fields, got %d", len(fields))
	}

	s := &Schedule{}
	specs := []struct {
		name     string
		dst      *uint64
		min, max int
	}{
		{"minute", &s.minute, 0, 59},
		{"hour", &s.hour, 0, 23},
		{"day-of-month", &s.dom, 1, 31},
		{"month", &s.month, 1, 12},
		{"day-of-week", &s.dow, 0, 7},
	}
	for i, spec := range specs {
		bits, err := parseField(fields[i], spec.min, spec.max)
		if err != nil {
			return nil, fmt.Errorf("cron: %s: %w", spec.name, err)
		}
		*spec.dst = bits
	}
	if s.dow&(1<<7) != 0 {
		s.dow |= 1
		s.dow &^= 1 << 7
	}
	s.domRestricted = !strings.HasPrefix(fields[2], "*")
	s.dowRestricted = !strings.HasPrefix(fields[4], "*")
	return s, nil
}

// Next returns the first fire time strictly after from, in from's location.
// It returns the zero time if nothing matches within five years (e.g. Feb 30).
func (s *Schedule) Next(from time.Time) time.Time {
	loc := from.Location()
	t := from.Truncate(time.Minute).Add(time.Minute)
	limit := t.AddDate(5, 0, 0)

	for t.Before(limit) {
		if !has(s.month, int(t.Month())) {
			t = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, loc)
			continue
		}
		if !s.dayMatches(t) {
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
			continue
		}
		if !has(s.hour, t.Hour()) {
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, loc)
			continue
		}
		if !has(s.minute, t.Minute()) {
			t = t.Add(time.Minute)
			continue
		}
		return t
	}
	return time.Time{}
}

func (s *Schedule) dayMatches(t time.Time) bool {
	dom := has(s.dom, t.Day())
	dow := has(s.dow, int(t.Weekday()))
	if s.domRestricted && s.dowRestricted {
		return dom || dow
	}
	return dom && dow
}

func has(bits uint64, v int) bool {
	return bits&(1<<uint(v)) != 0
}

func parseField(field string, min, max int) (uint64, error) {
	var bits uint64
	for _, part := range strings.Split(field, ",") {
		b, err := parseRange(part, min, max)
		if err != nil {
			return 0, err
		}
		bits |= b
	}
	if bits == 0 {
		return 0, fmt.Errorf("empty field")
	}
	return bits, nil
}

// parseRange handles "*", "N", "A-B" and any of those followed by "/step".
func parseRange(part string, min, max int) (uint64, error) {
	rng, stepStr, hasStep := strings.Cut(part, "/")
	step := 1
	if hasStep {
		n, err := strconv.Atoi(stepStr)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid step %q", stepStr)
		}
		step = n
	}

	var low, high int
	switch {
	case rng == "*":
		low, high = min, max
	case strings.Contains(rng, "-"):
		a, b, _ := strings.Cut(rng, "-")
		var err error
		if low, err = strconv.Atoi(a); err != nil {
			return 0, fmt.Errorf("invalid range start %q", a)
		}
		if high, err = strconv.Atoi(b); err != nil {
			return 0, fmt.Errorf("invalid range end %q", b)
		}
	default:
		v, err := strconv.Atoi(rng)
		if err != nil {
			return 0, fmt.Errorf("invalid value %q", rng)
		}
		low, high = v, v
		if hasStep {
			high = max
		}
	}

	if low < min || high > max || low > high {
		return 0, fmt.Errorf("range %d-%d out of bounds [%d, %d]", low, high, min, max)
	}

	var bits uint64
	for v := low; v <= high; v += step {
		bits |= 1 << uint(v)
	}
	return bits, nil
}
