package history

import (
	"errors"
	"testing"
	"time"
)

func TestSelectIndexInRange(t *testing.T) {
	for n := 1; n <= 40; n++ {
		for _, year := range []int{-500, 0, 1969, 2024, 2025, 9999} {
			for day := 0; day <= 366; day++ {
				idx, err := SelectIndex(n, year, day)
				if err != nil {
					t.Fatalf("SelectIndex(%d, %d, %d) error: %v", n, year, day, err)
				}
				if idx < 0 || idx >= n {
					t.Fatalf("SelectIndex(%d, %d, %d) = %d, out of range", n, year, day, idx)
				}
			}
		}
	}
}

func TestSelectIndexFormula(t *testing.T) {
	tests := []struct {
		n, year, day int
		want         int
	}{
		{1, 2024, 1, 0},
		{5, 2024, 0, 4},
		{5, 2029, 0, 4},
		{7, 2024, 100, (2024 + 100) % 7},
		{3, -500, 10, 2},
	}
	for _, tt := range tests {
		got, err := SelectIndex(tt.n, tt.year, tt.day)
		if err != nil {
			t.Fatalf("SelectIndex(%d, %d, %d) error: %v", tt.n, tt.year, tt.day, err)
		}
		if got != tt.want {
			t.Errorf("SelectIndex(%d, %d, %d) = %d, want %d", tt.n, tt.year, tt.day, got, tt.want)
		}
	}
}

func TestSelectIndexPeriodicAcrossYears(t *testing.T) {
	for n := 1; n <= 12; n++ {
		for day := 0; day < 366; day += 17 {
			a, _ := SelectIndex(n, 2024, day)
			b, _ := SelectIndex(n, 2024+n, day)
			if a != b {
				t.Errorf("n=%d day=%d: %d != %d", n, day, a, b)
			}
		}
	}
}

func TestSelectIndexRoundRobinWithinYear(t *testing.T) {
	prev, _ := SelectIndex(3, 2024, 1)
	for day := 2; day <= 366; day++ {
		got, _ := SelectIndex(3, 2024, day)
		if want := (prev + 1) % 3; got != want {
			t.Fatalf("day %d: index %d, want %d", day, got, want)
		}
		prev = got
	}
}

func TestSelectIndexRejectsEmpty(t *testing.T) {
	for _, n := range []int{0, -1, -10} {
		if _, err := SelectIndex(n, 2024, 1); !errors.Is(err, ErrNoEvents) {
			t.Errorf("SelectIndex(%d) err = %v, want ErrNoEvents", n, err)
		}
	}
}

func TestDayOfYear(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want int
	}{
		{"jan 1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 1},
		{"jan 1 evening", time.Date(2025, 1, 1, 23, 59, 0, 0, time.UTC), 1},
		{"feb 29 leap", time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC), 60},
		{"mar 1 leap", time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), 61},
		{"mar 1 common", time.Date(2023, 3, 1, 8, 0, 0, 0, time.UTC), 60},
		{"dec 31 leap", time.Date(2024, 12, 31, 12, 0, 0, 0, time.UTC), 366},
		{"dec 31 common", time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC), 365},
	}
	for _, tt := range tests {
		if got := DayOfYear(tt.t); got != tt.want {
			t.Errorf("%s: DayOfYear = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestDayOfYearUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	// 2024-01-01 05:00 local is still 2023-12-31 in UTC.
	local := time.Date(2024, 1, 1, 5, 0, 0, 0, loc)
	if got := DayOfYear(local); got != 1 {
		t.Errorf("local DayOfYear = %d, want 1", got)
	}
	if got := DayOfYear(local.UTC()); got != 365 {
		t.Errorf("utc DayOfYear = %d, want 365", got)
	}
}

// DayOfYear divides by a fixed 24h day, so right after a spring-forward
// transition the count lags one day until the lost hour is made up.
func TestDayOfYearSpringForwardLag(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}
	tests := []struct {
		t    time.Time
		want int
	}{
		{time.Date(2024, 3, 10, 0, 30, 0, 0, loc), 70},
		{time.Date(2024, 3, 11, 0, 30, 0, 0, loc), 70}, // calendar day 71
		{time.Date(2024, 3, 11, 1, 30, 0, 0, loc), 71},
		{time.Date(2024, 3, 11, 0, 30, 0, 0, time.UTC), 71},
	}
	for _, tt := range tests {
		if got := DayOfYear(tt.t); got != tt.want {
			t.Errorf("DayOfYear(%s) = %d, want %d", tt.t, got, tt.want)
		}
	}
}
