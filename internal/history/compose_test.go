package history

import (
	"testing"
	"time"
)

func TestEventOfTheDayApollo(t *testing.T) {
	events := []Event{{
		Year:  1969,
		Text:  "Apollo 11 landed on the moon.",
		Pages: []Page{{Title: "Apollo_11", NormalizedTitle: "Apollo_11"}},
	}}
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	got := EventOfTheDay(events, now, true)
	want := "On this day in 1969: #Apollo11 landed on the moon."
	if got != want {
		t.Errorf("EventOfTheDay() = %q, want %q", got, want)
	}

	plain := EventOfTheDay(events, now, false)
	if want := "On this day in 1969: Apollo 11 landed on the moon."; plain != want {
		t.Errorf("EventOfTheDay(no hashtags) = %q, want %q", plain, want)
	}
}

func TestEventOfTheDayEmpty(t *testing.T) {
	now := time.Date(2024, 7, 20, 9, 0, 0, 0, time.UTC)
	for _, events := range [][]Event{nil, {}} {
		if got := EventOfTheDay(events, now, true); got != FallbackMessage {
			t.Errorf("EventOfTheDay(empty) = %q", got)
		}
	}
	if FallbackMessage != "Nothing happened today. Even history needs a break sometimes!" {
		t.Errorf("unexpected fallback %q", FallbackMessage)
	}
}

func TestPickFollowsSelectIndex(t *testing.T) {
	events := []Event{
		{Year: 1, Text: "zero"},
		{Year: 2, Text: "one"},
		{Year: 3, Text: "two"},
	}
	// 2024-02-10 is day 41: (2024 + 41) % 3 = 1.
	now := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)
	e, idx, ok := Pick(events, now)
	if !ok {
		t.Fatal("Pick returned !ok")
	}
	if idx != 1 || e.Text != "one" {
		t.Errorf("Pick = (%q, %d), want (one, 1)", e.Text, idx)
	}

	// Next day moves to the next event.
	_, idx, _ = Pick(events, now.AddDate(0, 0, 1))
	if idx != 2 {
		t.Errorf("next day index = %d, want 2", idx)
	}

	// Same date next year shifts by one as well.
	_, idx, _ = Pick(events, now.AddDate(1, 0, 0))
	if idx != 2 {
		t.Errorf("next year index = %d, want 2", idx)
	}
}

func TestCompose(t *testing.T) {
	e := Event{Year: -44, Text: "ignored"}
	if got := Compose(e, "Caesar is assassinated."); got != "On this day in -44: Caesar is assassinated." {
		t.Errorf("Compose() = %q", got)
	}
}
