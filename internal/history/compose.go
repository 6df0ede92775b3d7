package history

import (
	"fmt"
	"time"
)

// FallbackMessage is posted when the feed has no events for the day.
const FallbackMessage = "Nothing happened today. Even history needs a break sometimes!"

// Compose formats the post for e using text as its body.
func Compose(e Event, text string) string {
	return fmt.Sprintf("On this day in %d: %s", e.Year, text)
}

// Pick returns the event selected for now together with its index.
// ok is false when events is empty.
func Pick(events []Event, now time.Time) (e Event, idx int, ok bool) {
	idx, err := SelectIndex(len(events), now.Year(), DayOfYear(now))
	if err != nil {
		return Event{}, 0, false
	}
	return events[idx], idx, true
}

// Render composes the post for an already selected event.
func Render(e Event, withHashtags bool) string {
	text := e.Text
	if withHashtags {
		text = Annotate(e.Text, e.Pages)
	}
	return Compose(e, text)
}

// EventOfTheDay selects today's event and returns the post text, or
// FallbackMessage when events is empty.
func EventOfTheDay(events []Event, now time.Time, withHashtags bool) string {
	e, _, ok := Pick(events, now)
	if !ok {
		return FallbackMessage
	}
	return Render(e, withHashtags)
}
