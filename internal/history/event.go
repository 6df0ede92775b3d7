// Package history picks the "on this day" event to post and turns it into post text.
package history

// Event is one historical event as returned by the on-this-day feed.
type Event struct {
	Year  int    `json:"year"`
	Text  string `json:"text"`
	Pages []Page `json:"pages"`
}

// Page is a reference page attached to an event. Title is underscore separated
// and becomes the hashtag; NormalizedTitle is the phrase searched for in the text.
type Page struct {
	Title           string `json:"title"`
	NormalizedTitle string `json:"normalizedtitle"`
}
