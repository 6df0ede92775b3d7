package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/deusflow/historybot/internal/history"
)

// FeaturedSource reads the "Selected anniversaries" Atom feed that Wikipedia
// publishes for its main page and scrapes the events out of each entry.
type FeaturedSource struct {
	feedURL string
	getter  *httpGetter
	parser  *gofeed.Parser
	log     *slog.Logger
}

// "1969 – Apollo 11 ...", "44 BC – ...". Wikipedia uses an en dash but hyphens
// and em dashes show up in other languages.
var leadingYear = regexp.MustCompile(`^(\d{1,4})(?:\s*(BC|BCE|AD|CE))?\s*[–—-]\s*(.+)$`)

func NewFeaturedSource(feedURL, lang, userAgent string, client *http.Client, log *slog.Logger) *FeaturedSource {
	if feedURL == "" {
		if lang == "" {
			lang = "en"
		}
		feedURL = fmt.Sprintf("https://%s.wikipedia.org/w/api.php?action=featuredfeed&feed=onthisday&feedformat=atom", lang)
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "feed-featured"))
	return &FeaturedSource{
		feedURL: feedURL,
		getter:  newGetter(client, userAgent, "application/atom+xml", log),
		parser:  gofeed.NewParser(),
		log:     log,
	}
}

func (s *FeaturedSource) Name() string { return "featured" }

func (s *FeaturedSource) Events(ctx context.Context, month time.Month, day int) ([]history.Event, error) {
	body, err := s.getter.get(ctx, s.feedURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	feed, err := s.parser.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse featured feed: %w", err)
	}

	item := pickItem(feed.Items, month, day)
	if item == nil {
		s.log.Warn("featured feed has no entries")
		return nil, nil
	}

	content := item.Content
	if content == "" {
		content = item.Description
	}
	events, err := parseEventList(content)
	if err != nil {
		return nil, err
	}
	s.log.Debug("parsed featured entry",
		slog.String("title", item.Title),
		slog.Int("events", len(events)),
	)
	return events, nil
}

// pickItem returns the entry dated month/day, or the newest entry when the feed
// does not carry that day.
func pickItem(items []*gofeed.Item, month time.Month, day int) *gofeed.Item {
	var newest *gofeed.Item
	var newestAt time.Time
	for _, it := range items {
		at := itemTime(it)
		if at == nil {
			if newest == nil {
				newest = it
			}
			continue
		}
		if at.Month() == month && at.Day() == day {
			return it
		}
		if newest == nil || at.After(newestAt) {
			newest = it
			newestAt = *at
		}
	}
	return newest
}

func itemTime(it *gofeed.Item) *time.Time {
	if it.PublishedParsed != nil {
		return it.PublishedParsed
	}
	return it.UpdatedParsed
}

// parseEventList turns the list items of an entry into events. Items that do
// not start with a year (births, deaths, "more anniversaries") are skipped.
func parseEventList(content string) ([]history.Event, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse entry html: %w", err)
	}

	var events []history.Event
	doc.Find("li").Each(func(i int, li *goquery.Selection) {
		text := strings.Join(strings.Fields(li.Text()), " ")
		m := leadingYear.FindStringSubmatch(text)
		if m == nil {
			return
		}
		year, err := strconv.Atoi(m[1])
		if err != nil {
			return
		}
		if m[2] == "BC" || m[2] == "BCE" {
			year = -year
		}

		ev := history.Event{Year: year, Text: m[3]}
		yearLabel := strings.TrimSpace(m[1] + " " + m[2])
		li.Find("a[href]").Each(func(j int, a *goquery.Selection) {
			if label := strings.TrimSpace(a.Text()); label == m[1] || label == yearLabel {
				return
			}
			href, _ := a.Attr("href")
			title, ok := wikiTitle(href)
			if !ok {
				return
			}
			normalized, _ := a.Attr("title")
			if normalized == "" {
				normalized = strings.ReplaceAll(title, "_", " ")
			}
			ev.Pages = append(ev.Pages, history.Page{Title: title, NormalizedTitle: normalized})
		})
		events = append(events, ev)
	})
	return events, nil
}

// wikiTitle extracts the underscored article title from an article link.
func wikiTitle(href string) (string, bool) {
	idx := strings.Index(href, "/wiki/")
	if idx < 0 {
		return "", false
	}
	raw := href[idx+len("/wiki/"):]
	if cut := strings.IndexAny(raw, "#?"); cut >= 0 {
		raw = raw[:cut]
	}
	title, err := url.PathUnescape(raw)
	if err != nil {
		title = raw
	}
	if title == "" {
		return "", false
	}
	if ns, _, found := strings.Cut(title, ":"); found && nonArticleNamespaces[ns] {
		return "", false
	}
	return title, true
}

var nonArticleNamespaces = map[string]bool{
	"Special": true, "File": true, "Image": true, "Help": true, "Category": true,
	"Portal": true, "Template": true, "Wikipedia": true, "Talk": true,
}
