// Package shorten makes composed posts fit a platform's length limit.
package shorten

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/deusflow/historybot/internal/ratelimit"
)

const ellipsis = "…"

// Shortener rewrites text so that it is at most maxRunes long.
type Shortener interface {
	Shorten(ctx context.Context, text string, maxRunes int) (string, error)
	Name() string
}

var (
	postPrefix = regexp.MustCompile(`^On this day in -?\d+: `)
	hashtagRe  = regexp.MustCompile(`#[\p{L}\p{N}_]+`)
)

// Fit returns post unchanged when it already fits (or maxRunes <= 0). Otherwise
// it asks s for a shorter event text, keeping the date prefix, and falls back to
// Truncate when s is nil, over budget, fails, drops a hashtag or is still too long.
// The bool reports whether the post was changed.
func Fit(ctx context.Context, post string, maxRunes int, s Shortener, budget *ratelimit.DailyBudget, log *slog.Logger) (string, bool) {
	if maxRunes <= 0 || utf8.RuneCountInString(post) <= maxRunes {
		return post, false
	}
	if log == nil {
		log = slog.Default()
	}

	if s != nil {
		if out, err := shortenBody(ctx, post, maxRunes, s, budget); err != nil {
			log.Warn("shortener failed, truncating",
				slog.String("shortener", s.Name()),
				slog.Any("error", err),
			)
		} else {
			log.Info("post shortened",
				slog.String("shortener", s.Name()),
				slog.Int("from", utf8.RuneCountInString(post)),
				slog.Int("to", utf8.RuneCountInString(out)),
			)
			return out, true
		}
	}
	return Truncate(post, maxRunes), true
}

func shortenBody(ctx context.Context, post string, maxRunes int, s Shortener, budget *ratelimit.DailyBudget) (string, error) {
	prefix := postPrefix.FindString(post)
	body := strings.TrimPrefix(post, prefix)
	room := maxRunes - utf8.RuneCountInString(prefix)
	if room <= 0 {
		return "", fmt.Errorf("no room left after prefix %q", prefix)
	}

	if budget != nil {
		if err := budget.Use(s.Name()); err != nil {
			return "", err
		}
	}

	short, err := s.Shorten(ctx, body, room)
	if err != nil {
		return "", err
	}
	short = strings.TrimSpace(short)
	if short == "" {
		return "", fmt.Errorf("empty response")
	}
	for _, tag := range hashtagRe.FindAllString(body, -1) {
		if !strings.Contains(short, tag) {
			return "", fmt.Errorf("response dropped hashtag %s", tag)
		}
	}

	out := prefix + short
	if n := utf8.RuneCountInString(out); n > maxRunes {
		return "", fmt.Errorf("response still too long (%d > %d)", n, maxRunes)
	}
	return out, nil
}

// Truncate cuts text to at most maxRunes runes, preferring a word boundary, and
// marks the cut with an ellipsis.
func Truncate(text string, maxRunes int) string {
	runes := []rune(text)
	if maxRunes <= 0 || len(runes) <= maxRunes {
		return text
	}
	if maxRunes == 1 {
		return ellipsis
	}

	cut := runes[:maxRunes-1]
	for i := len(cut) - 1; i > 0; i-- {
		if unicode.IsSpace(cut[i]) {
			cut = cut[:i]
			break
		}
	}
	trimmed := strings.TrimRightFunc(string(cut), func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';' || r == ':' || r == '-'
	})
	return trimmed + ellipsis
}

func prompt(text string, maxRunes int) string {
	return fmt.Sprintf(`Shorten the following historical event so that it is at most %d characters long.
Keep every hashtag (words starting with #) exactly as written.
Keep the facts, do not add commentary, quotes or new hashtags.
Answer with the shortened text only.

Text:
%s`, maxRunes, text)
}

// cleanResponse strips wrapping quotes and collapses whitespace in model output.
func cleanResponse(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, "\"'`“”")
	return strings.TrimSpace(s)
}
