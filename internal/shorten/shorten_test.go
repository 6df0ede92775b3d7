package shorten

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/historybot/internal/ratelimit"
)

type fakeShortener struct {
	out   string
	err   error
	calls int
	gotIn string
	gotN  int
}

func (f *fakeShortener) Name() string { return "fake" }

func (f *fakeShortener) Shorten(ctx context.Context, text string, maxRunes int) (string, error) {
	f.calls++
	f.gotIn = text
	f.gotN = maxRunes
	return f.out, f.err
}

const longPost = "On this day in 1969: #Apollo11 astronauts landed on the Moon after a long and storied journey across space"

func TestFitWithinLimit(t *testing.T) {
	f := &fakeShortener{}
	out, changed := Fit(context.Background(), "On this day in 1969: short", 280, f, nil, nil)
	assert.Equal(t, "On this day in 1969: short", out)
	assert.False(t, changed)
	assert.Zero(t, f.calls)

	out, changed = Fit(context.Background(), longPost, 0, f, nil, nil)
	assert.Equal(t, longPost, out)
	assert.False(t, changed)
}

func TestFitUsesShortener(t *testing.T) {
	f := &fakeShortener{out: "#Apollo11 crew landed on the Moon."}
	out, changed := Fit(context.Background(), longPost, 60, f, nil, nil)

	require.True(t, changed)
	assert.Equal(t, "On this day in 1969: #Apollo11 crew landed on the Moon.", out)
	assert.Equal(t, strings.TrimPrefix(longPost, "On this day in 1969: "), f.gotIn)
	assert.Equal(t, 60-utf8.RuneCountInString("On this day in 1969: "), f.gotN)
}

func TestFitFallsBackToTruncate(t *testing.T) {
	tests := []struct {
		name string
		f    *fakeShortener
	}{
		{"error", &fakeShortener{err: errors.New("quota")}},
		{"dropped hashtag", &fakeShortener{out: "Crew landed on the Moon."}},
		{"still too long", &fakeShortener{out: "#Apollo11 " + strings.Repeat("x", 100)}},
		{"empty", &fakeShortener{out: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, changed := Fit(context.Background(), longPost, 60, tt.f, nil, nil)
			assert.True(t, changed)
			assert.Equal(t, Truncate(longPost, 60), out)
		})
	}

	out, _ := Fit(context.Background(), longPost, 60, nil, nil, nil)
	assert.Equal(t, Truncate(longPost, 60), out)
}

func TestFitRespectsBudget(t *testing.T) {
	budget := ratelimit.NewDailyBudget(map[string]int{"fake": 1}, 0, nil)
	f := &fakeShortener{out: "#Apollo11 crew landed."}

	Fit(context.Background(), longPost, 60, f, budget, nil)
	out, _ := Fit(context.Background(), longPost, 60, f, budget, nil)

	assert.Equal(t, 1, f.calls)
	assert.Equal(t, Truncate(longPost, 60), out)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"fits", "hello world", 20, "hello world"},
		{"word boundary", "hello wonderful world", 15, "hello…"},
		{"no limit", "hello", 0, "hello"},
		{"single rune", "hello", 1, "…"},
		{"long word", "abcdefghijklmnop", 6, "abcde…"},
		{"multibyte", "Ünïcödé wörds här", 10, "Ünïcödé…"},
		{"trailing punctuation", "one, two, three", 6, "one…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.in, tt.max)
			assert.Equal(t, tt.want, got)
			if tt.max > 0 {
				assert.LessOrEqual(t, utf8.RuneCountInString(got), tt.max)
			}
		})
	}
}

func TestCleanResponse(t *testing.T) {
	assert.Equal(t, "short text", cleanResponse("  \"short\n text\"  "))
	assert.Equal(t, "#Apollo11 landed", cleanResponse("`#Apollo11 landed`"))
}

func TestOpenAIShorten(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotModel = req.Model
		if assert.Len(t, req.Messages, 1) {
			assert.Contains(t, req.Messages[0].Content, "at most 42 characters")
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"\"#Apollo11 crew landed.\""},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer srv.Close()

	o := NewOpenAI("test-key", "", srv.URL+"/v1")
	out, err := o.Shorten(context.Background(), "#Apollo11 astronauts landed on the Moon.", 42)
	require.NoError(t, err)
	assert.Equal(t, "#Apollo11 crew landed.", out)
	assert.Equal(t, "gpt-4o-mini", gotModel)
}
