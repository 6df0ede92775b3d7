// Package twitter posts tweets through the v2 API with OAuth 1.0a user tokens.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
)

const (
	defaultBaseURL = "https://api.twitter.com"
	defaultTimeout = 30 * time.Second
)

type Credentials struct {
	APIKey            string
	APIKeySecret      string
	AccessToken       string
	AccessTokenSecret string
}

type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

type tweetRequest struct {
	Text string `json:"text"`
}

type tweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// New returns a client that signs every request with creds. An empty baseURL
// means the public API; timeout <= 0 means 30s.
func New(creds Credentials, baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	cfg := oauth1.NewConfig(creds.APIKey, creds.APIKeySecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret)
	// oauth1 only takes the transport from the context client, so set Timeout
	// on the signing client itself.
	httpClient := cfg.Client(oauth1.NoContext, token)
	httpClient.Timeout = timeout
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     log.With(slog.String("publisher", "twitter")),
	}
}

func (c *Client) Name() string { return "twitter" }

// Publish creates one tweet. It makes a single attempt.
func (c *Client) Publish(ctx context.Context, text string) error {
	body, err := json.Marshal(tweetRequest{Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal tweet: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build tweet request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post tweet: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("twitter API error: status %d: %s", resp.StatusCode, snippet(raw))
	}

	var tr tweetResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		c.log.Warn("unexpected tweet response", slog.Any("error", err))
	}
	c.log.Info("tweet posted", slog.String("tweet_id", tr.Data.ID))
	return nil
}

func snippet(b []byte) string {
	s := strings.Join(strings.Fields(string(b)), " ")
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
