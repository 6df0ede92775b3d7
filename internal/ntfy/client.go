package ntfy

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client pushes posts to an ntfy topic (ntfy.sh or self-hosted).
type Client struct {
	url   string // full URL: https://ntfy.sh/{topic}
	token string // optional bearer token for reserved topics
	http  *http.Client
	log   *slog.Logger
}

// New creates a client. Topic can be a bare topic name (expanded to
// https://ntfy.sh/{topic}) or a full URL.
func New(topic, token string, log *slog.Logger) *Client {
	url := topic
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		url = "https://ntfy.sh/" + topic
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		url:   url,
		token: token,
		http:  &http.Client{Timeout: 10 * time.Second},
		log:   log.With(slog.String("publisher", "ntfy")),
	}
}

func (c *Client) Name() string { return "ntfy" }

func (c *Client) Publish(ctx context.Context, text string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBufferString(text))
	if err != nil {
		return fmt.Errorf("ntfy: build request: %w", err)
	}
	req.Header.Set("Title", "On this day")
	req.Header.Set("Priority", "default")
	req.Header.Set("Tags", "calendar")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ntfy: post failed: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("ntfy: HTTP %d", resp.StatusCode)
	}

	c.log.Info("notification sent")
	return nil
}
