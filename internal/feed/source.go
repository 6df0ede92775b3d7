// Package feed fetches "on this day" events from Wikipedia.
package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/deusflow/historybot/internal/history"
)

// Source returns the events for a calendar day.
type Source interface {
	Events(ctx context.Context, month time.Month, day int) ([]history.Event, error)
	Name() string
}

// httpGetter is the shared GET used by the sources.
type httpGetter struct {
	client    *http.Client
	userAgent string
	accept    string
	log       *slog.Logger
}

func (g *httpGetter) get(ctx context.Context, url string) (io.ReadCloser, error) {
	log := g.log.With(slog.String("url", url))
	log.Debug("fetching feed")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for url %s: %w", url, err)
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}
	if g.accept != "" {
		req.Header.Set("Accept", g.accept)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		log.Error("feed request failed", slog.Any("error", err))
		return nil, fmt.Errorf("failed to fetch url %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		log.Error("unexpected status code", slog.Int("status_code", resp.StatusCode))
		return nil, fmt.Errorf("unexpected status code %d for url %s", resp.StatusCode, url)
	}
	return resp.Body, nil
}

func newGetter(client *http.Client, userAgent, accept string, log *slog.Logger) *httpGetter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = slog.Default()
	}
	return &httpGetter{client: client, userAgent: userAgent, accept: accept, log: log}
}
