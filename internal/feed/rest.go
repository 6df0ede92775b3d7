package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/deusflow/historybot/internal/history"
)

// RESTSource reads the Wikimedia REST "onthisday" events endpoint.
type RESTSource struct {
	baseURL string
	getter  *httpGetter
}

type restResponse struct {
	Events []history.Event `json:"events"`
}

// NewRESTSource builds a source for baseURL, e.g. https://en.wikipedia.org/api/rest_v1.
// An empty baseURL is derived from lang.
func NewRESTSource(baseURL, lang, userAgent string, client *http.Client, log *slog.Logger) *RESTSource {
	if baseURL == "" {
		if lang == "" {
			lang = "en"
		}
		baseURL = fmt.Sprintf("https://%s.wikipedia.org/api/rest_v1", lang)
	}
	if log == nil {
		log = slog.Default()
	}
	return &RESTSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		getter:  newGetter(client, userAgent, "application/json", log.With(slog.String("component", "feed-rest"))),
	}
}

func (s *RESTSource) Name() string { return "rest" }

func (s *RESTSource) Events(ctx context.Context, month time.Month, day int) ([]history.Event, error) {
	url := fmt.Sprintf("%s/feed/onthisday/events/%02d/%02d", s.baseURL, int(month), day)

	body, err := s.getter.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var resp restResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode onthisday response: %w", err)
	}
	return resp.Events, nil
}
