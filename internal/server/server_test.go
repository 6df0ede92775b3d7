package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/assert/v2"

	"github.com/deusflow/historybot/internal/app"
	"github.com/deusflow/historybot/internal/metrics"
	"github.com/deusflow/historybot/internal/storage"
)

type fakeBot struct {
	mu       sync.Mutex
	posts    []string
	postErr  error
	previews []time.Time
	entries  []storage.Entry
	limit    int
	done     chan struct{}
}

func (f *fakeBot) Post(ctx context.Context, trigger string) (*app.Result, error) {
	f.mu.Lock()
	f.posts = append(f.posts, trigger)
	err := f.postErr
	f.mu.Unlock()
	if f.done != nil {
		f.done <- struct{}{}
	}
	if err != nil {
		return nil, err
	}
	return &app.Result{Day: "2024-07-20", Text: "On this day in 1969: #Apollo11", Published: []string{"stdout"}}, nil
}

func (f *fakeBot) Preview(ctx context.Context) *app.Result {
	return &app.Result{Day: "2024-07-20", Text: "preview"}
}

func (f *fakeBot) PreviewAt(ctx context.Context, t time.Time) *app.Result {
	f.mu.Lock()
	f.previews = append(f.previews, t)
	f.mu.Unlock()
	return &app.Result{Day: t.Format("2006-01-02"), Text: "preview"}
}

func (f *fakeBot) Recent(ctx context.Context, limit int) ([]storage.Entry, error) {
	f.limit = limit
	return f.entries, nil
}

func newTestServer(bot Bot, rpm int) (*Server, *metrics.Metrics) {
	gin.SetMode(gin.TestMode)
	m := metrics.New()
	return New(bot, Options{RatePerMinute: rpm, Metrics: m, Location: time.UTC}), m
}

func do(s *Server, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestGetPostRunsInBackground(t *testing.T) {
	bot := &fakeBot{done: make(chan struct{}, 1)}
	s, _ := newTestServer(bot, 0)

	w := do(s, "/post")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, runningMessage, w.Body.String())
	assert.NotEqual(t, "", w.Header().Get(requestIDHeader))

	select {
	case <-bot.done:
	case <-time.After(2 * time.Second):
		t.Fatal("background post did not run")
	}
	s.Wait()
	assert.Equal(t, []string{"http"}, bot.posts)
}

func TestGetPostWait(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"published", nil, http.StatusOK},
		{"already posted", app.ErrAlreadyPosted, http.StatusConflict},
		{"all publishers failed", app.ErrAllPublishersFail, http.StatusBadGateway},
		{"other error", errors.New("ledger down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(&fakeBot{postErr: tt.err}, 0)
			w := do(s, "/post?wait=true")
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestGetPostRateLimited(t *testing.T) {
	s, m := newTestServer(&fakeBot{postErr: app.ErrAlreadyPosted}, 1)

	w := do(s, "/post?wait=true")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(s, "/post?wait=true")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, int64(1), m.TriggersRateLimited)
}

func TestGetPreview(t *testing.T) {
	bot := &fakeBot{}
	s, _ := newTestServer(bot, 0)

	w := do(s, "/preview")
	assert.Equal(t, http.StatusOK, w.Code)
	var res app.Result
	assert.Equal(t, nil, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "preview", res.Text)

	w = do(s, "/preview?date=2024-01-01")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, len(bot.previews))
	assert.Equal(t, time.January, bot.previews[0].Month())

	w = do(s, "/preview?date=yesterday")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetHistory(t *testing.T) {
	bot := &fakeBot{entries: []storage.Entry{{Day: "2024-07-20", Year: 1969}}}
	s, _ := newTestServer(bot, 0)

	w := do(s, "/history?limit=500")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 100, bot.limit)

	var body struct {
		Entries []storage.Entry `json:"entries"`
	}
	assert.Equal(t, nil, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, len(body.Entries))
	assert.Equal(t, 1969, body.Entries[0].Year)

	do(s, "/history?limit=abc")
	assert.Equal(t, 10, bot.limit)
}

func TestGetHealth(t *testing.T) {
	s, m := newTestServer(&fakeBot{}, 0)

	w := do(s, "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	m.SetError("feed unreachable")
	w = do(s, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body map[string]interface{}
	assert.Equal(t, nil, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body["status"])
}

func TestGetMetrics(t *testing.T) {
	s, m := newTestServer(&fakeBot{}, 0)
	m.IncrementPostsPublished()

	w := do(s, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	assert.Equal(t, nil, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["posts_published"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	s, _ := newTestServer(&fakeBot{}, 0)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}
