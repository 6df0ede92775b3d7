package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	FeedFetches         int64
	FeedFailures        int64
	EventsSeen          int64
	FallbackPosts       int64
	PostsPublished      int64
	PublishFailures     int64
	DuplicatesSkipped   int64
	PostsShortened      int64
	TriggersRateLimited int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration
	ProcessingCount       int64

	// Status
	LastRunTime   time.Time
	LastPost      string
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = New()

func New() *Metrics {
	return &Metrics{IsHealthy: true}
}

func (m *Metrics) inc(field *int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*field++
}

func (m *Metrics) IncrementFeedFetches()         { m.inc(&m.FeedFetches) }
func (m *Metrics) IncrementFeedFailures()        { m.inc(&m.FeedFailures) }
func (m *Metrics) IncrementFallbackPosts()       { m.inc(&m.FallbackPosts) }
func (m *Metrics) IncrementPostsPublished()      { m.inc(&m.PostsPublished) }
func (m *Metrics) IncrementPublishFailures()     { m.inc(&m.PublishFailures) }
func (m *Metrics) IncrementDuplicatesSkipped()   { m.inc(&m.DuplicatesSkipped) }
func (m *Metrics) IncrementPostsShortened()      { m.inc(&m.PostsShortened) }
func (m *Metrics) IncrementTriggersRateLimited() { m.inc(&m.TriggersRateLimited) }

func (m *Metrics) AddEventsSeen(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EventsSeen += int64(n)
}

func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastProcessingTime = duration
	m.TotalProcessingTime += duration
	m.ProcessingCount++
	m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.ProcessingCount)
}

// SetLastRun records a successful run and marks the bot healthy.
func (m *Metrics) SetLastRun(post string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.LastPost = post
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"feed_fetches":               m.FeedFetches,
		"feed_failures":              m.FeedFailures,
		"events_seen":                m.EventsSeen,
		"fallback_posts":             m.FallbackPosts,
		"posts_published":            m.PostsPublished,
		"publish_failures":           m.PublishFailures,
		"duplicates_skipped":         m.DuplicatesSkipped,
		"posts_shortened":            m.PostsShortened,
		"triggers_rate_limited":      m.TriggersRateLimited,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_time":              formatTime(m.LastRunTime),
		"last_post":                  m.LastPost,
		"last_error_time":            formatTime(m.LastErrorTime),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
