package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/deusflow/historybot/internal/cache"
	"github.com/deusflow/historybot/internal/history"
)

// Cached serves repeated lookups of the same day from memory. Failures and
// empty results are not cached.
type Cached struct {
	src   Source
	store *cache.Cache[[]history.Event]
	ttl   time.Duration
}

func NewCached(src Source, ttl time.Duration) *Cached {
	return &Cached{
		src:   src,
		store: cache.New[[]history.Event](ttl),
		ttl:   ttl,
	}
}

func (c *Cached) Name() string { return c.src.Name() }

func (c *Cached) Events(ctx context.Context, month time.Month, day int) ([]history.Event, error) {
	key := fmt.Sprintf("%s:%02d-%02d", c.src.Name(), int(month), day)
	if events, ok := c.store.Get(key); ok {
		return events, nil
	}

	events, err := c.src.Events(ctx, month, day)
	if err != nil {
		return nil, err
	}
	if len(events) > 0 && c.ttl > 0 {
		c.store.Set(key, events, c.ttl)
	}
	return events, nil
}

func (c *Cached) Close() {
	c.store.Close()
}
