package ratelimit

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DailyBudget caps how many AI requests each provider may receive per day.
// Counters reset 24h after the first use following the previous reset.
type DailyBudget struct {
	mu        sync.Mutex
	limits    map[string]int
	used      map[string]int
	maxTotal  int
	total     int
	resetTime time.Time
	now       func() time.Time
	log       *slog.Logger
}

// NewDailyBudget creates a budget. A limit of 0 means unlimited.
func NewDailyBudget(limits map[string]int, maxTotal int, log *slog.Logger) *DailyBudget {
	if log == nil {
		log = slog.Default()
	}
	l := make(map[string]int, len(limits))
	for k, v := range limits {
		l[k] = v
	}
	b := &DailyBudget{
		limits:   l,
		used:     make(map[string]int),
		maxTotal: maxTotal,
		now:      time.Now,
		log:      log.With(slog.String("component", "ai-budget")),
	}
	b.resetTime = b.now().Add(24 * time.Hour)
	return b
}

// CanUse reports whether provider has budget left without consuming it.
func (b *DailyBudget) CanUse(provider string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()
	return b.check(provider) == nil
}

// Use consumes one request for provider.
func (b *DailyBudget) Use(provider string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()
	if err := b.check(provider); err != nil {
		b.log.Warn("ai budget exhausted", slog.String("provider", provider), slog.Any("error", err))
		return err
	}

	b.used[provider]++
	b.total++
	b.log.Debug("ai usage",
		slog.String("provider", provider),
		slog.Int("used", b.used[provider]),
		slog.Int("limit", b.limits[provider]),
		slog.Int("total", b.total),
	)
	return nil
}

func (b *DailyBudget) check(provider string) error {
	if limit := b.limits[provider]; limit > 0 && b.used[provider] >= limit {
		return fmt.Errorf("%s rate limit exceeded (%d/%d)", provider, b.used[provider], limit)
	}
	if b.maxTotal > 0 && b.total >= b.maxTotal {
		return fmt.Errorf("total AI rate limit exceeded (%d/%d)", b.total, b.maxTotal)
	}
	return nil
}

func (b *DailyBudget) GetStats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := map[string]interface{}{
		"total_used":  b.total,
		"total_limit": b.maxTotal,
		"reset_time":  b.resetTime.Format(time.RFC3339),
	}
	for provider, limit := range b.limits {
		stats[provider+"_used"] = b.used[provider]
		stats[provider+"_limit"] = limit
	}
	return stats
}

// checkReset resets counters if reset time has passed
func (b *DailyBudget) checkReset() {
	now := b.now()
	if !now.After(b.resetTime) {
		return
	}
	b.log.Info("resetting ai budget", slog.Int("total_used", b.total))
	b.used = make(map[string]int)
	b.total = 0
	b.resetTime = now.Add(24 * time.Hour)
}
