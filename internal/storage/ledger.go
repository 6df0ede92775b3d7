// Package storage records which calendar days already got their post.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/deusflow/historybot/internal/config"
)

// claimTimeout is how long an unfinished claim blocks a day. After that a new
// run may take it over (the previous process most likely died mid-post).
const claimTimeout = 15 * time.Minute

// Entry is one published post.
type Entry struct {
	Day        string    `json:"day"`
	RunID      string    `json:"run_id"`
	Year       int       `json:"year"`
	Index      int       `json:"index"`
	Text       string    `json:"text"`
	Trigger    string    `json:"trigger"`
	Publishers []string  `json:"publishers"`
	PostedAt   time.Time `json:"posted_at"`
}

// Ledger guards against posting twice for the same day.
//
// Claim reserves day and reports false when it is already reserved or posted.
// A successful run calls Complete, a failed one Release so a later trigger
// can retry.
type Ledger interface {
	Claim(ctx context.Context, day string) (bool, error)
	Complete(ctx context.Context, e Entry) error
	Release(ctx context.Context, day string) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// DayKey formats t as the ledger key. Callers convert t to the bot's timezone first.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Open creates the backend selected in cfg.
func Open(ctx context.Context, cfg config.LedgerConfig, log *slog.Logger) (Ledger, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "ledger"), slog.String("backend", cfg.Backend))

	switch strings.ToLower(cfg.Backend) {
	case "file":
		fl := NewFileLedger(cfg.FilePath, cfg.TTLHours, log)
		if err := fl.Load(); err != nil {
			return nil, err
		}
		return fl, nil
	case "sqlite":
		return NewSQLiteLedger(ctx, cfg.SQLitePath, cfg.TTLHours, log)
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres ledger needs DATABASE_URL")
		}
		return NewPostgresLedger(ctx, cfg.DatabaseURL, cfg.TTLHours, log)
	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("redis ledger needs REDIS_URL")
		}
		return NewRedisLedger(ctx, cfg.RedisURL, cfg.TTLHours, log)
	case "none", "":
		return NopLedger{}, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}

func ttlDuration(hours int) time.Duration {
	if hours <= 0 {
		return 0
	}
	return time.Duration(hours) * time.Hour
}

// NopLedger never remembers anything.
type NopLedger struct{}

func (NopLedger) Claim(context.Context, string) (bool, error)  { return true, nil }
func (NopLedger) Complete(context.Context, Entry) error        { return nil }
func (NopLedger) Release(context.Context, string) error        { return nil }
func (NopLedger) Recent(context.Context, int) ([]Entry, error) { return nil, nil }
func (NopLedger) Close() error                                 { return nil }
