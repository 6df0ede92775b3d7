package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/deusflow/historybot/internal/config"
	"github.com/deusflow/historybot/internal/feed"
	"github.com/deusflow/historybot/internal/kafka"
	"github.com/deusflow/historybot/internal/metrics"
	"github.com/deusflow/historybot/internal/ntfy"
	"github.com/deusflow/historybot/internal/ratelimit"
	"github.com/deusflow/historybot/internal/retry"
	"github.com/deusflow/historybot/internal/shorten"
	"github.com/deusflow/historybot/internal/storage"
	"github.com/deusflow/historybot/internal/telegram"
	"github.com/deusflow/historybot/internal/twitter"
)

// StdoutPublisher prints the post, for dry runs.
type StdoutPublisher struct {
	W io.Writer
}

func (StdoutPublisher) Name() string { return "stdout" }

func (p StdoutPublisher) Publish(ctx context.Context, text string) error {
	w := p.W
	if w == nil {
		w = os.Stdout
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

// closers collects cleanup funcs of wired components.
type closers []func() error

func (c closers) Close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Wire builds a Bot from configuration. withPublishers=false skips publisher
// and shortener credentials, for commands that only read. The returned
// function releases every opened resource.
func Wire(ctx context.Context, cfg *config.Config, withPublishers bool, log *slog.Logger) (*Bot, func() error, error) {
	if log == nil {
		log = slog.Default()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}

	var cl closers
	fail := func(err error) (*Bot, func() error, error) {
		cl.Close()
		return nil, nil, err
	}

	src := NewSource(cfg, log)
	if c, ok := src.(*feed.Cached); ok {
		cl = append(cl, func() error { c.Close(); return nil })
	}

	ledger, err := storage.Open(ctx, cfg.Ledger, log)
	if err != nil {
		return fail(fmt.Errorf("failed to open ledger: %w", err))
	}
	cl = append(cl, ledger.Close)

	opts := Options{
		Source:        src,
		Ledger:        ledger,
		Metrics:       metrics.Global,
		Location:      loc,
		WithHashtags:  cfg.WithHashtags,
		MaxPostLength: cfg.MaxPostLength,
		Retry: retry.Config{
			MaxAttempts: cfg.RetryAttempts,
			Delay:       cfg.RetryDelay,
			Backoff:     true,
		},
		Log: log,
	}

	if withPublishers {
		pubs, closePubs, err := NewPublishers(cfg, log)
		if err != nil {
			return fail(err)
		}
		cl = append(cl, closePubs)
		opts.Publishers = pubs
	}

	short, closeShort, err := NewShortener(ctx, cfg)
	if err != nil {
		if withPublishers {
			return fail(err)
		}
		log.Warn("shortener disabled", slog.Any("error", err))
	}
	if closeShort != nil {
		cl = append(cl, closeShort)
	}
	if short != nil {
		opts.Shortener = short
		opts.Budget = ratelimit.NewDailyBudget(map[string]int{short.Name(): cfg.Shortener.MaxRequests}, 0, log)
	}

	return New(opts), cl.Close, nil
}

// DryRun returns a copy of cfg that prints the post to stdout and never
// touches the ledger, so a later real post for the same day still goes out.
func DryRun(cfg *config.Config) *config.Config {
	c := *cfg
	c.Publishers = []string{"stdout"}
	c.Ledger.Backend = "none"
	return &c
}

// NewSource picks the feed source from config and wraps it in the cache.
func NewSource(cfg *config.Config, log *slog.Logger) feed.Source {
	client := &http.Client{Timeout: cfg.RequestTimeout}

	var src feed.Source
	switch cfg.FeedSource {
	case "featured":
		src = feed.NewFeaturedSource(cfg.FeaturedFeedURL, cfg.FeedLanguage, cfg.UserAgent, client, log)
	default:
		src = feed.NewRESTSource(cfg.FeedBaseURL, cfg.FeedLanguage, cfg.UserAgent, client, log)
	}
	if cfg.FeedCacheTTL > 0 {
		return feed.NewCached(src, cfg.FeedCacheTTL)
	}
	return src
}

// NewPublishers creates the configured publishers in config order.
func NewPublishers(cfg *config.Config, log *slog.Logger) ([]Publisher, func() error, error) {
	if err := cfg.ValidatePublishers(); err != nil {
		return nil, nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}

	var pubs []Publisher
	var cl closers
	for _, name := range cfg.Publishers {
		switch name {
		case "twitter":
			pubs = append(pubs, twitter.New(twitter.Credentials{
				APIKey:            cfg.Twitter.APIKey,
				APIKeySecret:      cfg.Twitter.APIKeySecret,
				AccessToken:       cfg.Twitter.AccessToken,
				AccessTokenSecret: cfg.Twitter.AccessTokenSecret,
			}, cfg.Twitter.BaseURL, cfg.RequestTimeout, log))
		case "telegram":
			pubs = append(pubs, telegram.New(cfg.Telegram.Token, cfg.Telegram.ChatID, log))
		case "ntfy":
			pubs = append(pubs, ntfy.New(cfg.Ntfy.Topic, cfg.Ntfy.Token, log))
		case "kafka":
			kp := kafka.New(cfg.Kafka.Brokers, cfg.Kafka.Topic, loc, log)
			cl = append(cl, kp.Close)
			pubs = append(pubs, kp)
		case "stdout":
			pubs = append(pubs, StdoutPublisher{})
		default:
			cl.Close()
			return nil, nil, fmt.Errorf("unknown publisher %q", name)
		}
	}
	return pubs, cl.Close, nil
}

// NewShortener returns nil when no provider is configured.
func NewShortener(ctx context.Context, cfg *config.Config) (shorten.Shortener, func() error, error) {
	switch cfg.Shortener.Provider {
	case "gemini":
		if cfg.Shortener.GeminiAPIKey == "" {
			return nil, nil, fmt.Errorf("%w: SHORTENER=gemini needs GEMINI_API_KEY", config.ErrMissingCredentials)
		}
		g, err := shorten.NewGemini(ctx, cfg.Shortener.GeminiAPIKey, cfg.Shortener.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		return g, func() error { g.Close(); return nil }, nil
	case "openai":
		if cfg.Shortener.OpenAIAPIKey == "" {
			return nil, nil, fmt.Errorf("%w: SHORTENER=openai needs OPENAI_API_KEY", config.ErrMissingCredentials)
		}
		return shorten.NewOpenAI(cfg.Shortener.OpenAIAPIKey, cfg.Shortener.OpenAIModel, ""), nil, nil
	default:
		return nil, nil, nil
	}
}
