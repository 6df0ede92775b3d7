package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/deusflow/historybot/internal/feed"
	"github.com/deusflow/historybot/internal/history"
	"github.com/deusflow/historybot/internal/metrics"
	"github.com/deusflow/historybot/internal/ratelimit"
	"github.com/deusflow/historybot/internal/retry"
	"github.com/deusflow/historybot/internal/shorten"
	"github.com/deusflow/historybot/internal/storage"
)

var (
	ErrAlreadyPosted     = errors.New("already posted today")
	ErrAllPublishersFail = errors.New("no publisher accepted the post")
)

// Publisher delivers a finished post somewhere. Implementations make a single
// attempt.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, text string) error
}

type Options struct {
	Source        feed.Source
	Ledger        storage.Ledger
	Publishers    []Publisher
	Shortener     shorten.Shortener // optional
	Budget        *ratelimit.DailyBudget
	Metrics       *metrics.Metrics
	Location      *time.Location
	WithHashtags  bool
	MaxPostLength int
	Retry         retry.Config
	RunTimeout    time.Duration // upper bound for one shared post run
	Log           *slog.Logger
}

const defaultRunTimeout = 5 * time.Minute

// Result describes one composed (and possibly published) post.
type Result struct {
	Day       string         `json:"day"`
	RunID     string         `json:"run_id,omitempty"`
	Text      string         `json:"text"`
	Event     *history.Event `json:"event,omitempty"` // nil for the fallback message
	Index     int            `json:"index"`           // -1 for the fallback message
	Shortened bool           `json:"shortened"`
	Published []string       `json:"published,omitempty"`
	Failed    []string       `json:"failed,omitempty"`
}

type Bot struct {
	opts  Options
	group singleflight.Group
	now   func() time.Time
	log   *slog.Logger
}

func New(opts Options) *Bot {
	if opts.Ledger == nil {
		opts.Ledger = storage.NopLedger{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Global
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = defaultRunTimeout
	}
	return &Bot{
		opts: opts,
		now:  time.Now,
		log:  opts.Log.With(slog.String("component", "bot")),
	}
}

// Post publishes today's event once per calendar day. Concurrent calls for the
// same day share one run; a day already claimed in the ledger returns
// ErrAlreadyPosted. Individual publisher failures are logged, the call only
// fails when every publisher failed.
//
// The shared run is detached from ctx and bounded by RunTimeout, so a caller
// that gives up only stops waiting and never cancels the post for the others.
func (b *Bot) Post(ctx context.Context, trigger string) (*Result, error) {
	now := b.now().In(b.opts.Location)
	day := storage.DayKey(now)

	var leader atomic.Bool
	ch := b.group.DoChan(day, func() (interface{}, error) {
		leader.Store(true)
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.opts.RunTimeout)
		defer cancel()
		return b.post(runCtx, trigger, now, day)
	})

	select {
	case <-ctx.Done():
		b.log.Warn("stopped waiting for post", slog.String("day", day), slog.String("trigger", trigger))
		return nil, ctx.Err()
	case r := <-ch:
		if r.Shared && !leader.Load() {
			b.log.Info("joined in-flight post", slog.String("day", day), slog.String("trigger", trigger))
		}
		res, _ := r.Val.(*Result)
		return res, r.Err
	}
}

func (b *Bot) post(ctx context.Context, trigger string, now time.Time, day string) (*Result, error) {
	start := time.Now()
	defer func() { b.opts.Metrics.RecordProcessingTime(time.Since(start)) }()

	log := b.log.With(slog.String("day", day), slog.String("trigger", trigger))

	claimed, err := b.opts.Ledger.Claim(ctx, day)
	if err != nil {
		b.opts.Metrics.SetError(err.Error())
		return nil, fmt.Errorf("failed to claim day %s: %w", day, err)
	}
	if !claimed {
		b.opts.Metrics.IncrementDuplicatesSkipped()
		log.Info("day already posted, skipping")
		return nil, ErrAlreadyPosted
	}

	res := b.compose(ctx, now)
	res.RunID = uuid.NewString()
	log = log.With(slog.String("run_id", res.RunID))

	var errs []error
	for _, p := range b.opts.Publishers {
		if err := p.Publish(ctx, res.Text); err != nil {
			b.opts.Metrics.IncrementPublishFailures()
			log.Error("publish failed", slog.String("publisher", p.Name()), slog.Any("error", err))
			res.Failed = append(res.Failed, p.Name())
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		b.opts.Metrics.IncrementPostsPublished()
		res.Published = append(res.Published, p.Name())
	}

	if len(res.Published) == 0 {
		if err := b.opts.Ledger.Release(context.WithoutCancel(ctx), day); err != nil {
			log.Error("failed to release day", slog.Any("error", err))
		}
		err := fmt.Errorf("%w: %w", ErrAllPublishersFail, errors.Join(errs...))
		b.opts.Metrics.SetError(err.Error())
		return res, err
	}

	entry := storage.Entry{
		Day:        day,
		RunID:      res.RunID,
		Index:      res.Index,
		Text:       res.Text,
		Trigger:    trigger,
		Publishers: res.Published,
		PostedAt:   b.now(),
	}
	if res.Event != nil {
		entry.Year = res.Event.Year
	}
	if err := b.opts.Ledger.Complete(context.WithoutCancel(ctx), entry); err != nil {
		log.Error("failed to record post", slog.Any("error", err))
	}

	b.opts.Metrics.SetLastRun(res.Text)
	log.Info("post published",
		slog.Any("published", res.Published),
		slog.Any("failed", res.Failed),
		slog.Int("index", res.Index),
	)
	return res, nil
}

// Preview composes today's post without publishing or touching the ledger.
func (b *Bot) Preview(ctx context.Context) *Result {
	return b.PreviewAt(ctx, b.now())
}

// PreviewAt composes the post for the day of t in the bot's timezone.
func (b *Bot) PreviewAt(ctx context.Context, t time.Time) *Result {
	return b.compose(ctx, t.In(b.opts.Location))
}

// Recent lists the latest ledger entries, newest first.
func (b *Bot) Recent(ctx context.Context, limit int) ([]storage.Entry, error) {
	return b.opts.Ledger.Recent(ctx, limit)
}

// compose fetches the day's events once and builds the post. A failed fetch
// yields the fallback message.
func (b *Bot) compose(ctx context.Context, now time.Time) *Result {
	res := &Result{Day: storage.DayKey(now), Index: -1}

	var events []history.Event
	if b.opts.Source != nil {
		events, _ = feed.FetchWithRetry(ctx, b.opts.Source, now.Month(), now.Day(), b.opts.Retry, b.opts.Metrics, b.log)
	}

	ev, idx, ok := history.Pick(events, now)
	if ok {
		res.Event = &ev
		res.Index = idx
		res.Text = history.Render(ev, b.opts.WithHashtags)
	} else {
		b.opts.Metrics.IncrementFallbackPosts()
		b.log.Warn("no events for today, using fallback message", slog.String("day", res.Day))
		res.Text = history.FallbackMessage
	}

	text, shortened := shorten.Fit(ctx, res.Text, b.opts.MaxPostLength, b.opts.Shortener, b.opts.Budget, b.log)
	if shortened {
		b.opts.Metrics.IncrementPostsShortened()
		res.Text = text
		res.Shortened = true
	}
	return res
}
