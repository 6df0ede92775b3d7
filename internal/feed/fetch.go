package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/deusflow/historybot/internal/history"
	"github.com/deusflow/historybot/internal/metrics"
	"github.com/deusflow/historybot/internal/retry"
)

// FetchWithRetry calls src.Events under the retry policy. On failure it returns
// an empty list together with the error so the caller can post the fallback.
func FetchWithRetry(ctx context.Context, src Source, month time.Month, day int, policy retry.Config, m *metrics.Metrics, log *slog.Logger) ([]history.Event, error) {
	if m == nil {
		m = metrics.Global
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("source", src.Name()))

	var events []history.Event
	err := retry.Do(ctx, policy, log, func(ctx context.Context) error {
		m.IncrementFeedFetches()
		var err error
		events, err = src.Events(ctx, month, day)
		return err
	})
	if err != nil {
		m.IncrementFeedFailures()
		log.Error("failed to fetch events", slog.Any("error", err))
		return []history.Event{}, err
	}

	m.AddEventsSeen(len(events))
	log.Info("fetched events",
		slog.Int("count", len(events)),
		slog.String("date", time.Date(2000, month, day, 0, 0, 0, 0, time.UTC).Format("01-02")),
	)
	return events, nil
}
