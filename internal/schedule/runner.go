package schedule

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var ErrNoNextRun = errors.New("schedule never fires")

// Runner calls a job at every fire time of a schedule.
type Runner struct {
	sched *Schedule
	loc   *time.Location
	job   func(ctx context.Context)
	log   *slog.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

func NewRunner(sched *Schedule, loc *time.Location, job func(ctx context.Context), log *slog.Logger) *Runner {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		sched: sched,
		loc:   loc,
		job:   job,
		log:   log.With(slog.String("component", "scheduler")),
		now:   time.Now,
		after: time.After,
	}
}

// Run blocks until ctx is done. Jobs run one at a time; a fire time that
// passes while a job is still running is skipped.
func (r *Runner) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		now := r.now().In(r.loc)
		next := r.sched.Next(now)
		if next.IsZero() {
			return ErrNoNextRun
		}
		r.log.Info("next scheduled post", slog.Time("at", next))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.after(next.Sub(now)):
		}

		r.log.Info("scheduled post firing")
		r.job(ctx)
	}
}
