package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/deusflow/historybot/internal/app"
	"github.com/deusflow/historybot/internal/metrics"
	"github.com/deusflow/historybot/internal/schedule"
	"github.com/deusflow/historybot/internal/server"
)

// postTimeout bounds one scheduled post so a hung publisher cannot stall the runner.
const postTimeout = 2 * time.Minute

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP trigger and/or the daily schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			if !cfg.HasTrigger("http") && !cfg.HasTrigger("cron") {
				return fmt.Errorf("TRIGGERS is empty, nothing to serve (want http and/or cron)")
			}

			var sched *schedule.Schedule
			if cfg.HasTrigger("cron") {
				if sched, err = schedule.Parse(cfg.Server.Schedule); err != nil {
					return fmt.Errorf("invalid SCHEDULE: %w", err)
				}
			}

			bot, closeBot, err := app.Wire(ctx, cfg, true, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeBot(); err != nil {
					log.Error("failed to close resources", slog.Any("error", err))
				}
			}()

			g, gctx := errgroup.WithContext(ctx)

			if cfg.HasTrigger("http") {
				if !cfg.Debug {
					gin.SetMode(gin.ReleaseMode)
				}
				srv := server.New(bot, server.Options{
					RatePerMinute: cfg.Server.TriggerRatePerMinute,
					PostTimeout:   postTimeout,
					Location:      loc,
					Metrics:       metrics.Global,
					Log:           log,
				})
				g.Go(func() error {
					return srv.Run(gctx, ":"+cfg.Server.Port)
				})
			}

			if sched != nil {
				runner := schedule.NewRunner(sched, loc, func(ctx context.Context) {
					ctx, cancel := context.WithTimeout(ctx, postTimeout)
					defer cancel()
					if _, err := bot.Post(ctx, "cron"); err != nil && !errors.Is(err, app.ErrAlreadyPosted) {
						log.Error("scheduled post failed", slog.Any("error", err))
					}
				}, log)
				g.Go(func() error {
					return runner.Run(gctx)
				})
			}

			log.Info("history bot started",
				slog.Any("triggers", cfg.Server.Triggers),
				slog.Any("publishers", cfg.Publishers),
				slog.String("timezone", loc.String()),
			)

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			log.Info("history bot stopped")
			return nil
		},
	}
}
