// Package server exposes the HTTP trigger and status endpoints.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/deusflow/historybot/internal/app"
	"github.com/deusflow/historybot/internal/metrics"
	"github.com/deusflow/historybot/internal/storage"
)

const runningMessage = "History bot is running!"

// Bot is what the handlers need from app.Bot.
type Bot interface {
	Post(ctx context.Context, trigger string) (*app.Result, error)
	Preview(ctx context.Context) *app.Result
	PreviewAt(ctx context.Context, t time.Time) *app.Result
	Recent(ctx context.Context, limit int) ([]storage.Entry, error)
}

type Options struct {
	RatePerMinute int // 0 disables the /post limiter
	PostTimeout   time.Duration
	Location      *time.Location
	Metrics       *metrics.Metrics
	Log           *slog.Logger
}

type Server struct {
	bot     Bot
	opts    Options
	log     *slog.Logger
	engine  *gin.Engine
	limiter *rate.Limiter

	// background posts started by /post
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(bot Bot, opts Options) *Server {
	if opts.Metrics == nil {
		opts.Metrics = metrics.Global
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.PostTimeout <= 0 {
		opts.PostTimeout = 2 * time.Minute
	}

	s := &Server{
		bot:  bot,
		opts: opts,
		log:  opts.Log.With(slog.String("component", "http")),
	}
	if opts.RatePerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RatePerMinute)), 1)
	}
	s.baseCtx, s.cancel = context.WithCancel(context.Background())
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger(s.log))

	r.GET("/", s.getIndex)
	r.GET("/post", limit(s.limiter, s.opts.Metrics), s.getPost)
	r.GET("/preview", s.getPreview)
	r.GET("/history", s.getHistory)
	r.GET("/health", s.getHealth)
	r.GET("/metrics", s.getMetrics)
	return r
}

func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is cancelled, then shuts down gracefully and
// waits for background posts.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Wait()
	return err
}

// Wait blocks until background posts have finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

// Close cancels background posts that are still running.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Server) getIndex(c *gin.Context) {
	c.String(http.StatusOK, runningMessage)
}

// getPost answers right away and posts in the background. With ?wait=true it
// posts synchronously and reports the result.
func (s *Server) getPost(c *gin.Context) {
	if c.Query("wait") == "true" {
		ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.PostTimeout)
		defer cancel()
		res, err := s.bot.Post(ctx, "http")
		switch {
		case errors.Is(err, app.ErrAlreadyPosted):
			c.JSON(http.StatusConflict, gin.H{"error": "Already posted today"})
		case errors.Is(err, app.ErrAllPublishersFail):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Publishing failed", "result": res})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Post failed"})
		default:
			c.JSON(http.StatusOK, res)
		}
		return
	}

	requestID := c.GetString("request_id")
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.baseCtx, s.opts.PostTimeout)
		defer cancel()
		if _, err := s.bot.Post(ctx, "http"); err != nil && !errors.Is(err, app.ErrAlreadyPosted) {
			s.log.Error("background post failed", slog.String("request_id", requestID), slog.Any("error", err))
		}
	}()
	c.String(http.StatusAccepted, runningMessage)
}

func (s *Server) getPreview(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		c.JSON(http.StatusOK, s.bot.Preview(c.Request.Context()))
		return
	}
	t, err := time.ParseInLocation("2006-01-02", date, s.opts.Location)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, want YYYY-MM-DD"})
		return
	}
	c.JSON(http.StatusOK, s.bot.PreviewAt(c.Request.Context(), t))
}

func (s *Server) getHistory(c *gin.Context) {
	entries, err := s.bot.Recent(c.Request.Context(), getQueryLimit(c))
	if err != nil {
		s.log.Error("failed to read ledger", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ledger error"})
		return
	}
	if entries == nil {
		entries = []storage.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (s *Server) getHealth(c *gin.Context) {
	stats := s.opts.Metrics.GetStats()
	if !s.opts.Metrics.Healthy() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "unhealthy",
			"last_error": stats["last_error"],
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"last_run_time": stats["last_run_time"],
	})
}

func (s *Server) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.opts.Metrics.GetStats())
}

func getQueryLimit(c *gin.Context) int {
	const (
		defaultLimit = 10
		maxLimit     = 100
	)
	raw := c.Query("limit")
	if raw == "" {
		return defaultLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		slog.Warn("invalid query parameter, using default", "param", "limit", "value", raw)
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
