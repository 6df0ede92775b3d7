package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisDayPrefix  = "historybot:day:"
	redisRecentKey  = "historybot:posted"
	redisRecentKeep = 100
	redisPending    = "pending"
)

// releaseScript deletes a day key only while it still holds a pending claim.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLedger keeps one key per day, claimed with SETNX, plus a capped list of
// recent posts.
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

func NewRedisLedger(ctx context.Context, redisURL string, ttlHours int, log *slog.Logger) (*RedisLedger, error) {
	if log == nil {
		log = slog.Default()
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}
	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	log.Info("redis ledger connected", slog.String("addr", opt.Addr))
	return &RedisLedger{client: client, ttl: ttlDuration(ttlHours), log: log}, nil
}

func (r *RedisLedger) Claim(ctx context.Context, day string) (bool, error) {
	ok, err := r.client.SetNX(ctx, redisDayPrefix+day, redisPending, claimTimeout).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim day %s: %w", day, err)
	}
	return ok, nil
}

func (r *RedisLedger) Complete(ctx context.Context, e Entry) error {
	if e.PostedAt.IsZero() {
		e.PostedAt = time.Now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisDayPrefix+e.Day, data, r.ttl)
		pipe.LPush(ctx, redisRecentKey, data)
		pipe.LTrim(ctx, redisRecentKey, 0, redisRecentKeep-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to mark day %s as posted: %w", e.Day, err)
	}
	return nil
}

func (r *RedisLedger) Release(ctx context.Context, day string) error {
	err := releaseScript.Run(ctx, r.client, []string{redisDayPrefix + day}, redisPending).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release day %s: %w", day, err)
	}
	return nil
}

func (r *RedisLedger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	raw, err := r.client.LRange(ctx, redisRecentKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recent posts: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			r.log.Warn("skipping malformed ledger entry", slog.Any("error", err))
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *RedisLedger) Close() error {
	return r.client.Close()
}
