package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kapu/gridlock/internal/obslog"
)

// Redis is a fixed-window limiter sharing its counters through Redis, for
// deployments that front several processes with one limit. INCR creates the
// counter atomically; the first hit of a window attaches the expiry.
type Redis struct {
	rdb    *redis.Client
	limit  int
	period time.Duration
}

func NewRedis(redisURL string, limit int, period time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &Redis{rdb: redis.NewClient(opt), limit: limit, period: period}, nil
}

func (r *Redis) Close() error { return r.rdb.Close() }

func (r *Redis) Allow(ctx context.Context, id string) bool {
	key := limiterKey(id)
	n, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		// fail open: a limiter outage must not take the game down
		obslog.L().Warn("ratelimit_redis_error", zap.String("conn_id", id), zap.Error(err))
		return true
	}
	if n == 1 {
		if err := r.rdb.Expire(ctx, key, r.period).Err(); err != nil {
			obslog.L().Warn("ratelimit_expire_error", zap.String("conn_id", id), zap.Error(err))
		}
	}
	return n <= int64(r.limit)
}

func (r *Redis) Forget(ctx context.Context, id string) {
	if err := r.rdb.Del(ctx, limiterKey(id)).Err(); err != nil {
		obslog.L().Warn("ratelimit_forget_error", zap.String("conn_id", id), zap.Error(err))
	}
}

func limiterKey(id string) string { return "rl:conn:" + id }
