package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// counter is the slice of the Redis API the fixed window needs.
// *redis.Client, *redis.ClusterClient and *redis.Ring all satisfy it.
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	PExpire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisLimiter is a fixed-window counter in Redis, shared across instances.
type RedisLimiter struct {
	rdb    counter
	prefix string
	limit  int64
	window time.Duration
	now    func() time.Time
}

// NewRedisLimiter allows limit events per window for each key.
// Windows shorter than a millisecond are raised to one millisecond.
func NewRedisLimiter(rdb counter, prefix string, limit int64, window time.Duration) *RedisLimiter {
	window = max(window, time.Millisecond)
	return &RedisLimiter{
		rdb:    rdb,
		prefix: prefix,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	slot := l.now().UnixMilli() / l.window.Milliseconds()
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)

	count, err := l.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("incr rate window: %w", err)
	}
	if count == 1 {
		// The extra second keeps the key alive past the window edge under clock skew.
		if err := l.rdb.PExpire(ctx, redisKey, l.window+time.Second).Err(); err != nil {
			return count <= l.limit, fmt.Errorf("expire rate window: %w", err)
		}
	}
	return count <= l.limit, nil
}

// ParseRedisURL builds a client from a redis:// URL.
func ParseRedisURL(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}
