package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "aidoc:rate:"

// consumeScript runs the evict/count/add sequence atomically so concurrent
// callers across processes observe a consistent count. Members are stamped
// with a random suffix because several consumptions may share one epoch
// second. The key expires with the window so idle keys are reclaimed.
var consumeScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local current = redis.call('ZCARD', key)
if current >= limit then
  return 0
end
redis.call('ZADD', key, now, now .. '-' .. math.random())
redis.call('EXPIRE', key, window)
return 1
`)

// RedisLimiter is the shared sliding-window-log backend. The caller owns
// the Redis client lifecycle.
type RedisLimiter struct {
	client redis.Cmdable
}

// NewRedisLimiter creates a limiter backed by the given Redis client.
func NewRedisLimiter(client redis.Cmdable) *RedisLimiter {
	return &RedisLimiter{client: client}
}

// Allow runs the consumption script. The error return lets a composing
// limiter fall back instead of denying on infrastructure failure.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 || window <= 0 {
		return false, nil
	}
	now := time.Now().Unix()
	allowed, err := consumeScript.Run(ctx, l.client,
		[]string{keyPrefix + key},
		limit, int64(window/time.Second), now,
	).Int64()
	if err != nil {
		return false, err
	}
	return allowed == 1, nil
}
