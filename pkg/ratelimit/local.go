package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// bucket is a fixed-window counter with its own lock, so contention on one
// key never blocks callers for another.
type bucket struct {
	mu          sync.Mutex
	windowStart int64
	count       int
}

// LocalLimiter is the in-process fallback backend: a fixed-window
// approximation of the sliding window, acceptable only as a degraded mode.
// Buckets live in a TTL cache so idle keys are reclaimed.
type LocalLimiter struct {
	buckets *ttlcache.Cache[string, *bucket]
}

// Compile-time interface check.
var _ Limiter = (*LocalLimiter)(nil)

// NewLocalLimiter creates the in-process backend and starts its eviction
// loop. Call Stop when discarding the limiter.
func NewLocalLimiter() *LocalLimiter {
	c := ttlcache.New[string, *bucket]()
	go c.Start()
	return &LocalLimiter{buckets: c}
}

// Allow consumes one unit for key if fewer than limit units were recorded
// in the current window. A non-positive limit or window always denies.
func (l *LocalLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) bool {
	if limit <= 0 || window <= 0 {
		return false
	}
	now := time.Now().Unix()
	item, _ := l.buckets.GetOrSet(key, &bucket{windowStart: now},
		ttlcache.WithTTL[string, *bucket](window))
	b := item.Value()

	b.mu.Lock()
	defer b.mu.Unlock()
	if now-b.windowStart >= int64(window/time.Second) {
		b.windowStart = now
		b.count = 0
	}
	b.count++
	return b.count <= limit
}

// Stop terminates the eviction loop.
func (l *LocalLimiter) Stop() {
	l.buckets.Stop()
}
