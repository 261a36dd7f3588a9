// Package ratelimit provides sliding-window admission control keyed by
// "<feature>:<owner>" strings. The shared Redis backend gives a consistent
// count across processes; an in-process fixed-window fallback keeps
// admission decisions flowing when Redis is unreachable.
package ratelimit

import (
	"context"
	"time"
)

// Limiter answers whether one more unit is allowed for a key within the
// trailing window. A true return records the unit; a false return records
// nothing.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) bool
}
