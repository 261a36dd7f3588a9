package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/codecraft/aidoc/pkg/metrics"
)

// sharedBackend is the contract the distributed backend fulfils: a decision
// or an error, never both.
type sharedBackend interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Fallback composes the shared backend with the local one. Any error from
// the shared backend degrades the call to the local path instead of
// reaching the caller; the limiter must never be a single point of failure.
// Each call re-probes the shared backend, so a recovered Redis is picked up
// immediately. Fallback engagements are counted and logged so operators can
// detect shared-backend outages.
type Fallback struct {
	shared sharedBackend
	local  *LocalLimiter
	logger *slog.Logger
}

// Compile-time interface check.
var _ Limiter = (*Fallback)(nil)

// Option configures a Fallback limiter.
type Option func(*Fallback)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fallback) { f.logger = l }
}

// NewFallback composes shared and local backends. A nil shared backend is
// allowed and yields a local-only limiter (no Redis configured).
func NewFallback(shared *RedisLimiter, local *LocalLimiter, opts ...Option) *Fallback {
	f := &Fallback{local: local, logger: slog.Default()}
	if shared != nil {
		f.shared = shared
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Allow consults the shared backend first and degrades to the local one on
// error.
func (f *Fallback) Allow(ctx context.Context, key string, limit int, window time.Duration) bool {
	if f.shared != nil {
		allowed, err := f.shared.Allow(ctx, key, limit, window)
		if err == nil {
			if !allowed {
				f.logger.Warn("rate limit exceeded", "key", key, "limit", limit, "backend", "shared")
				metrics.RecordAdmissionDenied("shared")
			}
			return allowed
		}
		f.logger.Warn("shared rate limiter unavailable, falling back to local", "error", err)
		metrics.RecordLimiterFallback()
	}

	allowed := f.local.Allow(ctx, key, limit, window)
	if !allowed {
		f.logger.Warn("rate limit exceeded", "key", key, "limit", limit, "backend", "local")
		metrics.RecordAdmissionDenied("local")
	}
	return allowed
}
