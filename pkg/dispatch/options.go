package dispatch

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/codecraft/aidoc/pkg/core"
)

// Config holds dispatcher configuration.
type Config struct {
	// Concurrency is the fixed worker count. Pending work queues rather
	// than spawning unbounded workers.
	Concurrency int

	// QueueCapacity bounds the dispatch queue. A full queue rejects the
	// dispatch; the job stays pending for the sweep.
	QueueCapacity int

	// GenerateTimeout caps a single provider call so a slow upstream
	// cannot pin a worker slot indefinitely.
	GenerateTimeout time.Duration

	// SweepAge is how long a job may sit pending before the sweep
	// re-dispatches it.
	SweepAge time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithConcurrency sets the worker count.
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.config.Concurrency = n
		}
	}
}

// WithQueueCapacity sets the dispatch queue capacity.
func WithQueueCapacity(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.config.QueueCapacity = n
		}
	}
}

// WithGenerateTimeout sets the per-job provider call timeout.
func WithGenerateTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.config.GenerateTimeout = timeout
		}
	}
}

// WithSweep enables the periodic stale-pending sweep on a cron expression
// (standard five-field format). Jobs pending longer than age are
// re-dispatched.
func WithSweep(expr string, age time.Duration) Option {
	return func(d *Dispatcher) {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		schedule, err := parser.Parse(expr)
		if err != nil {
			d.logger.Error("invalid sweep expression, sweep disabled", "expr", expr, "error", err)
			return
		}
		d.sweep = schedule
		if age > 0 {
			d.config.SweepAge = age
		}
	}
}

// WithGenerationStore attaches the auxiliary store written on success.
func WithGenerationStore(gens core.GenerationStore) Option {
	return func(d *Dispatcher) { d.gens = gens }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}
