package dispatch

import (
	"context"
	"time"

	"github.com/codecraft/aidoc/pkg/core"
)

// runSweep periodically re-dispatches jobs stuck pending. Covers ids that
// never reached the queue: a full queue at submission, or a shutdown
// between insert and dispatch.
func (d *Dispatcher) runSweep(ctx context.Context) {
	next := d.sweep.Next(time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
			d.sweepOnce(ctx)
			next = d.sweep.Next(time.Now())
		}
	}
}

func (d *Dispatcher) sweepOnce(ctx context.Context) {
	pending, err := d.store.ListByStates(ctx, core.StatePending)
	if err != nil {
		d.logger.Error("sweep failed to list pending jobs", "error", err)
		return
	}

	cutoff := time.Now().Add(-d.config.SweepAge)
	redispatched := 0
	for _, job := range pending {
		if job.UpdatedAt.After(cutoff) {
			continue
		}
		if err := d.Dispatch(ctx, job.ID); err != nil {
			// Queue still full; the next sweep retries.
			d.logger.Warn("sweep dispatch failed", "job_id", job.ID, "error", err)
			continue
		}
		redispatched++
	}
	if redispatched > 0 {
		d.logger.Info("sweep re-dispatched stale pending jobs", "count", redispatched)
	}
}
