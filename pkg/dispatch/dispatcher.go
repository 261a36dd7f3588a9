package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/codecraft/aidoc/pkg/core"
	"github.com/codecraft/aidoc/pkg/metrics"
)

// Dispatcher submits work to a bounded worker pool and tracks in-flight
// jobs through the store. The store, not in-memory state, is the recovery
// source of truth.
type Dispatcher struct {
	store     core.JobStore
	gens      core.GenerationStore
	generator core.Generator
	config    Config
	jobs      chan string
	sweep     cron.Schedule
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// New creates a dispatcher. Call Start to launch the workers.
func New(store core.JobStore, generator core.Generator, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:     store,
		generator: generator,
		config: Config{
			Concurrency:     4,
			QueueCapacity:   64,
			GenerateTimeout: 60 * time.Second,
			SweepAge:        5 * time.Minute,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.jobs = make(chan string, d.config.QueueCapacity)
	return d
}

// Start launches the worker pool and the sweep. Blocks until ctx is
// cancelled, then drains the workers.
func (d *Dispatcher) Start(ctx context.Context) error {
	for i := 0; i < d.config.Concurrency; i++ {
		d.wg.Add(1)
		go d.processLoop(ctx)
	}
	if d.sweep != nil {
		go d.runSweep(ctx)
	}
	<-ctx.Done()
	d.wg.Wait()
	return ctx.Err()
}

// Dispatch schedules asynchronous execution of the job. It never blocks:
// a full queue returns an error and leaves the job pending for the sweep,
// keeping submission non-blocking under load.
func (d *Dispatcher) Dispatch(_ context.Context, jobID string) error {
	select {
	case d.jobs <- jobID:
		metrics.SetQueueDepth(len(d.jobs))
		return nil
	default:
		return core.Errorf(core.CodeInternal, "dispatch queue full (capacity %d)", cap(d.jobs))
	}
}

// QueueDepth returns the number of job ids waiting for a worker.
func (d *Dispatcher) QueueDepth() int {
	return len(d.jobs)
}

// Recover re-dispatches every job found pending or running. Both states
// are ambiguous at process start: the process running them may have
// crashed. A job genuinely mid-flight before the crash is executed again;
// the only durable side effect is the terminal result/reason overwrite,
// which is safe to repeat (at-least-once execution).
func (d *Dispatcher) Recover(ctx context.Context) (int, error) {
	unfinished, err := d.store.ListByStates(ctx, core.StatePending, core.StateRunning)
	if err != nil {
		return 0, fmt.Errorf("list unfinished jobs: %w", err)
	}
	for _, job := range unfinished {
		if err := d.Dispatch(ctx, job.ID); err != nil {
			d.logger.Warn("recovery dispatch deferred to sweep", "job_id", job.ID, "error", err)
		}
	}
	if len(unfinished) > 0 {
		d.logger.Info("recovered unfinished jobs", "count", len(unfinished))
	}
	return len(unfinished), nil
}

func (d *Dispatcher) processLoop(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-d.jobs:
			metrics.SetQueueDepth(len(d.jobs))
			d.process(ctx, jobID)
		}
	}
}

// process runs one dispatched job to a terminal state. Every execution
// path after the running transition ends in a terminal store write, so no
// job is left running without an operator-visible signal.
func (d *Dispatcher) process(ctx context.Context, jobID string) {
	job, err := d.store.GetByID(ctx, jobID)
	if err != nil {
		d.logger.Error("failed to load job", "job_id", jobID, "error", err)
		d.fail(ctx, jobID, fmt.Sprintf("load job: %v", err))
		return
	}
	if job == nil {
		// Purged externally; nothing to do.
		d.logger.Warn("dispatched job not found", "job_id", jobID)
		return
	}
	if job.State == core.StateSucceeded {
		// Idempotent re-dispatch guard.
		return
	}

	if err := d.store.UpdateState(ctx, jobID, core.StateRunning, "", nil); err != nil {
		if errors.Is(err, core.ErrJobFinalized) {
			return
		}
		d.logger.Error("failed to mark job running", "job_id", jobID, "error", err)
		return
	}

	result, err := d.execute(ctx, job)
	if err != nil {
		d.fail(ctx, jobID, err.Error())
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		d.fail(ctx, jobID, fmt.Sprintf("encode result: %v", err))
		return
	}
	if err := d.store.UpdateState(ctx, jobID, core.StateSucceeded, "", raw); err != nil {
		if !errors.Is(err, core.ErrJobFinalized) {
			d.logger.Error("failed to mark job succeeded", "job_id", jobID, "error", err)
		}
		return
	}
	metrics.RecordJobOutcome(string(core.StateSucceeded))
	d.recordGeneration(ctx, job, result)
	d.logger.Info("job succeeded", "job_id", jobID, "provider", result.Provider, "latency_ms", result.LatencyMs)
}

// execute deserializes the payload and runs the generation call under the
// configured timeout. Panics in the generator surface as errors so the
// worker slot survives.
func (d *Dispatcher) execute(ctx context.Context, job *core.Job) (result *core.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	var req core.Request
	if err := json.Unmarshal(job.Payload, &req); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	genCtx, cancel := context.WithTimeout(ctx, d.config.GenerateTimeout)
	defer cancel()

	started := time.Now()
	result, err = d.generator.Generate(genCtx, &req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("generation timed out after %v", d.config.GenerateTimeout)
		}
		return nil, fmt.Errorf("generation failed: %w", err)
	}
	if result == nil {
		return nil, errors.New("generator returned an empty result")
	}
	if result.LatencyMs == 0 {
		result.LatencyMs = time.Since(started).Milliseconds()
	}
	if result.FeedbackID == "" {
		result.FeedbackID = uuid.New().String()
	}
	return result, nil
}

// fail records a terminal failure. A finalized job means another writer
// converged first, which is fine.
func (d *Dispatcher) fail(ctx context.Context, jobID string, reason string) {
	if err := d.store.UpdateState(ctx, jobID, core.StateFailed, reason, nil); err != nil {
		if !errors.Is(err, core.ErrJobFinalized) {
			d.logger.Error("failed to mark job failed", "job_id", jobID, "error", err)
		}
		return
	}
	metrics.RecordJobOutcome(string(core.StateFailed))
	d.logger.Warn("job failed", "job_id", jobID, "reason", reason)
}

// recordGeneration writes the auxiliary audit record. Best effort: the job
// outcome is already durable.
func (d *Dispatcher) recordGeneration(ctx context.Context, job *core.Job, result *core.Result) {
	if d.gens == nil {
		return
	}
	gen := &core.Generation{
		JobID:      job.ID,
		FeedbackID: result.FeedbackID,
		Provider:   result.Provider,
		LatencyMs:  result.LatencyMs,
	}
	if err := d.gens.SaveGeneration(ctx, gen); err != nil {
		d.logger.Warn("failed to record generation", "job_id", job.ID, "error", err)
	}
}
