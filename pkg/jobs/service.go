// Package jobs provides the orchestrator facade used by request handlers:
// submit a generation job, poll its status, and record auxiliary feedback
// and metadata. Admission control is the rate limiter's responsibility and
// is composed by the caller, upstream of Submit.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/codecraft/aidoc/pkg/core"
	"github.com/codecraft/aidoc/pkg/dispatch"
)

// Service coordinates the job store and the dispatcher behind the public
// submit/poll contract.
type Service struct {
	store  core.JobStore
	gens   core.GenerationStore
	disp   *dispatch.Dispatcher
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates the orchestrator facade.
func NewService(store core.JobStore, gens core.GenerationStore, disp *dispatch.Dispatcher, opts ...Option) *Service {
	s := &Service{store: store, gens: gens, disp: disp, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StatusView is the well-formed status object pollers always receive.
type StatusView struct {
	ID     string       `json:"id"`
	State  core.State   `json:"state"`
	Reason string       `json:"reason,omitempty"`
	Result *core.Result `json:"result,omitempty"`
}

// Submit validates the request, persists a pending job, schedules it, and
// returns the job id immediately. Nothing is persisted on validation
// failure.
func (s *Service) Submit(ctx context.Context, ownerID string, req *core.Request) (string, error) {
	if req == nil || (strings.TrimSpace(req.Content) == "" && strings.TrimSpace(req.Context) == "") {
		return "", core.NewError(core.CodeValidationFailed, "either content or context is required")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", core.WrapError(core.CodeInternal, err, "encode job payload")
	}

	job := &core.Job{
		ID:      uuid.New().String(),
		OwnerID: ownerID,
		State:   core.StatePending,
		Payload: payload,
	}
	if err := s.store.Insert(ctx, job); err != nil {
		return "", core.WrapError(core.CodeInternal, err, "persist job")
	}

	if err := s.disp.Dispatch(ctx, job.ID); err != nil {
		// The job stays pending; the sweep picks it up.
		s.logger.Warn("immediate dispatch failed, job left pending", "job_id", job.ID, "error", err)
	}

	s.logger.Info("queued documentation job", "job_id", job.ID, "language", req.Language)
	return job.ID, nil
}

// Status returns the current state of an owned job. A job belonging to a
// different owner is indistinguishable from a missing one, so status never
// leaks across tenants.
func (s *Service) Status(ctx context.Context, ownerID, jobID string) (*StatusView, error) {
	job, err := s.store.GetByID(ctx, jobID)
	if err != nil {
		return nil, core.WrapError(core.CodeInternal, err, "load job")
	}
	if job == nil || job.OwnerID != ownerID {
		return nil, core.Errorf(core.CodeNotFound, "job not found: %s", jobID)
	}

	view := &StatusView{ID: job.ID, State: job.State, Reason: job.Reason}
	if len(job.Result) > 0 {
		var result core.Result
		if err := json.Unmarshal(job.Result, &result); err != nil {
			return nil, core.WrapError(core.CodeInternal, err, "decode job result")
		}
		view.Result = &result
	}
	return view, nil
}

// RecordFeedback stores a score against a feedback id issued with a
// result. It never touches job state.
func (s *Service) RecordFeedback(ctx context.Context, feedbackID string, score int) error {
	if err := s.gens.RecordFeedback(ctx, feedbackID, score); err != nil {
		s.logger.Warn("failed to record feedback", "feedback_id", feedbackID, "error", err)
		return err
	}
	return nil
}

// RecordMetadata stores a free-form field against a job's generation
// record. It never touches job state.
func (s *Service) RecordMetadata(ctx context.Context, jobID, field, value string) error {
	if strings.TrimSpace(field) == "" {
		return core.NewError(core.CodeValidationFailed, "metadata field is required")
	}
	if err := s.gens.RecordMetadata(ctx, jobID, field, value); err != nil {
		s.logger.Warn("failed to record metadata", "job_id", jobID, "field", field, "error", err)
		return err
	}
	return nil
}
