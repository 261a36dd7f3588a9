// Package api exposes the HTTP surface of the backend: submission, status
// polling, feedback, metadata, health, and metrics. Quota admission runs
// here, upstream of the orchestrator, keyed "user-docs:<owner>".
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codecraft/aidoc/pkg/core"
	"github.com/codecraft/aidoc/pkg/jobs"
	"github.com/codecraft/aidoc/pkg/ratelimit"
)

const quotaFeature = "user-docs"

// ownerHeader carries the authenticated principal, injected by the
// upstream auth layer. Authentication itself lives outside this service.
const ownerHeader = "X-Owner-ID"

// Quota is the per-owner submission quota.
type Quota struct {
	Limit  int
	Window time.Duration
}

// Handler serves the documentation job API.
type Handler struct {
	service *jobs.Service
	limiter ratelimit.Limiter
	quota   Quota
	logger  *slog.Logger
}

// New creates the HTTP handler.
func New(service *jobs.Service, limiter ratelimit.Limiter, quota Quota) *Handler {
	return &Handler{service: service, limiter: limiter, quota: quota, logger: slog.Default()}
}

// Router builds the route tree.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1/docs", func(r chi.Router) {
		r.Post("/jobs", h.submitJob)
		r.Get("/jobs/{jobID}", h.jobStatus)
		r.Post("/jobs/{jobID}/metadata", h.recordMetadata)
		r.Post("/feedback", h.recordFeedback)
	})
	return r
}

func (h *Handler) submitJob(w http.ResponseWriter, r *http.Request) {
	owner := r.Header.Get(ownerHeader)
	if owner == "" {
		writeError(w, core.NewError(core.CodeValidationFailed, "missing owner identity"))
		return
	}

	if !h.limiter.Allow(r.Context(), quotaFeature+":"+owner, h.quota.Limit, h.quota.Window) {
		writeError(w, core.NewError(core.CodeRateLimited, "too many requests, retry later"))
		return
	}

	var req core.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, core.WrapError(core.CodeValidationFailed, err, "malformed request body"))
		return
	}

	jobID, err := h.service.Submit(r.Context(), owner, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"jobId": jobID})
}

func (h *Handler) jobStatus(w http.ResponseWriter, r *http.Request) {
	owner := r.Header.Get(ownerHeader)
	if owner == "" {
		writeError(w, core.NewError(core.CodeValidationFailed, "missing owner identity"))
		return
	}

	view, err := h.service.Status(r.Context(), owner, chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) recordFeedback(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FeedbackID string `json:"feedbackId"`
		Score      int    `json:"score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.FeedbackID == "" {
		writeError(w, core.NewError(core.CodeValidationFailed, "feedbackId is required"))
		return
	}
	if err := h.service.RecordFeedback(r.Context(), body.FeedbackID, body.Score); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) recordMetadata(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, core.WrapError(core.CodeValidationFailed, err, "malformed request body"))
		return
	}
	if err := h.service.RecordMetadata(r.Context(), chi.URLParam(r, "jobID"), body.Field, body.Value); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := core.CodeOf(err)
	msg := err.Error()
	var coded *core.Error
	if errors.As(err, &coded) {
		msg = coded.Msg
	}
	writeJSON(w, statusFor(code), map[string]string{
		"error":   string(code),
		"message": msg,
	})
}

func statusFor(code core.Code) int {
	switch code {
	case core.CodeValidationFailed:
		return http.StatusBadRequest
	case core.CodeNotFound:
		return http.StatusNotFound
	case core.CodeRateLimited:
		return http.StatusTooManyRequests
	case core.CodeUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
