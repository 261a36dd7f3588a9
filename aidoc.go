// Package aidoc provides an asynchronous documentation-generation pipeline
// with a durable job table and sliding-window rate limiting.
//
// This is the main package users should import. It re-exports the public
// types from the pkg/ packages for a clean API surface.
//
// Basic usage:
//
//	db, _ := gorm.Open(sqlite.Open("aidoc.db"), &gorm.Config{})
//	store := aidoc.NewGormStore(db)
//	store.Migrate(context.Background())
//
//	dispatcher := aidoc.NewDispatcher(store, aidoc.NewStatic())
//	go dispatcher.Start(ctx)
//	dispatcher.Recover(ctx)
//
//	service := aidoc.NewService(store, store, dispatcher)
//	jobID, _ := service.Submit(ctx, "user-1", &aidoc.Request{
//	    Content:  "function add(a,b){return a+b;}",
//	    Language: "javascript",
//	})
//	view, _ := service.Status(ctx, "user-1", jobID)
package aidoc

import (
	"gorm.io/gorm"

	"github.com/codecraft/aidoc/pkg/core"
	"github.com/codecraft/aidoc/pkg/dispatch"
	"github.com/codecraft/aidoc/pkg/generate"
	"github.com/codecraft/aidoc/pkg/jobs"
	"github.com/codecraft/aidoc/pkg/ratelimit"
	"github.com/codecraft/aidoc/pkg/storage"
)

// Type aliases re-exporting the pkg/ packages.
type (
	// Job is the persisted record of one generation unit of work.
	Job = core.Job

	// State represents the lifecycle state of a job.
	State = core.State

	// Request is the serialized input for one generation.
	Request = core.Request

	// Result is the output of one generation.
	Result = core.Result

	// Generator produces documentation for a request.
	Generator = core.Generator

	// GeneratorFunc adapts a function to the Generator interface.
	GeneratorFunc = core.GeneratorFunc

	// JobStore defines the persistence contract for job records.
	JobStore = core.JobStore

	// GenerationStore persists auxiliary generation records.
	GenerationStore = core.GenerationStore

	// Error is a coded error.
	Error = core.Error

	// Code classifies an error.
	Code = core.Code

	// Service is the orchestrator facade: submit, poll, record.
	Service = jobs.Service

	// StatusView is the status object pollers receive.
	StatusView = jobs.StatusView

	// Dispatcher runs jobs on a bounded worker pool.
	Dispatcher = dispatch.Dispatcher

	// DispatchOption configures a Dispatcher.
	DispatchOption = dispatch.Option

	// GormStore implements the job store using GORM.
	GormStore = storage.GormStore

	// Limiter answers sliding-window admission decisions.
	Limiter = ratelimit.Limiter

	// StaticGenerator is the deterministic heuristic renderer.
	StaticGenerator = generate.StaticGenerator
)

// State constants.
const (
	StatePending   = core.StatePending
	StateRunning   = core.StateRunning
	StateSucceeded = core.StateSucceeded
	StateFailed    = core.StateFailed
)

// Error codes.
const (
	CodeValidationFailed = core.CodeValidationFailed
	CodeNotFound         = core.CodeNotFound
	CodeRateLimited      = core.CodeRateLimited
	CodeUpstreamFailure  = core.CodeUpstreamFailure
	CodeInternal         = core.CodeInternal
)

// NewGormStore creates a GORM-backed job store.
func NewGormStore(db *gorm.DB) *GormStore {
	return storage.NewGormStore(db)
}

// NewDispatcher creates a dispatcher over the store and generator.
func NewDispatcher(store JobStore, generator Generator, opts ...DispatchOption) *Dispatcher {
	return dispatch.New(store, generator, opts...)
}

// NewService creates the orchestrator facade.
func NewService(store JobStore, gens GenerationStore, d *Dispatcher, opts ...jobs.Option) *Service {
	return jobs.NewService(store, gens, d, opts...)
}

// NewStatic creates the deterministic heuristic renderer.
func NewStatic() StaticGenerator {
	return generate.NewStatic()
}

// NewLocalLimiter creates the in-process rate-limiter backend.
func NewLocalLimiter() *ratelimit.LocalLimiter {
	return ratelimit.NewLocalLimiter()
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return core.IsCode(err, code)
}
