package core

import (
	"context"
	"time"
)

// State represents the lifecycle state of a documentation job.
type State string

const (
	StatePending   State = "pending"   // accepted, not started
	StateRunning   State = "running"   // claimed by a worker
	StateSucceeded State = "succeeded" // result available
	StateFailed    State = "failed"    // reason available
)

// TerminalStates lists the states no transition leaves.
var TerminalStates = []State{StateSucceeded, StateFailed}

// Terminal reports whether s is a terminal state.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// CanTransitionTo reports whether moving from s to next is legal.
// Transitions are forward-only: pending -> running -> succeeded|failed.
// A pending job may skip straight to a terminal state (a worker that dies
// between claiming and marking running is indistinguishable from one that
// never claimed).
func (s State) CanTransitionTo(next State) bool {
	switch s {
	case StatePending:
		return next == StateRunning || next.Terminal()
	case StateRunning:
		return next.Terminal()
	default:
		return false
	}
}

// Job is the persisted record of one documentation-generation unit of work.
// The store exclusively owns the persisted bytes; workers hold transient,
// non-authoritative references and always reconcile back through the store.
type Job struct {
	ID        string    `gorm:"primaryKey;size:36"`
	OwnerID   string    `gorm:"index;size:64;not null"`
	State     State     `gorm:"index;size:20;default:'pending'"`
	Payload   []byte    `gorm:"type:bytes"` // immutable once persisted; sole source of truth for re-execution
	Result    []byte    `gorm:"type:bytes"` // set only on succeeded
	Reason    string    `gorm:"type:text"`  // set only on failed
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Generation is the auxiliary record written alongside a succeeded job:
// provider audit fields, the feedback handle handed to clients, and
// free-form metadata recorded after the fact. It never affects job state.
type Generation struct {
	ID         string `gorm:"primaryKey;size:36"`
	JobID      string `gorm:"uniqueIndex;size:36;not null"`
	FeedbackID string `gorm:"index;size:36"`
	Provider   string `gorm:"size:64"`
	LatencyMs  int64
	Score      *int
	Metadata   []byte    `gorm:"type:bytes"` // JSON object of recorded fields
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// JobStore defines the persistence contract for job records. All operations
// are atomic at the single-row level; no multi-row transaction is required.
type JobStore interface {
	// Insert persists a new job record.
	Insert(ctx context.Context, job *Job) error

	// UpdateState transitions a job, rewriting reason and result together
	// with the state. Implementations must refuse transitions out of a
	// terminal state and report ErrJobFinalized.
	UpdateState(ctx context.Context, id string, state State, reason string, result []byte) error

	// GetByID returns the job, or (nil, nil) when no record exists.
	GetByID(ctx context.Context, id string) (*Job, error)

	// ListByStates returns a snapshot of all jobs currently in any of the
	// given states. Used at startup recovery; eventual freshness is fine.
	ListByStates(ctx context.Context, states ...State) ([]*Job, error)
}

// GenerationStore persists the auxiliary generation records.
type GenerationStore interface {
	SaveGeneration(ctx context.Context, gen *Generation) error
	RecordFeedback(ctx context.Context, feedbackID string, score int) error
	RecordMetadata(ctx context.Context, jobID string, field, value string) error
}
