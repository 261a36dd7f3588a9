package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codecraft/aidoc/pkg/core"
)

// MaxReasonLength is the maximum length for stored failure reasons.
const MaxReasonLength = 4096

// Compile-time interface checks.
var (
	_ core.JobStore        = (*GormStore)(nil)
	_ core.GenerationStore = (*GormStore)(nil)
)

// GormStore implements the job record store using GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates the necessary tables.
func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&core.Job{}, &core.Generation{})
}

// Insert persists a new job record.
func (s *GormStore) Insert(ctx context.Context, job *core.Job) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.State == "" {
		job.State = core.StatePending
	}
	return s.db.WithContext(ctx).Create(job).Error
}

// UpdateState transitions a job to the given state, rewriting reason and
// result in the same write. The predicate excludes terminal rows so a late
// writer can never regress or overwrite a finished job; such writes report
// core.ErrJobFinalized.
func (s *GormStore) UpdateState(ctx context.Context, id string, state core.State, reason string, result []byte) error {
	res := s.db.WithContext(ctx).
		Model(&core.Job{}).
		Where("id = ?", id).
		Where("state NOT IN ?", core.TerminalStates).
		Updates(map[string]any{
			"state":      state,
			"reason":     sanitizeReason(reason),
			"result":     result,
			"updated_at": time.Now(),
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return core.ErrJobFinalized
	}
	return nil
}

// GetByID retrieves a job, returning (nil, nil) when no record exists.
func (s *GormStore) GetByID(ctx context.Context, id string) (*core.Job, error) {
	var job core.Job
	err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ListByStates returns all jobs currently in any of the given states.
func (s *GormStore) ListByStates(ctx context.Context, states ...core.State) ([]*core.Job, error) {
	var jobList []*core.Job
	err := s.db.WithContext(ctx).
		Where("state IN ?", states).
		Order("created_at ASC").
		Find(&jobList).Error
	return jobList, err
}

// SaveGeneration inserts the auxiliary record for a completed job.
func (s *GormStore) SaveGeneration(ctx context.Context, gen *core.Generation) error {
	if gen.ID == "" {
		gen.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Create(gen).Error
}

// RecordFeedback stores a feedback score against a previously issued
// feedback id.
func (s *GormStore) RecordFeedback(ctx context.Context, feedbackID string, score int) error {
	res := s.db.WithContext(ctx).
		Model(&core.Generation{}).
		Where("feedback_id = ?", feedbackID).
		Update("score", score)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return core.Errorf(core.CodeNotFound, "unknown feedback id: %s", feedbackID)
	}
	return nil
}

// RecordMetadata merges a field into the generation metadata for a job,
// creating the record when none exists yet.
func (s *GormStore) RecordMetadata(ctx context.Context, jobID string, field, value string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var gen core.Generation
		err := tx.First(&gen, "job_id = ?", jobID).Error
		created := false
		if errors.Is(err, gorm.ErrRecordNotFound) {
			gen = core.Generation{ID: uuid.New().String(), JobID: jobID}
			created = true
		} else if err != nil {
			return err
		}

		meta := map[string]string{}
		if len(gen.Metadata) > 0 {
			if err := json.Unmarshal(gen.Metadata, &meta); err != nil {
				meta = map[string]string{}
			}
		}
		meta[field] = value

		raw, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		gen.Metadata = raw
		if created {
			return tx.Create(&gen).Error
		}
		return tx.Save(&gen).Error
	})
}

// sanitizeReason strips control characters and truncates the message so a
// hostile or runaway upstream error cannot bloat the row.
func sanitizeReason(msg string) string {
	if msg == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(msg))
	for _, r := range msg {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > MaxReasonLength {
		out = out[:MaxReasonLength]
	}
	return out
}
