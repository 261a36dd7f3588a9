package jobs_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codecraft/aidoc/pkg/core"
	"github.com/codecraft/aidoc/pkg/dispatch"
	"github.com/codecraft/aidoc/pkg/jobs"
	"github.com/codecraft/aidoc/pkg/storage"
)

type fixture struct {
	store   *storage.GormStore
	service *jobs.Service
}

// newFixture wires a service against a file-backed SQLite store with a
// running dispatcher driven by the given generator.
func newFixture(t *testing.T, gen core.Generator) *fixture {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "jobs.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open sqlite test db")

	store := storage.NewGormStore(db)
	require.NoError(t, store.Migrate(context.Background()))

	d := dispatch.New(store, gen, dispatch.WithGenerationStore(store), dispatch.WithConcurrency(2))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go d.Start(ctx)

	return &fixture{
		store:   store,
		service: jobs.NewService(store, store, d),
	}
}

func echoGenerator(text string) core.Generator {
	return core.GeneratorFunc(func(ctx context.Context, req *core.Request) (*core.Result, error) {
		return &core.Result{Text: text, Provider: "stub"}, nil
	})
}

// awaitState polls until the job reaches the wanted state.
func (f *fixture) awaitState(t *testing.T, ownerID, jobID string, want core.State) *jobs.StatusView {
	t.Helper()
	var view *jobs.StatusView
	require.Eventually(t, func() bool {
		v, err := f.service.Status(context.Background(), ownerID, jobID)
		if err != nil {
			return false
		}
		view = v
		return v.State == want
	}, 5*time.Second, 20*time.Millisecond, "job %s reaches state %s", jobID, want)
	return view
}

func TestSubmit_RejectsEmptyRequest(t *testing.T) {
	f := newFixture(t, echoGenerator("x"))

	for name, req := range map[string]*core.Request{
		"nil":        nil,
		"empty":      {},
		"whitespace": {Content: "   ", Context: "\t\n"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.service.Submit(context.Background(), "owner-1", req)
			require.Error(t, err)
			assert.True(t, core.IsCode(err, core.CodeValidationFailed))
		})
	}

	// Nothing was persisted for any rejected request.
	unfinished, err := f.store.ListByStates(context.Background(), core.StatePending, core.StateRunning)
	require.NoError(t, err)
	assert.Empty(t, unfinished)
}

func TestSubmit_RunsJobToCompletion(t *testing.T) {
	f := newFixture(t, echoGenerator("Adds two numbers."))

	jobID, err := f.service.Submit(context.Background(), "owner-1", &core.Request{
		Content:  "function add(a, b) { return a + b; }",
		Language: "javascript",
	})
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	view := f.awaitState(t, "owner-1", jobID, core.StateSucceeded)
	require.NotNil(t, view.Result)
	assert.Equal(t, "Adds two numbers.", view.Result.Text)
	assert.Equal(t, "stub", view.Result.Provider)
	assert.NotEmpty(t, view.Result.FeedbackID)
}

func TestSubmit_ContextOnlyIsAccepted(t *testing.T) {
	f := newFixture(t, echoGenerator("Described."))

	jobID, err := f.service.Submit(context.Background(), "owner-1", &core.Request{
		Context: "a helper that formats currency values",
	})
	require.NoError(t, err)
	f.awaitState(t, "owner-1", jobID, core.StateSucceeded)
}

func TestSubmit_GeneratorFailureSurfacesReason(t *testing.T) {
	f := newFixture(t, core.GeneratorFunc(func(ctx context.Context, req *core.Request) (*core.Result, error) {
		return nil, core.NewError(core.CodeUpstreamFailure, "provider unavailable")
	}))

	jobID, err := f.service.Submit(context.Background(), "owner-1", &core.Request{Content: "x"})
	require.NoError(t, err)

	view := f.awaitState(t, "owner-1", jobID, core.StateFailed)
	assert.Contains(t, view.Reason, "provider unavailable")
	assert.Nil(t, view.Result)
}

func TestStatus_UnknownJob(t *testing.T) {
	f := newFixture(t, echoGenerator("x"))

	_, err := f.service.Status(context.Background(), "owner-1", "no-such-job")
	require.Error(t, err)
	assert.True(t, core.IsCode(err, core.CodeNotFound))
}

func TestStatus_ForeignOwnerLooksMissing(t *testing.T) {
	f := newFixture(t, echoGenerator("x"))

	jobID, err := f.service.Submit(context.Background(), "owner-1", &core.Request{Content: "x"})
	require.NoError(t, err)

	_, err = f.service.Status(context.Background(), "owner-2", jobID)
	require.Error(t, err)
	assert.True(t, core.IsCode(err, core.CodeNotFound), "foreign jobs must be indistinguishable from missing ones")
}

func TestRecordFeedback(t *testing.T) {
	f := newFixture(t, echoGenerator("x"))

	jobID, err := f.service.Submit(context.Background(), "owner-1", &core.Request{Content: "x"})
	require.NoError(t, err)
	view := f.awaitState(t, "owner-1", jobID, core.StateSucceeded)

	require.NoError(t, f.service.RecordFeedback(context.Background(), view.Result.FeedbackID, 4))

	err = f.service.RecordFeedback(context.Background(), "unknown-feedback-id", 4)
	require.Error(t, err)
	assert.True(t, core.IsCode(err, core.CodeNotFound))
}

func TestRecordMetadata(t *testing.T) {
	f := newFixture(t, echoGenerator("x"))

	jobID, err := f.service.Submit(context.Background(), "owner-1", &core.Request{Content: "x"})
	require.NoError(t, err)
	f.awaitState(t, "owner-1", jobID, core.StateSucceeded)

	require.NoError(t, f.service.RecordMetadata(context.Background(), jobID, "editor", "vscode"))

	err = f.service.RecordMetadata(context.Background(), jobID, "  ", "x")
	require.Error(t, err)
	assert.True(t, core.IsCode(err, core.CodeValidationFailed))
}
