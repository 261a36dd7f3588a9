package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codecraft/aidoc/pkg/api"
	"github.com/codecraft/aidoc/pkg/core"
	"github.com/codecraft/aidoc/pkg/dispatch"
	"github.com/codecraft/aidoc/pkg/jobs"
	"github.com/codecraft/aidoc/pkg/ratelimit"
	"github.com/codecraft/aidoc/pkg/storage"
)

// allowAll never limits.
type allowAll struct{}

func (allowAll) Allow(context.Context, string, int, time.Duration) bool { return true }

// denyAll always limits.
type denyAll struct{}

func (denyAll) Allow(context.Context, string, int, time.Duration) bool { return false }

func newServer(t *testing.T, limiter ratelimit.Limiter) *httptest.Server {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "api.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open sqlite test db")

	store := storage.NewGormStore(db)
	require.NoError(t, store.Migrate(context.Background()))

	gen := core.GeneratorFunc(func(ctx context.Context, req *core.Request) (*core.Result, error) {
		return &core.Result{Text: "Adds two numbers.", Provider: "stub"}, nil
	})
	d := dispatch.New(store, gen, dispatch.WithGenerationStore(store), dispatch.WithConcurrency(2))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go d.Start(ctx)

	service := jobs.NewService(store, store, d)
	h := api.New(service, limiter, api.Quota{Limit: 30, Window: 15 * time.Minute})
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, owner string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if owner != "" {
		req.Header.Set("X-Owner-ID", owner)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestSubmitAndPoll(t *testing.T) {
	srv := newServer(t, allowAll{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/docs/jobs", "owner-1", map[string]string{
		"content":  "function add(a, b) { return a + b; }",
		"language": "javascript",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	jobID, _ := decodeBody(t, resp)["jobId"].(string)
	require.NotEmpty(t, jobID)

	statusURL := fmt.Sprintf("%s/v1/docs/jobs/%s", srv.URL, jobID)
	var status map[string]any
	require.Eventually(t, func() bool {
		resp := doJSON(t, http.MethodGet, statusURL, "owner-1", nil)
		if resp.StatusCode != http.StatusOK {
			return false
		}
		status = decodeBody(t, resp)
		return status["state"] == "succeeded"
	}, 5*time.Second, 20*time.Millisecond)

	result, ok := status["result"].(map[string]any)
	require.True(t, ok, "succeeded status carries the result")
	assert.Equal(t, "Adds two numbers.", result["text"])
}

func TestSubmit_MissingOwner(t *testing.T) {
	srv := newServer(t, allowAll{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/docs/jobs", "", map[string]string{"content": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_failed", decodeBody(t, resp)["error"])
}

func TestSubmit_EmptyBody(t *testing.T) {
	srv := newServer(t, allowAll{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/docs/jobs", "owner-1", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmit_RateLimited(t *testing.T) {
	srv := newServer(t, denyAll{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/docs/jobs", "owner-1", map[string]string{"content": "x"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate_limited", decodeBody(t, resp)["error"])
}

func TestSubmit_QuotaExhaustion(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "quota.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	store := storage.NewGormStore(db)
	require.NoError(t, store.Migrate(context.Background()))

	gen := core.GeneratorFunc(func(ctx context.Context, req *core.Request) (*core.Result, error) {
		return &core.Result{Text: "x"}, nil
	})
	d := dispatch.New(store, gen)
	service := jobs.NewService(store, store, d)

	local := ratelimit.NewLocalLimiter()
	t.Cleanup(local.Stop)
	h := api.New(service, ratelimit.NewFallback(nil, local), api.Quota{Limit: 2, Window: time.Minute})
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)

	for i := 0; i < 2; i++ {
		resp := doJSON(t, http.MethodPost, srv.URL+"/v1/docs/jobs", "owner-1", map[string]string{"content": "x"})
		assert.Equal(t, http.StatusAccepted, resp.StatusCode, "request %d within quota", i+1)
	}
	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/docs/jobs", "owner-1", map[string]string{"content": "x"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// Another owner still has headroom.
	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/docs/jobs", "owner-2", map[string]string{"content": "x"})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestStatus_ForeignOwner(t *testing.T) {
	srv := newServer(t, allowAll{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/docs/jobs", "owner-1", map[string]string{"content": "x"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	jobID, _ := decodeBody(t, resp)["jobId"].(string)

	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/docs/jobs/"+jobID, "owner-2", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatus_Unknown(t *testing.T) {
	srv := newServer(t, allowAll{})

	resp := doJSON(t, http.MethodGet, srv.URL+"/v1/docs/jobs/no-such-job", "owner-1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFeedback(t *testing.T) {
	srv := newServer(t, allowAll{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/docs/jobs", "owner-1", map[string]string{"content": "x"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	jobID, _ := decodeBody(t, resp)["jobId"].(string)

	var feedbackID string
	require.Eventually(t, func() bool {
		resp := doJSON(t, http.MethodGet, srv.URL+"/v1/docs/jobs/"+jobID, "owner-1", nil)
		if resp.StatusCode != http.StatusOK {
			return false
		}
		status := decodeBody(t, resp)
		if status["state"] != "succeeded" {
			return false
		}
		result, _ := status["result"].(map[string]any)
		feedbackID, _ = result["feedbackId"].(string)
		return feedbackID != ""
	}, 5*time.Second, 20*time.Millisecond)

	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/docs/feedback", "owner-1", map[string]any{
		"feedbackId": feedbackID,
		"score":      5,
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/docs/feedback", "owner-1", map[string]any{"score": 5})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetadata(t *testing.T) {
	srv := newServer(t, allowAll{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/docs/jobs", "owner-1", map[string]string{"content": "x"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	jobID, _ := decodeBody(t, resp)["jobId"].(string)

	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/docs/jobs/"+jobID+"/metadata", "owner-1", map[string]string{
		"field": "editor",
		"value": "vscode",
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/docs/jobs/"+jobID+"/metadata", "owner-1", map[string]string{
		"field": "",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	srv := newServer(t, allowAll{})
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
