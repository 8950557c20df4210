package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meow-stack/stagefan/internal/metrics"
	"github.com/meow-stack/stagefan/internal/status"
	"github.com/meow-stack/stagefan/internal/store"
	"github.com/meow-stack/stagefan/internal/testutil"
	"github.com/meow-stack/stagefan/internal/types"
)

func seedStore(t *testing.T) store.Store {
	t.Helper()
	s := store.NewMemoryStore()
	ctx := context.Background()

	old := types.NewRun("run-old", "build")
	old.StartedAt = time.Now().Add(-time.Hour)
	old.AddBranch(&types.BranchRecord{Job: "linux", Status: types.BranchStatusSuccess})
	old.Finish(time.Now().Add(-50 * time.Minute))

	failed := types.NewRun("run-failed", "build")
	failed.AddBranch(&types.BranchRecord{Job: "mac", Status: types.BranchStatusFailure, Error: "exit 1"})
	failed.Finish(time.Now())

	lint := types.NewRun("run-lint", "lint")
	lint.StartedAt = time.Now().Add(-2 * time.Hour)

	for _, r := range []*types.Run{old, failed, lint} {
		require.NoError(t, s.Save(ctx, r))
	}
	return s
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decodeRuns(t *testing.T, w *httptest.ResponseRecorder) []string {
	t.Helper()
	var runs []*types.Run
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	return ids
}

func TestHealth(t *testing.T) {
	h := NewHandler(store.NewMemoryStore(), nil, testutil.DiscardLogger())

	w := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestListRuns(t *testing.T) {
	h := NewHandler(seedStore(t), nil, testutil.DiscardLogger())

	tests := []struct {
		name string
		path string
		want []string
	}{
		{"all newest first", "/runs", []string{"run-failed", "run-old", "run-lint"}},
		{"by pipeline", "/runs?pipeline=lint", []string{"run-lint"}},
		{"by status", "/runs?status=failed", []string{"run-failed"}},
		{"limit", "/runs?limit=1", []string{"run-failed"}},
		{"no match", "/runs?pipeline=none", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, h, tt.path)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.Equal(t, tt.want, decodeRuns(t, w))
		})
	}
}

func TestListRuns_BadQuery(t *testing.T) {
	h := NewHandler(store.NewMemoryStore(), nil, testutil.DiscardLogger())

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/runs?limit=abc").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/runs?limit=-1").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/runs?status=bogus").Code)
}

func TestGetRun(t *testing.T) {
	h := NewHandler(seedStore(t), nil, testutil.DiscardLogger())

	w := get(t, h, "/runs/run-failed")
	require.Equal(t, http.StatusOK, w.Code)

	var run types.Run
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, "run-failed", run.ID)
	assert.Equal(t, types.RunStatusFailed, run.Status)
	assert.Equal(t, types.BranchStatusFailure, run.Results["mac"])
}

func TestGetRun_NotFound(t *testing.T) {
	h := NewHandler(store.NewMemoryStore(), nil, testutil.DiscardLogger())

	w := get(t, h, "/runs/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "STORE_001")
}

func TestGetSummary(t *testing.T) {
	h := NewHandler(seedStore(t), nil, testutil.DiscardLogger())

	w := get(t, h, "/runs/run-failed/summary")
	require.Equal(t, http.StatusOK, w.Code)

	var summary status.RunSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.BranchStats.Failure)
	assert.Equal(t, []string{"mac: exit 1"}, summary.Errors)
}

func TestMetricsMount(t *testing.T) {
	s := store.NewMemoryStore()

	without := NewHandler(s, nil, testutil.DiscardLogger())
	assert.Equal(t, http.StatusNotFound, get(t, without, "/metrics").Code)

	m := metrics.New(nil)
	with := NewHandler(s, m.Handler(), testutil.DiscardLogger())
	w := get(t, with, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
}
