package metrics

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meow-stack/stagefan/internal/orchestrator"
)

func TestObserveBranch(t *testing.T) {
	m := New(nil)
	obs := m.ForPipeline("build")

	obs.ObserveBranch(orchestrator.BranchOutcome{Job: "a", Status: orchestrator.StatusSuccess, Duration: 100 * time.Millisecond})
	obs.ObserveBranch(orchestrator.BranchOutcome{Job: "b", Status: orchestrator.StatusSuccess, Duration: time.Second})
	obs.ObserveBranch(orchestrator.BranchOutcome{Job: "c", Status: orchestrator.StatusFailure, Duration: time.Second})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.branches.WithLabelValues("build", "SUCCESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.branches.WithLabelValues("build", "FAILURE")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.branchDuration))
}

func TestAggregatorCountsRuns(t *testing.T) {
	m := New(nil)
	agg := m.Aggregator()
	ctx := context.Background()

	ok := &orchestrator.Report{Pipeline: "build", Results: map[string]orchestrator.Status{"a": orchestrator.StatusSuccess}}
	bad := &orchestrator.Report{Pipeline: "build", Results: map[string]orchestrator.Status{"a": orchestrator.StatusFailure}}

	require.NoError(t, agg.OnAllBranchesComplete(ctx, ok))
	require.NoError(t, agg.OnAllBranchesComplete(ctx, bad))
	require.NoError(t, agg.OnAllBranchesComplete(ctx, bad))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("build", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues("build", "failure")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(nil)
	m.ForPipeline("lint").ObserveBranch(orchestrator.BranchOutcome{Status: orchestrator.StatusSuccess})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(body, `stagefan_branches_total{pipeline="lint",status="SUCCESS"} 1`), body)
	assert.Contains(t, body, "stagefan_branch_duration_seconds")
}
