// Package testutil provides test infrastructure, fixtures, and helpers for stagefan.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/meow-stack/stagefan/internal/config"
	"github.com/meow-stack/stagefan/internal/types"
)

// NewTestConfig creates a test configuration with sensible defaults.
// The paths are set to temporary directories that will be cleaned up.
func NewTestConfig(t *testing.T) *config.Config {
	t.Helper()
	tmpDir := t.TempDir()

	cfg := config.Default()
	cfg.Paths.RunsDir = filepath.Join(tmpDir, "runs")
	cfg.Paths.LogsDir = filepath.Join(tmpDir, "logs")
	cfg.Logging.Level = config.LogLevelDebug

	for _, dir := range []string{cfg.Paths.RunsDir, cfg.Paths.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}

	return cfg
}

// WritePipeline writes a pipeline definition named name into dir and
// returns its path.
func WritePipeline(t *testing.T, dir, name, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create directory %s: %v", dir, err)
	}
	path := filepath.Join(dir, name+".pipeline.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write pipeline %s: %v", path, err)
	}
	return path
}

// NewTestRun creates a finished run whose branches have the given statuses.
func NewTestRun(t *testing.T, id, pipeline string, results map[string]types.BranchStatus) *types.Run {
	t.Helper()
	run := types.NewRun(id, pipeline)
	for job, st := range results {
		run.AddBranch(&types.BranchRecord{
			Job:       job,
			Status:    st,
			Input:     map[string][]string{"job_name": {job}},
			StartedAt: run.StartedAt,
			Duration:  time.Millisecond,
		})
	}
	run.Finish(run.StartedAt.Add(time.Second))
	return run
}
