// Package store persists finished runs.
package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/meow-stack/stagefan/internal/config"
	"github.com/meow-stack/stagefan/internal/orchestrator"
	"github.com/meow-stack/stagefan/internal/params"
	"github.com/meow-stack/stagefan/internal/types"
)

// Store provides persistence for run records.
type Store interface {
	// Save persists the run, replacing any record with the same ID.
	Save(ctx context.Context, run *types.Run) error

	// Get retrieves a run by ID. A missing run yields errors.RunNotFound.
	Get(ctx context.Context, id string) (*types.Run, error)

	// List returns runs matching filter, newest first.
	List(ctx context.Context, filter Filter) ([]*types.Run, error)

	// Delete removes a run.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close() error
}

// Filter for listing runs.
type Filter struct {
	Status   types.RunStatus // Filter by status (empty = all)
	Pipeline string          // Filter by pipeline name (empty = all)
	Limit    int             // Maximum number of runs (0 = all)
}

func (f Filter) match(run *types.Run) bool {
	if f.Status != "" && run.Status != f.Status {
		return false
	}
	if f.Pipeline != "" && run.Pipeline != f.Pipeline {
		return false
	}
	return true
}

// apply filters runs, sorts them newest first and applies the limit.
func (f Filter) apply(runs []*types.Run) []*types.Run {
	out := runs[:0]
	for _, r := range runs {
		if f.match(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// Open creates the store selected by cfg. Relative paths resolve against
// baseDir.
func Open(cfg *config.Config, baseDir string) (Store, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendYAML, "":
		return NewYAMLStore(cfg.RunsDir(baseDir))
	case config.StoreBackendRedis:
		return NewRedisStore(cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB,
			WithPrefix(cfg.Store.RedisPrefix),
			WithTTL(cfg.Store.RedisTTL),
		), nil
	case config.StoreBackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}

// RunFromReport converts an orchestrator report into a finished run record.
func RunFromReport(report *orchestrator.Report, args params.Metadata, combs []params.Combination) *types.Run {
	run := types.NewRun(report.RunID, report.Pipeline)
	run.StartedAt = report.StartedAt

	if len(args) > 0 {
		run.Args = map[string][]string(args.Clone())
	}
	for _, c := range combs {
		run.Combinations = append(run.Combinations, map[string]string(c))
	}

	for _, b := range report.Branches {
		rec := &types.BranchRecord{
			Job:       b.Job,
			Status:    types.BranchStatus(b.Status),
			Input:     map[string][]string(b.Input.Clone()),
			StartedAt: b.StartedAt,
			Duration:  b.Duration,
		}
		if b.Err != nil {
			rec.Error = b.Err.Error()
		}
		run.Branches = append(run.Branches, rec)
	}

	// The results table is authoritative, including entries that predate
	// this run's branches.
	for job, s := range report.Results {
		run.Results[job] = types.BranchStatus(s)
	}

	run.Finish(report.FinishedAt)
	return run
}

// Aggregator returns an orchestrator aggregator that saves each report as
// a run record.
func Aggregator(s Store, args params.Metadata, combs []params.Combination) orchestrator.Aggregator {
	return orchestrator.AggregatorFunc(func(ctx context.Context, report *orchestrator.Report) error {
		return s.Save(ctx, RunFromReport(report, args, combs))
	})
}

func runPath(dir, id string) string {
	return filepath.Join(dir, id+".yaml")
}
