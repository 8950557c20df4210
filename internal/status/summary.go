// Package status renders run records for the terminal.
package status

import (
	"sort"
	"time"

	"github.com/meow-stack/stagefan/internal/types"
)

// RunSummary contains computed information about a run for display.
type RunSummary struct {
	ID          string              `json:"id"`
	Pipeline    string              `json:"pipeline"`
	Status      types.RunStatus     `json:"status"`
	StartedAt   time.Time           `json:"started_at"`
	DoneAt      *time.Time          `json:"done_at,omitempty"`
	Args        map[string][]string `json:"args,omitempty"`
	BranchStats BranchStats         `json:"branch_stats"`
	Branches    []BranchSummary     `json:"branches,omitempty"`
	Errors      []string            `json:"errors,omitempty"`
}

// BranchStats contains the branch count breakdown.
type BranchStats struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failure int `json:"failure"`
	Pending int `json:"pending"`
}

// BranchSummary is one row of the results table.
type BranchSummary struct {
	Job      string             `json:"job"`
	Status   types.BranchStatus `json:"status"`
	Duration time.Duration      `json:"duration,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// NewRunSummary creates a summary from a run.
func NewRunSummary(run *types.Run) *RunSummary {
	summary := &RunSummary{
		ID:        run.ID,
		Pipeline:  run.Pipeline,
		Status:    run.Status,
		StartedAt: run.StartedAt,
		DoneAt:    run.DoneAt,
		Args:      run.Args,
	}

	for _, job := range run.Jobs() {
		bs := BranchSummary{Job: job, Status: run.Results[job]}
		if rec, ok := run.Branch(job); ok {
			bs.Duration = rec.Duration
			bs.Error = rec.Error
		}
		summary.Branches = append(summary.Branches, bs)

		summary.BranchStats.Total++
		switch bs.Status {
		case types.BranchStatusSuccess:
			summary.BranchStats.Success++
		case types.BranchStatusFailure:
			summary.BranchStats.Failure++
			if bs.Error != "" {
				summary.Errors = append(summary.Errors, job+": "+bs.Error)
			}
		default:
			summary.BranchStats.Pending++
		}
	}

	return summary
}

// NewRunSummaries summarizes runs, newest first.
func NewRunSummaries(runs []*types.Run) []*RunSummary {
	out := make([]*RunSummary, 0, len(runs))
	for _, r := range runs {
		out = append(out, NewRunSummary(r))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}
