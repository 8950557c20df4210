package orchestrator

import (
	"sort"
	"time"

	"github.com/meow-stack/stagefan/internal/stage"
)

// BranchOutcome is what one branch hands back to the join barrier.
type BranchOutcome struct {
	Job       string
	Input     stage.Input
	Status    Status
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// Report is passed to the aggregator once every branch has finished.
type Report struct {
	RunID      string
	Pipeline   string
	StartedAt  time.Time
	FinishedAt time.Time

	// Results is a snapshot of the results table, one entry per job name.
	Results map[string]Status

	// Branches holds one outcome per dispatched input, in dispatch order.
	Branches []BranchOutcome
}

// Succeeded returns true if no job recorded a failure.
func (r *Report) Succeeded() bool {
	for _, s := range r.Results {
		if s != StatusSuccess {
			return false
		}
	}
	return true
}

// Failed returns the names of failed jobs in sorted order.
func (r *Report) Failed() []string {
	var failed []string
	for job, s := range r.Results {
		if s == StatusFailure {
			failed = append(failed, job)
		}
	}
	sort.Strings(failed)
	return failed
}

// Counts returns the number of jobs per status.
func (r *Report) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, s := range r.Results {
		counts[s]++
	}
	return counts
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
