package types

import (
	"fmt"
	"sort"
	"time"
)

// RunStatus represents the lifecycle state of a run.
type RunStatus string

const (
	RunStatusPending RunStatus = "pending" // Created but not dispatched
	RunStatusRunning RunStatus = "running" // Branches are executing
	RunStatusDone    RunStatus = "done"    // Every branch succeeded
	RunStatusFailed  RunStatus = "failed"  // At least one branch failed
)

// Valid returns true if this is a recognized run status.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusPending, RunStatusRunning, RunStatusDone, RunStatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true if this status is final (done or failed).
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusDone || s == RunStatusFailed
}

// BranchStatus is the recorded outcome of one branch.
type BranchStatus string

const (
	BranchStatusPending BranchStatus = "PENDING"
	BranchStatusSuccess BranchStatus = "SUCCESS"
	BranchStatusFailure BranchStatus = "FAILURE"
)

// BranchRecord is the persisted outcome of one branch.
type BranchRecord struct {
	Job       string              `yaml:"job" json:"job"`
	Status    BranchStatus        `yaml:"status" json:"status"`
	Input     map[string][]string `yaml:"input,omitempty" json:"input,omitempty"`
	Error     string              `yaml:"error,omitempty" json:"error,omitempty"`
	StartedAt time.Time           `yaml:"started_at,omitempty" json:"started_at,omitempty"`
	Duration  time.Duration       `yaml:"duration,omitempty" json:"duration,omitempty"`
}

// Run is the persisted record of one pipeline run.
type Run struct {
	// Identity
	ID       string `yaml:"id" json:"id"`             // Unique identifier (e.g., "run-1a2b3c4de5f6")
	Pipeline string `yaml:"pipeline" json:"pipeline"` // Pipeline name

	// Lifecycle
	Status    RunStatus  `yaml:"status" json:"status"`
	StartedAt time.Time  `yaml:"started_at" json:"started_at"`
	DoneAt    *time.Time `yaml:"done_at,omitempty" json:"done_at,omitempty"`

	// Parsed parameters the run was dispatched with
	Args         map[string][]string `yaml:"args,omitempty" json:"args,omitempty"`
	Combinations []map[string]string `yaml:"combinations,omitempty" json:"combinations,omitempty"`

	// Results table, one entry per job name
	Results map[string]BranchStatus `yaml:"results" json:"results"`

	// Per-branch detail in dispatch order
	Branches []*BranchRecord `yaml:"branches,omitempty" json:"branches,omitempty"`
}

// NewRun creates a new run instance.
func NewRun(id, pipeline string) *Run {
	return &Run{
		ID:        id,
		Pipeline:  pipeline,
		Status:    RunStatusPending,
		StartedAt: time.Now(),
		Results:   make(map[string]BranchStatus),
	}
}

// AddBranch appends a branch record and mirrors its status into Results.
// A job already marked FAILURE stays failed.
func (r *Run) AddBranch(b *BranchRecord) {
	if r.Results == nil {
		r.Results = make(map[string]BranchStatus)
	}
	r.Branches = append(r.Branches, b)
	if r.Results[b.Job] != BranchStatusFailure {
		r.Results[b.Job] = b.Status
	}
}

// Finish marks the run done when every result succeeded and failed
// otherwise.
func (r *Run) Finish(at time.Time) {
	r.DoneAt = &at
	r.Status = RunStatusDone
	for _, s := range r.Results {
		if s != BranchStatusSuccess {
			r.Status = RunStatusFailed
			return
		}
	}
}

// Jobs returns the job names of the results table in sorted order.
func (r *Run) Jobs() []string {
	jobs := make([]string, 0, len(r.Results))
	for job := range r.Results {
		jobs = append(jobs, job)
	}
	sort.Strings(jobs)
	return jobs
}

// Branch returns the last record for job, preferring one whose status
// matches the job's result so a failed job reports its failing branch.
func (r *Run) Branch(job string) (*BranchRecord, bool) {
	var last *BranchRecord
	for i := len(r.Branches) - 1; i >= 0; i-- {
		b := r.Branches[i]
		if b.Job != job {
			continue
		}
		if b.Status == r.Results[job] {
			return b, true
		}
		if last == nil {
			last = b
		}
	}
	return last, last != nil
}

// Duration returns the run's wall time, or the time since start when the
// run has not finished.
func (r *Run) Duration() time.Duration {
	if r.DoneAt != nil {
		return r.DoneAt.Sub(r.StartedAt)
	}
	return time.Since(r.StartedAt)
}

// Validate checks that the run record is well-formed.
func (r *Run) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("run ID is required")
	}
	if !r.Status.Valid() {
		return fmt.Errorf("invalid run status: %s", r.Status)
	}
	for job, s := range r.Results {
		switch s {
		case BranchStatusPending, BranchStatusSuccess, BranchStatusFailure:
		default:
			return fmt.Errorf("job %s: invalid branch status: %s", job, s)
		}
	}
	return nil
}
