package orchestrator

import (
	"sort"
	"sync"
)

// Status is the outcome recorded for one job in the results table.
type Status string

const (
	// StatusPending marks an initialized entry whose branch has not finished.
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// Valid returns true if s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailure:
		return true
	}
	return false
}

// ResultsResource names the lock guarding a ResultsTable.
const ResultsResource = "results"

// LockSet hands out one mutex per resource name. Callers that touch the
// same resource serialize on the same lock.
type LockSet struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLockSet creates an empty LockSet.
func NewLockSet() *LockSet {
	return &LockSet{locks: make(map[string]*sync.Mutex)}
}

func (l *LockSet) lock(name string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[name]
	if !ok {
		m = &sync.Mutex{}
		l.locks[name] = m
	}
	return m
}

// With runs fn while holding the lock for name.
func (l *LockSet) With(name string, fn func()) {
	m := l.lock(name)
	m.Lock()
	defer m.Unlock()
	fn()
}

// ResultsTable maps job names to their status. Every read and write goes
// through the ResultsResource lock, so branches may record concurrently.
type ResultsTable struct {
	locks   *LockSet
	entries map[string]Status
}

// NewResultsTable creates a table with its own LockSet.
func NewResultsTable() *ResultsTable {
	return NewResultsTableWithLocks(NewLockSet())
}

// NewResultsTableWithLocks creates a table guarded by locks, for callers
// that share one LockSet across resources.
func NewResultsTableWithLocks(locks *LockSet) *ResultsTable {
	return &ResultsTable{
		locks:   locks,
		entries: make(map[string]Status),
	}
}

// Init creates a pending entry for job. An existing entry is left as is.
func (t *ResultsTable) Init(job string) {
	t.locks.With(ResultsResource, func() {
		if _, ok := t.entries[job]; !ok {
			t.entries[job] = StatusPending
		}
	})
}

// Set records status for job. Branches that share a job name share one
// entry, so a recorded FAILURE is never replaced.
func (t *ResultsTable) Set(job string, status Status) {
	t.locks.With(ResultsResource, func() {
		if t.entries[job] == StatusFailure {
			return
		}
		t.entries[job] = status
	})
}

// Get returns the status of job.
func (t *ResultsTable) Get(job string) (Status, bool) {
	var (
		s  Status
		ok bool
	)
	t.locks.With(ResultsResource, func() {
		s, ok = t.entries[job]
	})
	return s, ok
}

// Snapshot returns a copy of all entries.
func (t *ResultsTable) Snapshot() map[string]Status {
	var out map[string]Status
	t.locks.With(ResultsResource, func() {
		out = make(map[string]Status, len(t.entries))
		for k, v := range t.entries {
			out[k] = v
		}
	})
	return out
}

// Jobs returns the job names in sorted order.
func (t *ResultsTable) Jobs() []string {
	var jobs []string
	t.locks.With(ResultsResource, func() {
		jobs = make([]string, 0, len(t.entries))
		for k := range t.entries {
			jobs = append(jobs, k)
		}
	})
	sort.Strings(jobs)
	return jobs
}
