package orchestrator

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	serrors "github.com/meow-stack/stagefan/internal/errors"
	"github.com/meow-stack/stagefan/internal/logging"
	"github.com/meow-stack/stagefan/internal/params"
	"github.com/meow-stack/stagefan/internal/stage"
)

// DefaultJob names the single branch of a pipeline without a parallel key.
const DefaultJob = "default"

// Executor runs one branch.
type Executor interface {
	// Execute runs the branch for in. A returned error marks the branch
	// failed; it never affects sibling branches.
	Execute(ctx context.Context, in stage.Input) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, in stage.Input) error

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, in stage.Input) error {
	return f(ctx, in)
}

// Aggregator receives the report once all branches have finished.
type Aggregator interface {
	OnAllBranchesComplete(ctx context.Context, report *Report) error
}

// AggregatorFunc adapts a function to Aggregator.
type AggregatorFunc func(ctx context.Context, report *Report) error

// OnAllBranchesComplete calls f.
func (f AggregatorFunc) OnAllBranchesComplete(ctx context.Context, report *Report) error {
	return f(ctx, report)
}

// Aggregators calls each aggregator in order and joins their errors.
// Nil entries are skipped.
func Aggregators(aggs ...Aggregator) Aggregator {
	return AggregatorFunc(func(ctx context.Context, report *Report) error {
		var errs []error
		for _, a := range aggs {
			if a == nil {
				continue
			}
			if err := a.OnAllBranchesComplete(ctx, report); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// BranchObserver is notified after each branch finishes.
type BranchObserver interface {
	ObserveBranch(outcome BranchOutcome)
}

// Plan is the parsed pipeline the orchestrator fans out.
type Plan struct {
	Pipeline string
	Metadata params.Metadata
	Parallel []string
}

// Orchestrator fans a plan out into isolated branches and aggregates their
// results.
type Orchestrator struct {
	plan     Plan
	executor Executor
	agg      Aggregator
	sink     *logging.Sink

	runID         string
	combinations  []params.Combination
	results       *ResultsTable
	maxConcurrent int
	branchTimeout time.Duration
	observer      BranchObserver
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCombinations supplies explicit combinations that replace the
// generated inputs when every one of them matches a generated input.
func WithCombinations(combs []params.Combination) Option {
	return func(o *Orchestrator) { o.combinations = combs }
}

// WithMaxConcurrent bounds how many branches run at once. Zero or less
// means unbounded.
func WithMaxConcurrent(n int) Option {
	return func(o *Orchestrator) { o.maxConcurrent = n }
}

// WithBranchTimeout bounds each branch's context. Zero means no timeout.
func WithBranchTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.branchTimeout = d }
}

// WithMetrics registers an observer called after each branch.
func WithMetrics(obs BranchObserver) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithResults uses an existing results table. Entries already present are
// kept.
func WithResults(t *ResultsTable) Option {
	return func(o *Orchestrator) { o.results = t }
}

// WithRunID sets the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(o *Orchestrator) { o.runID = id }
}

// WithSink replaces the sink given to New.
func WithSink(sink *logging.Sink) Option {
	return func(o *Orchestrator) { o.sink = sink }
}

// New creates an Orchestrator. The sink must wrap a logger; an
// uninitialized sink panics on the first log call of Run.
func New(plan Plan, executor Executor, agg Aggregator, sink *logging.Sink, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		plan:     plan,
		executor: executor,
		agg:      agg,
		sink:     sink,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.runID == "" {
		o.runID = NewRunID()
	}
	if o.results == nil {
		o.results = NewResultsTable()
	}
	return o
}

// RunID returns the run identifier.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Results returns the shared results table.
func (o *Orchestrator) Results() *ResultsTable {
	return o.results
}

// StageInputs returns the inputs to dispatch. Explicit combinations win
// when the list is non-empty and each of them matches a generated input;
// otherwise the generated inputs are used.
func (o *Orchestrator) StageInputs() ([]stage.Input, error) {
	generated, err := stage.Generate(o.plan.Metadata, o.plan.Parallel)
	if err != nil {
		return nil, err
	}

	inputs, accepted := stage.Select(generated, o.combinations)
	switch {
	case accepted:
		o.sink.Info("using explicit combinations", "count", len(inputs))
	case len(o.combinations) > 0:
		o.sink.Warn("explicit combinations do not match generated inputs, ignoring",
			"combinations", len(o.combinations), "generated", len(generated))
	}
	return inputs, nil
}

// jobName returns the branch's parallel value, or DefaultJob when the plan
// has no parallel key or the input lacks the field.
func (o *Orchestrator) jobName(in stage.Input) string {
	keys := params.DistinctKeys(o.plan.Parallel)
	if len(keys) == 0 {
		return DefaultJob
	}
	field := params.Singular(keys[0])
	if v, ok := in.Scalar(field); ok && v != "" {
		return v
	}
	return DefaultJob
}

// Run dispatches every stage input as its own branch, waits for all of
// them, and hands the report to the aggregator exactly once. Branch
// failures are recorded, not returned: Run fails only when the inputs
// cannot be generated or the aggregator fails.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	sink := o.sink.ForRun(o.runID, o.plan.Pipeline)

	inputs, err := o.StageInputs()
	if err != nil {
		sink.Error("dispatch failed", "error", err)
		return nil, err
	}

	report := &Report{
		RunID:     o.runID,
		Pipeline:  o.plan.Pipeline,
		StartedAt: time.Now(),
	}

	dispatch := make([]stage.Input, len(inputs))
	for i, in := range inputs {
		in = in.Clone()
		job := o.jobName(in)
		in[stage.JobField] = []string{job}
		o.results.Init(job)
		dispatch[i] = in
	}

	sink.Info("dispatching branches", "count", len(dispatch), "max_concurrent", o.maxConcurrent)

	ctx = logging.WithLogger(ctx, sink.Logger())
	outcomes := make([]BranchOutcome, len(dispatch))

	// Units never return an error, so the group cannot cancel siblings.
	var g errgroup.Group
	if o.maxConcurrent > 0 {
		g.SetLimit(o.maxConcurrent)
	}
	for i, in := range dispatch {
		g.Go(func() error {
			outcomes[i] = o.runBranch(ctx, sink, in)
			return nil
		})
	}
	_ = g.Wait()

	report.FinishedAt = time.Now()
	report.Results = o.results.Snapshot()
	report.Branches = outcomes

	counts := report.Counts()
	sink.Info("all branches complete",
		"success", counts[StatusSuccess],
		"failure", counts[StatusFailure],
		"duration", report.Duration())

	if o.agg == nil {
		return report, nil
	}
	if err := o.agg.OnAllBranchesComplete(ctx, report); err != nil {
		sink.Error("aggregation failed", "error", err)
		return report, serrors.AggregationFailed(o.runID, err)
	}
	return report, nil
}

// runBranch executes one input and records its outcome. A panic in the
// executor is recovered and recorded as a failure.
func (o *Orchestrator) runBranch(ctx context.Context, sink *logging.Sink, in stage.Input) (out BranchOutcome) {
	job := in.Job()
	sink = sink.ForJob(job)
	out = BranchOutcome{Job: job, Input: in, StartedAt: time.Now()}

	defer func() {
		if r := recover(); r != nil {
			out.Err = serrors.BranchPanicked(job, r)
		}
		out.Duration = time.Since(out.StartedAt)
		out.Status = StatusSuccess
		if out.Err != nil {
			out.Status = StatusFailure
			sink.Error("branch failed", "error", out.Err, "duration", out.Duration)
		} else {
			sink.Info("branch succeeded", "duration", out.Duration)
		}
		o.results.Set(job, out.Status)
		if o.observer != nil {
			o.observer.ObserveBranch(out)
		}
	}()

	if o.branchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.branchTimeout)
		defer cancel()
	}
	ctx = logging.WithLogger(ctx, sink.Logger())

	sink.Info("branch started")
	if err := o.executor.Execute(ctx, in); err != nil {
		out.Err = serrors.BranchFailed(job, err)
	}
	return out
}
