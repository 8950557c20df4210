package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meow-stack/stagefan/internal/executor"
	"github.com/meow-stack/stagefan/internal/logging"
	"github.com/meow-stack/stagefan/internal/metrics"
	"github.com/meow-stack/stagefan/internal/orchestrator"
	"github.com/meow-stack/stagefan/internal/status"
	"github.com/meow-stack/stagefan/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run <pipeline>",
	Short: "Run a pipeline, one branch per parallel value",
	Long: `Parse parameters, expand the parallel key into stage inputs and run the
pipeline command once per input, concurrently. Each branch sees its input
as PIP_<FIELD> environment variables and its output is written to
.stagefan/logs/<run-id>/<job>.log.

The finished run is recorded in the configured store. The command exits
non-zero when any branch fails.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

var (
	runParams        paramFlags
	runDry           bool
	runMaxConcurrent int
)

func init() {
	runParams.register(runCmd.Flags())
	runCmd.Flags().BoolVar(&runDry, "dry-run", false, "show the branches that would run without executing")
	runCmd.Flags().IntVar(&runMaxConcurrent, "max-concurrent", -1, "limit concurrent branches (default: pipeline, then config)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	defer p.Close()

	def, err := p.pipeline(args[0])
	if err != nil {
		return err
	}

	plan, result, err := planFor(p, def, &runParams, cmd)
	if err != nil {
		return err
	}

	maxConcurrent := p.cfg.Orchestrator.MaxConcurrent
	if def.MaxConcurrent > 0 {
		maxConcurrent = def.MaxConcurrent
	}
	if runMaxConcurrent >= 0 {
		maxConcurrent = runMaxConcurrent
	}

	out := cmd.OutOrStdout()
	runID := orchestrator.NewRunID()
	sink := logging.NewSink(p.logger)

	if runDry {
		o := orchestrator.New(plan, nil, nil, sink, orchestrator.WithCombinations(result.Combinations))
		inputs, err := o.StageInputs()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Would run %d branch(es) of %s (max concurrent: %d)\n", len(inputs), def.Name, maxConcurrent)
		return writeFormatted(out, "yaml", inputs)
	}

	st, err := store.Open(p.cfg, p.dir)
	if err != nil {
		return fmt.Errorf("opening run store: %w", err)
	}
	defer st.Close()

	m := metrics.New(nil)

	exec := executor.NewShellExecutor(def.Command)
	exec.Workdir = def.Workdir
	if exec.Workdir == "" {
		exec.Workdir = p.dir
	}
	exec.OutputDir = filepath.Join(p.cfg.LogsDir(p.dir), runID)

	o := orchestrator.New(plan, exec,
		orchestrator.Aggregators(
			store.Aggregator(st, result.Args, result.Combinations),
			m.Aggregator(),
		),
		sink,
		orchestrator.WithRunID(runID),
		orchestrator.WithCombinations(result.Combinations),
		orchestrator.WithMaxConcurrent(maxConcurrent),
		orchestrator.WithBranchTimeout(p.cfg.Orchestrator.BranchTimeout),
		orchestrator.WithMetrics(m.ForPipeline(def.Name)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := o.Run(ctx)
	if report == nil {
		return err
	}

	run := store.RunFromReport(report, result.Args, result.Combinations)
	fmt.Fprint(out, status.FormatDetailedRun(status.NewRunSummary(run), status.FormatOptions{NoColor: !isTerminal(out)}))
	if err != nil {
		return err
	}

	if failed := report.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d branch(es) failed: %v", len(failed), failed)
	}
	return nil
}
