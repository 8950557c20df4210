package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meow-stack/stagefan/internal/status"
	"github.com/meow-stack/stagefan/internal/store"
	"github.com/meow-stack/stagefan/internal/types"
)

var (
	lsStatus   string
	lsPipeline string
	lsLimit    int
	lsJSON     bool
	lsQuiet    bool
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List recorded runs",
	Long: `List runs from the configured store, newest first.

Examples:
  stagefan ls                    # All runs
  stagefan ls --status=failed    # Runs with a failed branch
  stagefan ls --pipeline=build -n 5`,
	RunE: runLs,
}

func init() {
	lsCmd.Flags().StringVar(&lsStatus, "status", "", "filter by status (pending, running, done, failed)")
	lsCmd.Flags().StringVar(&lsPipeline, "pipeline", "", "filter by pipeline name")
	lsCmd.Flags().IntVarP(&lsLimit, "limit", "n", 0, "show at most n runs (0 = all)")
	lsCmd.Flags().BoolVar(&lsJSON, "json", false, "output as JSON")
	lsCmd.Flags().BoolVarP(&lsQuiet, "quiet", "q", false, "only show run IDs")
	rootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, args []string) error {
	filter := store.Filter{
		Status:   types.RunStatus(lsStatus),
		Pipeline: lsPipeline,
		Limit:    lsLimit,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return fmt.Errorf("invalid status: %s", lsStatus)
	}

	p, err := loadProject()
	if err != nil {
		return err
	}
	defer p.Close()

	st, err := store.Open(p.cfg, p.dir)
	if err != nil {
		return fmt.Errorf("opening run store: %w", err)
	}
	defer st.Close()

	runs, err := st.List(context.Background(), filter)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	out := cmd.OutOrStdout()
	summaries := status.NewRunSummaries(runs)
	if lsJSON {
		return writeFormatted(out, "json", summaries)
	}
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No runs found")
		return nil
	}
	fmt.Fprint(out, status.FormatRunList(summaries, status.FormatOptions{NoColor: !isTerminal(out), Quiet: lsQuiet}))
	return nil
}
