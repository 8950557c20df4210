package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meow-stack/stagefan/internal/status"
	"github.com/meow-stack/stagefan/internal/store"
)

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var (
	showFormat string
	showQuiet  bool
)

func init() {
	showCmd.Flags().StringVar(&showFormat, "format", "text", "output format (text, json, yaml)")
	showCmd.Flags().BoolVarP(&showQuiet, "quiet", "q", false, "omit run arguments")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
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

	run, err := st.Get(context.Background(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if showFormat != "text" {
		return writeFormatted(out, showFormat, run)
	}
	opts := status.FormatOptions{NoColor: !isTerminal(out), Quiet: showQuiet}
	fmt.Fprint(out, status.FormatDetailedRun(status.NewRunSummary(run), opts))
	return nil
}
