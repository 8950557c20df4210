package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/meow-stack/stagefan/internal/config"
	"github.com/meow-stack/stagefan/internal/logging"
	"github.com/meow-stack/stagefan/internal/pipeline"
)

var (
	// Version is set at build time via ldflags
	Version = "dev"

	// Global flags
	verbose bool
	workDir string
)

var rootCmd = &cobra.Command{
	Use:   "stagefan",
	Short: "Fan a pipeline stage out into parallel branches",
	Long: `stagefan parses pipeline parameters from defaults, PIP_ environment
variables and a free-text message, expands the parallel key into one
branch per value, runs every branch concurrently and records the results.

Pipelines live in .stagefan/pipelines/<name>.pipeline.toml.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listPipelines(cmd.OutOrStdout())
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&workDir, "workdir", "C", "", "working directory (default: current)")

	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("stagefan {{.Version}}\n")
}

// getWorkDir returns the effective working directory.
func getWorkDir() (string, error) {
	if workDir != "" {
		return workDir, nil
	}
	return os.Getwd()
}

// project is the per-invocation environment shared by subcommands.
type project struct {
	dir    string
	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
}

// loadProject loads config (defaults + global + project) and builds the
// logger it describes.
func loadProject() (*project, error) {
	dir, err := getWorkDir()
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadFromDir(dir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = config.LogLevelDebug
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, closer, err := logging.NewFromConfig(cfg, dir)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return &project{dir: dir, cfg: cfg, logger: logger, closer: closer}, nil
}

func (p *project) Close() {
	if p.closer != nil {
		p.closer.Close()
	}
}

// pipeline resolves ref as a path or a name under the pipelines dir.
func (p *project) pipeline(ref string) (*pipeline.Definition, error) {
	return pipeline.Resolve(ref, p.cfg.PipelinesDir(p.dir))
}

// listPipelines prints the pipelines of the current project.
func listPipelines(w io.Writer) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	defer p.Close()

	defs, errs := pipeline.Discover(p.cfg.PipelinesDir(p.dir))
	for _, err := range errs {
		p.logger.Warn("skipping pipeline", "error", err)
	}

	if len(defs) == 0 {
		fmt.Fprintln(w, "No pipelines found.")
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Create one in %s to get started.\n", p.cfg.Paths.PipelinesDir)
		return nil
	}

	fmt.Fprintln(w, "Available pipelines:")
	fmt.Fprintln(w)
	for _, def := range defs {
		if def.Description != "" {
			fmt.Fprintf(w, "  %-20s %s\n", def.Name, def.Description)
		} else {
			fmt.Fprintf(w, "  %s\n", def.Name)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run: stagefan run <pipeline> [-m message] [--env PIP_KEY=value]")
	return nil
}

// isTerminal reports whether w is an interactive terminal, which decides
// whether status output is colored.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
