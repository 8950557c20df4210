package cmd

import (
	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse <pipeline>",
	Short: "Show the parameters a run would use",
	Long: `Merge the pipeline defaults with PIP_ environment variables and the
message, then print the resulting arguments and explicit combinations.

Examples:
  stagefan parse build -m $'fix linker\n--\ntargets = linux'
  PIP_FLAVOR=debug stagefan parse build --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

var (
	parseParams paramFlags
	parseFormat string
)

func init() {
	parseParams.register(parseCmd.Flags())
	parseCmd.Flags().StringVar(&parseFormat, "format", "json", "output format (json, yaml)")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	defer p.Close()

	def, err := p.pipeline(args[0])
	if err != nil {
		return err
	}

	env, message, err := parseParams.collect(cmd.InOrStdin())
	if err != nil {
		return err
	}

	result := def.Parser(p.logger).Parse(def.Defaults, env, message)
	return writeFormatted(cmd.OutOrStdout(), parseFormat, result)
}
