package cmd

import (
	"github.com/spf13/cobra"

	"github.com/meow-stack/stagefan/internal/logging"
	"github.com/meow-stack/stagefan/internal/orchestrator"
	"github.com/meow-stack/stagefan/internal/params"
	"github.com/meow-stack/stagefan/internal/pipeline"
	"github.com/meow-stack/stagefan/internal/stage"
)

var inputsCmd = &cobra.Command{
	Use:   "inputs <pipeline>",
	Short: "Show the stage inputs a run would dispatch",
	Args:  cobra.ExactArgs(1),
	RunE:  runInputs,
}

var (
	inputsParams paramFlags
	inputsFormat string
)

func init() {
	inputsParams.register(inputsCmd.Flags())
	inputsCmd.Flags().StringVar(&inputsFormat, "format", "yaml", "output format (json, yaml)")
	rootCmd.AddCommand(inputsCmd)
}

// planFor parses the user sources against def and returns the plan plus
// the explicit combinations it carried.
func planFor(p *project, def *pipeline.Definition, pf *paramFlags, cmd *cobra.Command) (orchestrator.Plan, *params.Result, error) {
	env, message, err := pf.collect(cmd.InOrStdin())
	if err != nil {
		return orchestrator.Plan{}, nil, err
	}
	result := def.Parser(p.logger).Parse(def.Defaults, env, message)
	return orchestrator.Plan{
		Pipeline: def.Name,
		Metadata: result.Args,
		Parallel: def.Parallel,
	}, result, nil
}

func runInputs(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	defer p.Close()

	def, err := p.pipeline(args[0])
	if err != nil {
		return err
	}

	plan, result, err := planFor(p, def, &inputsParams, cmd)
	if err != nil {
		return err
	}

	o := orchestrator.New(plan, nil, nil, logging.NewSink(p.logger),
		orchestrator.WithCombinations(result.Combinations))
	inputs, err := o.StageInputs()
	if err != nil {
		return err
	}
	if inputs == nil {
		inputs = []stage.Input{}
	}
	return writeFormatted(cmd.OutOrStdout(), inputsFormat, inputs)
}
