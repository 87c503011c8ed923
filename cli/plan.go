package cli

import (
	"github.com/urfave/cli/v2"

	"github.com/devqik/solarboat/internal/orchestrator"
	"github.com/devqik/solarboat/options"
)

func planCommand() *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "run terraform init and plan for every affected module",
		Flags: []cli.Flag{
			allFlag, ignoreWorkspacesFlag, varFilesFlag, parallelFlag, watchFlag, outputDirFlag, summaryFileFlag,
		},
		Action: func(c *cli.Context) error {
			opts := baseOptions(c)
			applySharedRunFlags(c, opts)

			o := orchestrator.New(opts)

			outcomes, err := o.Plan(c.Context)
			if err != nil {
				return err
			}

			return reportAndExit(opts, outcomes)
		},
	}
}

// applySharedRunFlags resolves the flags plan and apply have in common.
func applySharedRunFlags(c *cli.Context, opts *options.Options) {
	opts.All = c.Bool(allFlag.Name)
	opts.OutputDir = c.String(outputDirFlag.Name)
	opts.SummaryFile = c.String(summaryFileFlag.Name)
	opts.Watch = c.Bool(watchFlag.Name)
	opts.Parallel = c.Int(parallelFlag.Name)

	if c.IsSet(ignoreWorkspacesFlag.Name) {
		opts.IgnoreWorkspaces = c.StringSlice(ignoreWorkspacesFlag.Name)
		opts.IgnoreWorkspacesSet = true
	}

	if c.IsSet(varFilesFlag.Name) {
		opts.VarFiles = c.StringSlice(varFilesFlag.Name)
		opts.VarFilesSet = true
	}
}
