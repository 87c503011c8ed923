package cli

import (
	"github.com/urfave/cli/v2"

	"github.com/devqik/solarboat/internal/orchestrator"
)

func applyCommand() *cli.Command {
	return &cli.Command{
		Name:  "apply",
		Usage: "run terraform init and apply for every affected module; runs plan instead of apply while --dry-run is true",
		Flags: []cli.Flag{
			allFlag, ignoreWorkspacesFlag, varFilesFlag, parallelFlag, watchFlag, outputDirFlag, summaryFileFlag, dryRunFlag,
		},
		Action: func(c *cli.Context) error {
			opts := baseOptions(c)
			applySharedRunFlags(c, opts)

			opts.DryRun = c.Bool(dryRunFlag.Name)
			opts.DryRunSet = c.IsSet(dryRunFlag.Name)

			o := orchestrator.New(opts)

			outcomes, err := o.Apply(c.Context)
			if err != nil {
				return err
			}

			return reportAndExit(opts, outcomes)
		},
	}
}
