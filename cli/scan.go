package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/devqik/solarboat/internal/orchestrator"
)

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "discover Terraform modules and report the affected set without running terraform",
		Flags: []cli.Flag{allFlag},
		Action: func(c *cli.Context) error {
			opts := baseOptions(c)
			opts.All = c.Bool(allFlag.Name)

			o := orchestrator.New(opts)

			result, err := o.Scan(c.Context)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer, "discovered %d module(s):\n", len(result.Modules)) //nolint:errcheck

			for _, m := range result.Modules {
				fmt.Fprintf(c.App.Writer, "  %s (%s)\n", m.Path, m.Kind) //nolint:errcheck
			}

			affected := make([]string, 0, len(result.Affected))
			for _, m := range result.Affected {
				affected = append(affected, m.Path)
			}

			fmt.Fprintf(c.App.Writer, "\naffected modules (%s):\n  %s\n", result.Source, orchestrator.FormatAffected(affected)) //nolint:errcheck

			return nil
		},
	}
}
