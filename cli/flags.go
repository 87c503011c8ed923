package cli

import (
	"github.com/urfave/cli/v2"

	"github.com/devqik/solarboat/pkg/log"
)

// Global flags shared by every subcommand.
var (
	pathFlag = &cli.StringFlag{
		Name:    "path",
		Aliases: []string{"p"},
		Value:   ".",
		Usage:   "root directory to scan for Terraform modules",
	}

	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "path to solarboat.json, overriding auto-discovery",
	}

	noConfigFlag = &cli.BoolFlag{
		Name:  "no-config",
		Usage: "ignore any solarboat.json and use defaults for every module",
	}

	defaultBranchFlag = &cli.StringFlag{
		Name:  "default-branch",
		Value: "main",
		Usage: "branch that change detection diffs against",
	}

	excludeFlag = &cli.StringSliceFlag{
		Name:  "exclude",
		Usage: "glob pattern (relative to path) to exclude from module discovery, may be repeated",
	}

	recentCommitsFlag = &cli.IntFlag{
		Name:  "recent-commits",
		Value: 5,
		Usage: "number of recent commits to inspect when change detection falls back off the default branch",
	}

	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Value: "info",
		Usage: "one of error, warn, info, debug",
	}

	allFlag = &cli.BoolFlag{
		Name:  "all",
		Usage: "operate on every stateful module instead of only those affected by changed files",
	}

	ignoreWorkspacesFlag = &cli.StringSliceFlag{
		Name:  "ignore-workspaces",
		Usage: "workspace name to skip, may be repeated; replaces any configured ignore list entirely",
	}

	varFilesFlag = &cli.StringSliceFlag{
		Name:  "var-files",
		Usage: "-var-file to pass to terraform, may be repeated; replaces any configured var files entirely",
	}

	parallelFlag = &cli.IntFlag{
		Name:  "parallel",
		Value: 1,
		Usage: "maximum number of modules to run concurrently (clamped to 1-4)",
	}

	watchFlag = &cli.BoolFlag{
		Name:  "watch",
		Usage: "stream terraform output live instead of capturing it; forces parallel=1",
	}

	summaryFileFlag = &cli.StringFlag{
		Name:  "summary-file",
		Usage: "write a JSON run summary to this path",
	}

	outputDirFlag = &cli.StringFlag{
		Name:  "output-dir",
		Value: "terraform-plans",
		Usage: "directory plan files are written to",
	}

	dryRunFlag = &cli.BoolFlag{
		Name:  "dry-run",
		Value: true,
		Usage: "plan only, without applying; pass --dry-run=false to actually apply",
	}
)

// globalFlags are attached to the root App so they can appear before or
// after the subcommand name.
func globalFlags() []cli.Flag {
	return []cli.Flag{pathFlag, configFlag, noConfigFlag, defaultBranchFlag, excludeFlag, recentCommitsFlag, logLevelFlag}
}

func parseLogLevel(c *cli.Context) log.Level {
	level, err := log.ParseLevel(c.String(logLevelFlag.Name))
	if err != nil {
		return log.InfoLevel
	}

	return level
}
