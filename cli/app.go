// Package cli assembles the solarboat command-line application: global
// flags, the scan/plan/apply subcommands, and the options.Options each
// one resolves from them, built on a urfave/cli/v2 App.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	internalerrors "github.com/devqik/solarboat/internal/errors"
	"github.com/devqik/solarboat/options"
	"github.com/devqik/solarboat/pkg/log"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// NewApp builds the solarboat CLI application.
func NewApp(writer, errWriter io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "solarboat"
	app.Usage = "solarboat orchestrates Terraform init/plan/apply across a multi-module repository, running only against modules affected by what actually changed."
	app.UsageText = "solarboat <command> [options]"
	app.Version = Version
	app.Writer = writer
	app.ErrWriter = errWriter
	app.Flags = globalFlags()
	app.Commands = []*cli.Command{
		scanCommand(),
		planCommand(),
		applyCommand(),
	}
	app.ExitErrHandler = exitErrHandler

	return app
}

// exitErrHandler unwraps an ErrorWithExitCode to set the process exit
// code, and otherwise prints the error and exits 1.
func exitErrHandler(c *cli.Context, err error) {
	if err == nil {
		return
	}

	var withCode internalerrors.ErrorWithExitCode
	if errors.As(err, &withCode) {
		fmt.Fprintln(c.App.ErrWriter, withCode.Err.Error()) //nolint:errcheck
		cli.OsExiter(withCode.ExitCode)

		return
	}

	fmt.Fprintln(c.App.ErrWriter, err.Error()) //nolint:errcheck
	cli.OsExiter(1)
}

// baseOptions resolves the global flags shared by every subcommand into
// an options.Options, leaving per-command fields to the caller.
func baseOptions(c *cli.Context) *options.Options {
	opts := options.New()
	opts.Path = c.String(pathFlag.Name)
	opts.ConfigPath = c.String(configFlag.Name)
	opts.NoConfig = c.Bool(noConfigFlag.Name)
	opts.DefaultBranch = c.String(defaultBranchFlag.Name)
	opts.Exclude = c.StringSlice(excludeFlag.Name)
	opts.RecentCommits = c.Int(recentCommitsFlag.Name)
	opts.Writer = c.App.Writer
	opts.ErrWriter = c.App.ErrWriter
	opts.LogLevel = parseLogLevel(c)
	opts.Logger = log.New(opts.ErrWriter, opts.LogLevel)
	opts.GithubRefName = os.Getenv("GITHUB_REF_NAME")

	return opts
}
