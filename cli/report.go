package cli

import (
	internalerrors "github.com/devqik/solarboat/internal/errors"
	"github.com/devqik/solarboat/internal/orchestrator"
	"github.com/devqik/solarboat/internal/runner"
	"github.com/devqik/solarboat/options"
)

// reportAndExit prints the run report, writes the optional summary file,
// and turns a non-zero exit code into an ErrorWithExitCode so the App's
// ExitErrHandler exits the process accordingly.
func reportAndExit(opts *options.Options, outcomes []runner.Outcome) error {
	orchestrator.Report(opts.Logger, outcomes)

	if opts.SummaryFile != "" {
		summary := orchestrator.Summarize(opts.RunID, outcomes)

		if err := orchestrator.WriteSummaryFile(opts.SummaryFile, summary); err != nil {
			return err
		}
	}

	if code := orchestrator.ExitCode(outcomes); code != 0 {
		return internalerrors.ErrorWithExitCode{
			Err:      internalerrors.Errorf("run finished with failures"),
			ExitCode: code,
		}
	}

	return nil
}
