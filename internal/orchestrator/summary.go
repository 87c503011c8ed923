package orchestrator

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/devqik/solarboat/internal/errors"
	"github.com/devqik/solarboat/internal/runner"
	"github.com/devqik/solarboat/pkg/log"
)

// Summary aggregates a run's Outcomes for the console report and the
// optional JSON summary file.
type Summary struct {
	RunID     string          `json:"run_id"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	TimedOut  int             `json:"timed_out"`
	Skipped   int             `json:"skipped"`
	Outcomes  []OutcomeRecord `json:"outcomes"`
}

// OutcomeRecord is the JSON-serializable projection of a runner.Outcome.
type OutcomeRecord struct {
	Module     string `json:"module"`
	Workspace  string `json:"workspace"`
	Operation  string `json:"operation"`
	Status     string `json:"status"`
	ExitCode   int    `json:"exit_code"`
	SkipReason string `json:"skip_reason,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Summarize builds a Summary from a run's Outcomes.
func Summarize(runID string, outcomes []runner.Outcome) Summary {
	s := Summary{RunID: runID, Outcomes: make([]OutcomeRecord, 0, len(outcomes))}

	for _, o := range outcomes {
		switch o.Status {
		case runner.Success:
			s.Succeeded++
		case runner.Failed:
			s.Failed++
		case runner.TimedOut:
			s.TimedOut++
		case runner.Skipped:
			s.Skipped++
		}

		s.Outcomes = append(s.Outcomes, OutcomeRecord{
			Module:     o.ModulePath,
			Workspace:  o.Workspace,
			Operation:  o.Operation.String(),
			Status:     o.Status.String(),
			ExitCode:   o.ExitCode,
			SkipReason: o.SkipReason,
			DurationMS: o.Duration.Milliseconds(),
		})
	}

	return s
}

// Report prints a one-line-per-task status report followed by a totals
// line, and logs a tail of captured stderr for every failed or timed-out
// task so the cause is visible without re-running.
func Report(l log.Logger, outcomes []runner.Outcome) {
	for _, o := range outcomes {
		switch o.Status {
		case runner.Success:
			l.Infof("%s [%s] %s: success (%s)", o.ModulePath, o.Workspace, o.Operation, o.Duration.Round(time.Millisecond))
		case runner.Skipped:
			l.Warnf("%s [%s] %s: skipped (%s)", o.ModulePath, o.Workspace, o.Operation, o.SkipReason)
		case runner.TimedOut:
			l.Errorf("%s [%s] %s: timed out after %s", o.ModulePath, o.Workspace, o.Operation, o.Duration.Round(time.Millisecond))
			logTail(l, o)
		case runner.Failed:
			l.Errorf("%s [%s] %s: failed (exit %d)", o.ModulePath, o.Workspace, o.Operation, o.ExitCode)
			logTail(l, o)
		}
	}

	s := Summarize("", outcomes)
	l.Infof("run complete: %d succeeded, %d failed, %d timed out, %d skipped", s.Succeeded, s.Failed, s.TimedOut, s.Skipped)
}

// logTail logs the last few lines of captured stderr, if any was
// captured (streaming tasks have none - their output already went
// straight to the console).
func logTail(l log.Logger, o runner.Outcome) {
	if o.Stderr == "" {
		return
	}

	lines := strings.Split(strings.TrimRight(o.Stderr, "\n"), "\n")

	const maxLines = 10

	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}

	l.Errorf("%s [%s] stderr tail:\n%s", o.ModulePath, o.Workspace, strings.Join(lines, "\n"))
}

// WriteSummaryFile writes the JSON-encoded Summary to path, the
// supplemented --summary-file feature.
func WriteSummaryFile(path string, s Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.WithStackTrace(err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return errors.WithStackTraceAndPrefix(err, "failed to write summary file %s", path)
	}

	return nil
}

// ExitCode derives the process exit code from a run's Outcomes: 0 when
// everything succeeded or was merely skipped, 1 otherwise.
func ExitCode(outcomes []runner.Outcome) int {
	for _, o := range outcomes {
		if o.Status == runner.Failed || o.Status == runner.TimedOut {
			return 1
		}
	}

	return 0
}

// FormatAffected renders the Affected Set for the scan subcommand's
// console output.
func FormatAffected(paths []string) string {
	if len(paths) == 0 {
		return "(none)"
	}

	return strings.Join(paths, "\n  ")
}
