package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"syscall"
	"time"

	"github.com/devqik/solarboat/pkg/log"
)

// GracePeriod is how long a timed-out or cancelled child is given to exit
// after SIGTERM before the Runner sends SIGKILL.
const GracePeriod = 5 * time.Second

// SpawnOptions configures a single Subprocess Runner invocation.
type SpawnOptions struct {
	Dir       string
	Argv      []string
	Env       []string
	Timeout   time.Duration
	Streaming bool
	// Stdout/Stderr receive the forwarded output when Streaming is true.
	// Ignored otherwise.
	Stdout io.Writer
	Stderr io.Writer
}

// Runner spawns terraform as a child process and reports a Run Outcome.
type Runner struct {
	log log.Logger
}

// NewRunner returns a Runner that logs through l.
func NewRunner(l log.Logger) *Runner {
	return &Runner{log: l}
}

// Spawn runs the process to completion, cancellation, or its timeout,
// whichever comes first. Every result is reported via the Outcome's
// Status, including a failure to start the process at all, which is
// Failed with the synthetic exit code -1.
func (r *Runner) Spawn(ctx context.Context, opts SpawnOptions) Outcome {
	r.log.Debugf("running command in %s: %v", opts.Dir, opts.Argv)

	start := time.Now()

	timeoutCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	cmd := exec.CommandContext(timeoutCtx, opts.Argv[0], opts.Argv[1:]...) //nolint:gosec
	cmd.Dir = opts.Dir
	cmd.Env = opts.Env
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdoutBuf, stderrBuf bytes.Buffer

	var stdoutWriter, stderrWriter io.Writer = &stdoutBuf, &stderrBuf

	if opts.Streaming {
		stdoutWriter = io.MultiWriter(&stdoutBuf, orDiscard(opts.Stdout))
		stderrWriter = io.MultiWriter(&stderrBuf, orDiscard(opts.Stderr))
	}

	cmd.Stdout = stdoutWriter
	cmd.Stderr = stderrWriter

	if err := cmd.Start(); err != nil {
		return Outcome{
			Status:   Failed,
			ExitCode: -1,
			Stderr:   err.Error(),
			Duration: time.Since(start),
		}
	}

	done := make(chan error, 1)

	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return r.finish(err, stdoutBuf, stderrBuf, start, false, opts.Streaming)
	case <-timeoutCtx.Done():
		err := r.terminate(cmd, done)

		if ctx.Err() != nil {
			// The parent context was cancelled (executor shutdown), not
			// this task's own phase timeout.
			return Outcome{Status: Skipped, SkipReason: "cancelled", Duration: time.Since(start)}
		}

		return r.finish(err, stdoutBuf, stderrBuf, start, true, opts.Streaming)
	}
}

// terminate sends SIGTERM to the child's process group and escalates to
// SIGKILL after GracePeriod if it hasn't exited. It returns the child's
// Wait result, read from done.
func (r *Runner) terminate(cmd *exec.Cmd, done <-chan error) error {
	if cmd.Process == nil {
		return <-done
	}

	pgid := -cmd.Process.Pid

	_ = syscall.Kill(pgid, syscall.SIGTERM)

	timer := time.NewTimer(GracePeriod)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		_ = syscall.Kill(pgid, syscall.SIGKILL)
		return <-done
	}
}

func (r *Runner) finish(waitErr error, stdoutBuf, stderrBuf bytes.Buffer, start time.Time, timedOut, streaming bool) Outcome {
	outcome := Outcome{Duration: time.Since(start)}

	if !streaming {
		outcome.Stdout = stdoutBuf.String()
		outcome.Stderr = stderrBuf.String()
	}

	switch {
	case timedOut:
		outcome.Status = TimedOut
		outcome.ExitCode = -1
	case waitErr != nil:
		outcome.Status = Failed
		outcome.ExitCode = exitCode(waitErr)
	default:
		outcome.Status = Success
		outcome.ExitCode = 0
	}

	return outcome
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}

	return -1
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}

	return w
}
