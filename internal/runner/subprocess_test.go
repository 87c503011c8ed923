package runner_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/devqik/solarboat/internal/runner"
	"github.com/devqik/solarboat/pkg/log"
)

func TestSpawnSuccess(t *testing.T) {
	t.Parallel()

	r := runner.NewRunner(log.Discard())

	outcome := r.Spawn(context.Background(), runner.SpawnOptions{
		Argv:    []string{"/bin/sh", "-c", "exit 0"},
		Timeout: time.Second,
	})

	require.Equal(t, runner.Success, outcome.Status)
	require.Equal(t, 0, outcome.ExitCode)
}

func TestSpawnCapturesNonZeroExit(t *testing.T) {
	t.Parallel()

	r := runner.NewRunner(log.Discard())

	outcome := r.Spawn(context.Background(), runner.SpawnOptions{
		Argv:    []string{"/bin/sh", "-c", "echo boom 1>&2; exit 3"},
		Timeout: time.Second,
	})

	require.Equal(t, runner.Failed, outcome.Status)
	require.Equal(t, 3, outcome.ExitCode)
	require.Contains(t, outcome.Stderr, "boom")
}

// TestSpawnTimesOut verifies a phase whose own timeout fires produces
// TimedOut, distinct from cancellation.
func TestSpawnTimesOut(t *testing.T) {
	t.Parallel()

	r := runner.NewRunner(log.Discard())

	outcome := r.Spawn(context.Background(), runner.SpawnOptions{
		Argv:    []string{"/bin/sh", "-c", "sleep 5"},
		Timeout: 50 * time.Millisecond,
	})

	require.Equal(t, runner.TimedOut, outcome.Status)
}

func TestSpawnReportsCancelledWhenParentContextIsDone(t *testing.T) {
	t.Parallel()

	r := runner.NewRunner(log.Discard())

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	outcome := r.Spawn(ctx, runner.SpawnOptions{
		Argv:    []string{"/bin/sh", "-c", "sleep 5"},
		Timeout: time.Second,
	})

	require.Equal(t, runner.Skipped, outcome.Status)
	require.Equal(t, "cancelled", outcome.SkipReason)
}

func TestSpawnFailsToStartReportsSyntheticExitCode(t *testing.T) {
	t.Parallel()

	r := runner.NewRunner(log.Discard())

	outcome := r.Spawn(context.Background(), runner.SpawnOptions{
		Argv:    []string{"/no/such/binary-xyz"},
		Timeout: time.Second,
	})

	require.Equal(t, runner.Failed, outcome.Status)
	require.Equal(t, -1, outcome.ExitCode)
}

func TestSpawnStreamingOmitsCapturedOutput(t *testing.T) {
	t.Parallel()

	r := runner.NewRunner(log.Discard())

	var stdout, stderr discardWriter

	outcome := r.Spawn(context.Background(), runner.SpawnOptions{
		Argv:      []string{"/bin/sh", "-c", "echo hi"},
		Timeout:   time.Second,
		Streaming: true,
		Stdout:    &stdout,
		Stderr:    &stderr,
	})

	require.Equal(t, runner.Success, outcome.Status)
	require.Empty(t, outcome.Stdout)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
