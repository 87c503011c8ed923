package runner_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/devqik/solarboat/internal/runner"
	"github.com/devqik/solarboat/pkg/log"
)

// TestExecutorRunsModulesConcurrentlyUpToCap verifies a concurrency cap of
// 3 bounds how many of ten modules run at once: every module succeeds, and
// with at most three running together the run takes at least four rounds
// of the per-module sleep.
func TestExecutorRunsModulesConcurrentlyUpToCap(t *testing.T) {
	t.Parallel()

	r := runner.NewRunner(log.Discard())
	executor := runner.NewExecutor(r, 3, log.Discard())

	tasks := make([]runner.Task, 0, 10)

	for i := 0; i < 10; i++ {
		tasks = append(tasks, runner.Task{
			ModulePath: string(rune('a' + i)),
			Workspace:  "default",
			Operation:  runner.Init,
			TFPath:     "/bin/sh",
			Args:       []string{"-c", "sleep 0.05"},
			Timeout:    time.Second,
		})
	}

	start := time.Now()
	outcomes := executor.Run(context.Background(), tasks)
	elapsed := time.Since(start)
	require.Len(t, outcomes, 10)

	for _, o := range outcomes {
		require.Equal(t, runner.Success, o.Status)
	}

	require.GreaterOrEqual(t, elapsed, 4*50*time.Millisecond)
}

// TestExecutorSkipsRemainingTasksAfterInitFailure verifies that when a
// module's Init task fails, its other tasks are marked Skipped(init-failed)
// without being run.
func TestExecutorSkipsRemainingTasksAfterInitFailure(t *testing.T) {
	t.Parallel()

	r := runner.NewRunner(log.Discard())
	executor := runner.NewExecutor(r, 1, log.Discard())

	tasks := []runner.Task{
		{
			ModulePath: "m",
			Workspace:  "default",
			Operation:  runner.Init,
			TFPath:     "/bin/sh",
			Args:       []string{"-c", "exit 1"},
			Timeout:    time.Second,
		},
		{
			ModulePath: "m",
			Workspace:  "default",
			Operation:  runner.Plan,
			TFPath:     "/bin/sh",
			Args:       []string{"-c", "exit 0"},
			Timeout:    time.Second,
		},
	}

	outcomes := executor.Run(context.Background(), tasks)
	require.Len(t, outcomes, 2)
	require.Equal(t, runner.Failed, outcomes[0].Status)
	require.Equal(t, runner.Skipped, outcomes[1].Status)
	require.Equal(t, "init-failed", outcomes[1].SkipReason)
}

func TestExecutorPreservesEnqueueOrderAcrossModules(t *testing.T) {
	t.Parallel()

	r := runner.NewRunner(log.Discard())
	executor := runner.NewExecutor(r, 4, log.Discard())

	tasks := []runner.Task{
		{ModulePath: "a", Workspace: "default", Operation: runner.Init, TFPath: "/bin/sh", Args: []string{"-c", "exit 0"}, Timeout: time.Second},
		{ModulePath: "b", Workspace: "default", Operation: runner.Init, TFPath: "/bin/sh", Args: []string{"-c", "exit 0"}, Timeout: time.Second},
		{ModulePath: "a", Workspace: "default", Operation: runner.Plan, TFPath: "/bin/sh", Args: []string{"-c", "exit 0"}, Timeout: time.Second},
	}

	outcomes := executor.Run(context.Background(), tasks)
	require.Len(t, outcomes, 3)
	require.Equal(t, "a", outcomes[0].ModulePath)
	require.Equal(t, runner.Init, outcomes[0].Operation)
	require.Equal(t, "b", outcomes[1].ModulePath)
	require.Equal(t, "a", outcomes[2].ModulePath)
	require.Equal(t, runner.Plan, outcomes[2].Operation)
}

func TestExecutorClampsConcurrencyToFour(t *testing.T) {
	t.Parallel()

	executor := runner.NewExecutor(runner.NewRunner(log.Discard()), 99, log.Discard())
	require.NotNil(t, executor)

	tasks := make([]runner.Task, 0, 8)

	for i := 0; i < 8; i++ {
		tasks = append(tasks, runner.Task{
			ModulePath: string(rune('a' + i)),
			Workspace:  "default",
			Operation:  runner.Init,
			TFPath:     "/bin/sh",
			Args:       []string{"-c", "sleep 0.1"},
			Timeout:    time.Second,
		})
	}

	// Eight modules with at most four running at once need at least two
	// rounds of the per-module sleep.
	start := time.Now()
	outcomes := executor.Run(context.Background(), tasks)
	require.Len(t, outcomes, 8)
	require.GreaterOrEqual(t, time.Since(start), 2*100*time.Millisecond)
}
