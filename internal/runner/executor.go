package runner

import (
	"context"
	"io"
	"time"

	"github.com/devqik/solarboat/internal/worker"
	"github.com/devqik/solarboat/pkg/log"
)

// Task is a single scheduling unit handed to the Parallel Executor: one
// Terraform invocation for one (module, workspace, operation).
type Task struct {
	ModulePath string
	Workspace  string
	Operation  Operation

	TFPath  string
	Args    []string
	Dir     string
	Env     []string
	Timeout time.Duration

	Streaming    bool
	StdoutWriter io.Writer
	StderrWriter io.Writer
}

// Executor runs a list of Tasks grouped by module with bounded
// cross-module parallelism.
type Executor struct {
	runner      *Runner
	concurrency int
	log         log.Logger
}

// NewExecutor returns an Executor capped at concurrency modules running at
// once (clamped to [1, 4]). When streaming is true the caller must have
// already clamped concurrency to 1.
func NewExecutor(r *Runner, concurrency int, l log.Logger) *Executor {
	if concurrency < 1 {
		concurrency = 1
	}

	if concurrency > 4 {
		concurrency = 4
	}

	return &Executor{runner: r, concurrency: concurrency, log: l}
}

// Run executes every task, grouped by ModulePath, and returns one Outcome
// per task in enqueue order, regardless of scheduling order. Tasks for the
// same module run strictly sequentially in
// the order they were enqueued; if a module's Init task fails, its
// remaining tasks are marked Skipped("init-failed") without being run.
// ctx cancellation stops dispatch of new modules and terminates in-flight
// children; already finished outcomes are preserved and pending tasks are
// marked Skipped("cancelled").
func (e *Executor) Run(ctx context.Context, tasks []Task) []Outcome {
	outcomes := make([]Outcome, len(tasks))

	groups, order := groupByModule(tasks)

	pool := worker.NewWorkerPool(e.concurrency)
	pool.Start()

	for _, modulePath := range order {
		modulePath, indices := modulePath, groups[modulePath]

		pool.Submit(func() error {
			if ctx.Err() != nil {
				e.skipAll(indices, tasks, outcomes, "cancelled")
				return nil
			}

			e.runModule(ctx, modulePath, indices, tasks, outcomes)

			return nil
		})
	}

	_ = pool.Wait()

	return outcomes
}

func (e *Executor) runModule(ctx context.Context, modulePath string, indices []int, tasks []Task, outcomes []Outcome) {
	initFailed := false

	for _, i := range indices {
		task := tasks[i]

		if ctx.Err() != nil {
			outcomes[i] = skipOutcome(task, "cancelled")
			continue
		}

		if initFailed {
			outcomes[i] = skipOutcome(task, "init-failed")
			continue
		}

		outcome := e.runner.Spawn(ctx, SpawnOptions{
			Dir:       task.Dir,
			Argv:      append([]string{task.TFPath}, task.Args...),
			Env:       task.Env,
			Timeout:   task.Timeout,
			Streaming: task.Streaming,
			Stdout:    task.StdoutWriter,
			Stderr:    task.StderrWriter,
		})
		outcome.ModulePath = modulePath
		outcome.Workspace = task.Workspace
		outcome.Operation = task.Operation

		outcomes[i] = outcome

		if task.Operation == Init && outcome.Status != Success {
			initFailed = true

			e.log.Warnf("module %s: init failed, skipping remaining tasks", modulePath)
		}
	}
}

func (e *Executor) skipAll(indices []int, tasks []Task, outcomes []Outcome, reason string) {
	for _, i := range indices {
		outcomes[i] = skipOutcome(tasks[i], reason)
	}
}

func skipOutcome(task Task, reason string) Outcome {
	return Outcome{
		ModulePath: task.ModulePath,
		Workspace:  task.Workspace,
		Operation:  task.Operation,
		Status:     Skipped,
		SkipReason: reason,
	}
}

// groupByModule partitions task indices by ModulePath, preserving the
// enqueue order both within each group and across the returned module
// order (first-seen order).
func groupByModule(tasks []Task) (map[string][]int, []string) {
	groups := make(map[string][]int)

	var order []string

	for i, t := range tasks {
		if _, ok := groups[t.ModulePath]; !ok {
			order = append(order, t.ModulePath)
		}

		groups[t.ModulePath] = append(groups[t.ModulePath], i)
	}

	return groups, order
}
