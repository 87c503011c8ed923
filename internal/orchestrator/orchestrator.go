// Package orchestrator implements the Command Orchestrator: the top-level
// glue that turns a solarboat invocation into Modules, an Affected Set,
// and a list of Tasks, then drives them through the Parallel Executor.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/devqik/solarboat/internal/config"
	"github.com/devqik/solarboat/internal/errors"
	"github.com/devqik/solarboat/internal/git"
	"github.com/devqik/solarboat/internal/impact"
	"github.com/devqik/solarboat/internal/runner"
	"github.com/devqik/solarboat/internal/scanner"
	"github.com/devqik/solarboat/internal/tf"
	"github.com/devqik/solarboat/options"
)

// Orchestrator ties every leaf component together for the scan/plan/apply
// subcommands.
type Orchestrator struct {
	opts *options.Options
}

// New returns an Orchestrator for opts.
func New(opts *options.Options) *Orchestrator {
	return &Orchestrator{opts: opts}
}

// discovery is the shared first half of every subcommand: discover
// modules, build the graph, load and validate config, and (unless all is
// set) compute the Changed-File Set and Affected Set.
type discovery struct {
	anchor    string
	modules   []*scanner.Module
	graph     *scanner.Graph
	resolver  *config.Resolver
	configDir string
	affected  []*scanner.Module
	source    git.Source
}

func (o *Orchestrator) discover(ctx context.Context, all bool) (*discovery, error) {
	l := o.opts.Logger

	file, configDir, loadedPath, err := config.Load(o.opts.Path, o.opts.ConfigPath, o.opts.NoConfig, l)
	if err != nil {
		return nil, err
	}

	anchor := configDir
	if loadedPath == "" {
		anchor = o.opts.Path
	}

	modules, err := scanner.Scan(o.opts.Path, anchor, scanner.Options{Exclude: o.opts.Exclude})
	if err != nil {
		return nil, err
	}

	graph, err := scanner.BuildGraph(modules)
	if err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(modules))
	for _, m := range modules {
		known[m.Path] = struct{}{}
	}

	config.Validate(file, configDir, known, l)

	cli := config.NewCLIOverrides(
		o.opts.IgnoreWorkspaces, o.opts.IgnoreWorkspacesSet,
		o.opts.VarFiles, o.opts.VarFilesSet,
	)
	resolver := config.NewResolver(file, configDir, cli)

	d := &discovery{
		anchor:    anchor,
		modules:   modules,
		graph:     graph,
		resolver:  resolver,
		configDir: configDir,
	}

	if all {
		d.affected = impact.Compute(nil, modules, graph, true)
		return d, nil
	}

	changed, source, err := o.changedFiles(ctx, anchor)
	if err != nil {
		return nil, err
	}

	d.source = source
	d.affected = impact.Compute(changed, modules, graph, false)

	l.Infof("change detection strategy: %s, %d changed file(s), %d affected module(s)", source, len(changed), len(d.affected))

	return d, nil
}

// changedFiles returns the Changed-File Set, re-expressed relative to
// anchor; git's own output is always relative to the repository
// top-level, which only coincides with anchor when no config file scopes
// the project to a subdirectory.
func (o *Orchestrator) changedFiles(ctx context.Context, anchor string) ([]string, git.Source, error) {
	l := o.opts.Logger

	probe, err := git.NewProbe(o.opts.Path, l)
	if err != nil {
		return nil, git.SourceNone, err
	}

	if !probe.IsRepo(ctx) {
		return nil, git.SourceNone, errors.Errorf("%s is not a git repository", o.opts.Path)
	}

	branch, err := probe.CurrentBranch(ctx, o.opts.GithubRefName)
	if err != nil {
		return nil, git.SourceNone, err
	}

	onDefault := branch == o.opts.DefaultBranch

	files, source, err := probe.ChangedFiles(ctx, o.opts.DefaultBranch, onDefault, o.opts.RecentCommits)
	if err != nil {
		return nil, git.SourceNone, err
	}

	topLevel, err := probe.TopLevel(ctx)
	if err != nil {
		return nil, git.SourceNone, err
	}

	absAnchor, err := filepath.Abs(anchor)
	if err != nil {
		return nil, git.SourceNone, errors.WithStackTrace(err)
	}

	out := make([]string, 0, len(files))

	for _, f := range files {
		abs := filepath.Join(topLevel, f)

		rel, err := filepath.Rel(absAnchor, abs)
		if err != nil {
			continue
		}

		out = append(out, filepath.ToSlash(rel))
	}

	if o.opts.Path != "." {
		absPath, err := filepath.Abs(o.opts.Path)
		if err != nil {
			return nil, git.SourceNone, errors.WithStackTrace(err)
		}

		// out is anchor-relative, so --path is re-expressed the same way.
		if scope, err := filepath.Rel(absAnchor, absPath); err == nil && scope != "." {
			out = filterByPath(out, filepath.ToSlash(scope))
		}
	}

	return out, source, nil
}

// filterByPath narrows the Changed-File Set to paths at or under a
// non-root --path, so a scoped invocation never reacts to changes outside
// the directory it was asked to scan.
func filterByPath(files []string, path string) []string {
	prefix := filepath.ToSlash(filepath.Clean(path)) + "/"

	var out []string

	for _, f := range files {
		if f == path || (len(f) > len(prefix) && f[:len(prefix)] == prefix) {
			out = append(out, f)
		}
	}

	return out
}

// moduleDir returns the absolute filesystem directory for a module with
// the given canonical path.
func moduleDir(anchor, modulePath string) string {
	return filepath.Join(anchor, modulePath)
}

// resolveTFPath returns the configured terraform binary, or resolves it
// from PATH when none was configured.
func resolveTFPath(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	path, err := exec.LookPath("terraform")
	if err != nil {
		return "", errors.WithStackTraceAndPrefix(err, "terraform binary not found on PATH")
	}

	return path, nil
}

// childEnv builds the environment passed to every terraform invocation:
// the parent's environment, TF_IN_AUTOMATION=1 to suppress interactive
// prompts, plus any extra overrides.
func childEnv(extra map[string]string) []string {
	env := append(os.Environ(), "TF_IN_AUTOMATION=1")

	for k, v := range extra {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	return env
}

// ScanResult is the output of the scan subcommand.
type ScanResult struct {
	Modules  []*scanner.Module
	Affected []*scanner.Module
	Source   git.Source
}

// Scan discovers modules and reports the Affected Set without running
// any Terraform command.
func (o *Orchestrator) Scan(ctx context.Context) (*ScanResult, error) {
	d, err := o.discover(ctx, o.opts.All)
	if err != nil {
		return nil, err
	}

	return &ScanResult{
		Modules:  scanner.SortModules(d.modules),
		Affected: d.affected,
		Source:   d.source,
	}, nil
}

// Plan runs terraform init and plan for every workspace of every affected
// module.
func (o *Orchestrator) Plan(ctx context.Context) ([]runner.Outcome, error) {
	return o.run(ctx, runner.Plan)
}

// Apply runs terraform init for every affected module and then, for every
// workspace, terraform apply, or terraform plan (without -out) while
// DryRun is set.
func (o *Orchestrator) Apply(ctx context.Context) ([]runner.Outcome, error) {
	var lock *runner.RunLock

	if !o.opts.DryRun {
		lockPath, err := o.lockPath()
		if err != nil {
			return nil, err
		}

		l, err := runner.AcquireRunLock(lockPath)
		if err != nil {
			return nil, err
		}

		lock = l

		defer func() {
			if relErr := lock.Release(); relErr != nil {
				o.opts.Logger.Warnf("failed to release run lock: %v", relErr)
			}
		}()
	}

	return o.run(ctx, runner.Apply)
}

// lockPath scopes the apply run lock to the tree being operated on: inside
// the plan output directory when one is configured, otherwise next to
// the resolved config file, so concurrent applies against different trees
// never contend for the same lock.
func (o *Orchestrator) lockPath() (string, error) {
	if o.opts.OutputDir != "" {
		if err := os.MkdirAll(o.opts.OutputDir, 0o755); err != nil {
			return "", errors.WithStackTraceAndPrefix(err, "failed to create output directory %s", o.opts.OutputDir)
		}

		return filepath.Join(o.opts.OutputDir, ".solarboat.lock"), nil
	}

	_, configDir, _, err := config.Load(o.opts.Path, o.opts.ConfigPath, o.opts.NoConfig, o.opts.Logger)
	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, ".solarboat.lock"), nil
}

// run is shared by Plan and Apply: it discovers the Affected Set, builds
// one Init Task per module plus, for every non-ignored workspace, a Plan
// or Apply Task (preceded by a workspace select in multi-workspace
// modules), and drives them through the Parallel Executor.
func (o *Orchestrator) run(ctx context.Context, finalOp runner.Operation) ([]runner.Outcome, error) {
	l := o.opts.Logger

	d, err := o.discover(ctx, o.opts.All)
	if err != nil {
		return nil, err
	}

	if len(d.affected) == 0 {
		l.Infof("no affected modules, nothing to do")
		return nil, nil
	}

	tfPath, err := resolveTFPath(o.opts.TFPath)
	if err != nil {
		return nil, err
	}

	tasks, err := o.buildTasks(ctx, d, tfPath, finalOp)
	if err != nil {
		return nil, err
	}

	if len(tasks) == 0 {
		l.Infof("every workspace of every affected module is ignored, nothing to do")
		return nil, nil
	}

	r := runner.NewRunner(l)
	concurrency := o.opts.EffectiveParallel()
	executor := runner.NewExecutor(r, concurrency, l)

	l.Infof("running %d task(s) across %d module(s) with parallelism %d", len(tasks), len(d.affected), concurrency)

	outcomes := executor.Run(ctx, tasks)

	return outcomes, nil
}

// buildTasks expands the Affected Set into Init/Plan[/Apply] Tasks for
// every non-ignored workspace of every module.
func (o *Orchestrator) buildTasks(ctx context.Context, d *discovery, tfPath string, finalOp runner.Operation) ([]runner.Task, error) {
	var tasks []runner.Task

	for _, m := range d.affected {
		dir := moduleDir(d.anchor, m.Path)
		env := childEnv(nil)

		workspaces, err := tf.ListWorkspaces(ctx, tfPath, dir, env)
		if err != nil {
			return nil, err
		}

		tasks = append(tasks, runner.Task{
			ModulePath: m.Path,
			Workspace:  workspaces[0],
			Operation:  runner.Init,
			TFPath:     tfPath,
			Args:       tf.InitArgs(),
			Dir:        dir,
			Env:        env,
			Timeout:    runner.TimeoutFor(runner.Init, o.opts.InitTimeout),
		})

		for _, ws := range workspaces {
			if d.resolver.IsIgnored(m.Path, ws) {
				o.opts.Logger.Debugf("module %s: workspace %s is ignored", m.Path, ws)
				continue
			}

			varFiles := d.resolver.VarFilesFor(m.Path, ws)

			if len(workspaces) > 1 {
				tasks = append(tasks, runner.Task{
					ModulePath: m.Path,
					Workspace:  ws,
					Operation:  runner.Init,
					TFPath:     tfPath,
					Args:       tf.WorkspaceSelectArgs(ws),
					Dir:        dir,
					Env:        env,
					Timeout:    runner.TimeoutFor(runner.Init, o.opts.InitTimeout),
				})
			}

			liveApply := finalOp == runner.Apply && !o.opts.DryRun

			if liveApply {
				tasks = append(tasks, runner.Task{
					ModulePath:   m.Path,
					Workspace:    ws,
					Operation:    runner.Apply,
					TFPath:       tfPath,
					Args:         tf.ApplyArgs(varFiles),
					Dir:          dir,
					Env:          env,
					Timeout:      runner.TimeoutFor(runner.Apply, o.opts.ApplyTimeout),
					Streaming:    o.opts.Watch,
					StdoutWriter: o.opts.Writer,
					StderrWriter: o.opts.ErrWriter,
				})

				continue
			}

			planOut := ""
			if o.opts.OutputDir != "" && finalOp == runner.Plan {
				moduleOut := filepath.Join(o.opts.OutputDir, m.Path)
				if err := os.MkdirAll(moduleOut, 0o755); err != nil {
					return nil, errors.WithStackTraceAndPrefix(err, "failed to create plan output directory %s", moduleOut)
				}

				planOut = filepath.Join(moduleOut, ws+".tfplan")
			}

			tasks = append(tasks, runner.Task{
				ModulePath:   m.Path,
				Workspace:    ws,
				Operation:    runner.Plan,
				TFPath:       tfPath,
				Args:         tf.PlanArgs(planOut, varFiles),
				Dir:          dir,
				Env:          env,
				Timeout:      runner.TimeoutFor(runner.Plan, o.opts.PlanTimeout),
				Streaming:    o.opts.Watch,
				StdoutWriter: o.opts.Writer,
				StderrWriter: o.opts.ErrWriter,
			})
		}
	}

	return tasks, nil
}
