// Package options holds the resolved configuration for a single solarboat
// invocation: CLI flags layered over environment defaults, assembled once
// before any command runs.
package options

import (
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/devqik/solarboat/pkg/log"
)

// Options carries every global and per-command flag the Command
// Orchestrator needs, fully resolved before dispatch.
type Options struct {
	// Global
	Path          string
	ConfigPath    string
	NoConfig      bool
	DefaultBranch string
	LogLevel      log.Level
	Writer        io.Writer
	ErrWriter     io.Writer

	// scan
	All bool

	// plan / apply shared
	OutputDir           string
	IgnoreWorkspaces    []string
	IgnoreWorkspacesSet bool
	VarFiles            []string
	VarFilesSet         bool
	Watch               bool
	Parallel            int
	RecentCommits       int
	Exclude             []string
	SummaryFile         string

	// apply
	DryRun    bool
	DryRunSet bool

	// Timeouts, zero means "use the built-in default".
	InitTimeout  time.Duration
	PlanTimeout  time.Duration
	ApplyTimeout time.Duration

	// RunID identifies this invocation in logs and in the summary file.
	RunID string

	// TFPath is the terraform binary to run. When empty, plan and apply
	// resolve "terraform" from PATH.
	TFPath string

	// GithubRefName overrides the current-branch check with
	// GITHUB_REF_NAME so CI runs on a detached HEAD still resolve the
	// branch the workflow is building.
	GithubRefName string

	Logger log.Logger
}

// New returns Options with sensible defaults: scan root ".", default branch
// "main", plan output dir "terraform-plans", apply dry-run true, parallel 1,
// recent-commits 5.
func New() *Options {
	return &Options{
		Path:          ".",
		DefaultBranch: "main",
		OutputDir:     "terraform-plans",
		DryRun:        true,
		Parallel:      1,
		RecentCommits: 5,
		LogLevel:      log.InfoLevel,
		Writer:        os.Stdout,
		ErrWriter:     os.Stderr,
		RunID:         uuid.NewString(),
	}
}

// EffectiveParallel returns Parallel clamped to [1, 4], forced to 1 when
// Watch is set so streamed output from concurrent modules never interleaves.
func (o *Options) EffectiveParallel() int {
	if o.Watch {
		return 1
	}

	switch {
	case o.Parallel < 1:
		return 1
	case o.Parallel > 4:
		return 4
	default:
		return o.Parallel
	}
}
