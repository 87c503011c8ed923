// Package git wraps the git binary to list changed files between revisions
// and to verify a directory is a working copy. It always shells out rather
// than linking a Git implementation, keeping the dependency surface to the
// binary itself.
package git

import (
	"bytes"
	"context"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/devqik/solarboat/internal/errors"
	"github.com/devqik/solarboat/pkg/log"
)

// Probe runs git commands rooted at a working directory.
type Probe struct {
	gitPath string
	workDir string
	log     log.Logger
}

// NewProbe resolves the git binary on PATH and returns a Probe rooted at
// workDir.
func NewProbe(workDir string, l log.Logger) (*Probe, error) {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		return nil, errors.WithStackTraceAndPrefix(err, "git binary not found on PATH")
	}

	return &Probe{gitPath: gitPath, workDir: workDir, log: l}, nil
}

// IsRepo reports whether the working directory is inside a git repository.
func (p *Probe) IsRepo(ctx context.Context) bool {
	_, err := p.run(ctx, "rev-parse", "--git-dir")
	return err == nil
}

// TopLevel returns the absolute path to the repository's top-level
// directory, which is what git's --name-only output is always relative
// to regardless of the working directory a command ran in.
func (p *Probe) TopLevel(ctx context.Context) (string, error) {
	out, err := p.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", errors.WithStackTrace(err)
	}

	return strings.TrimSpace(out), nil
}

// CurrentBranch returns the checked-out branch name. It prefers
// GITHUB_REF_NAME when set so CI runs that check out a detached HEAD still
// report the branch the workflow is building.
func (p *Probe) CurrentBranch(ctx context.Context, githubRefName string) (string, error) {
	if githubRefName != "" {
		return githubRefName, nil
	}

	out, err := p.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", errors.WithStackTraceAndPrefix(err, "failed to determine current branch")
	}

	return strings.TrimSpace(out), nil
}

// Source records which strategy ChangedFiles used to find changes, so
// callers can log which one fired.
type Source string

const (
	SourceMergeBase    Source = "merge-base"
	SourceRecentCommits Source = "recent-commits"
	SourceUncommitted  Source = "uncommitted"
	SourceReference    Source = "reference-point"
	SourceNone         Source = "none"
)

// ChangedFiles returns the repository-relative .tf files changed between
// the merge base of defaultBranch and HEAD, using a three-dot diff. When
// the caller is on defaultBranch itself, or the merge-base diff yields no
// files (including when neither origin/defaultBranch nor defaultBranch
// resolves locally), it falls back through the strategies implemented by
// fallback() and reports which one fired via Source.
func (p *Probe) ChangedFiles(ctx context.Context, defaultBranch string, onDefaultBranch bool, recentCommits int) ([]string, Source, error) {
	if onDefaultBranch {
		files, src, err := p.fallback(ctx, defaultBranch, recentCommits)
		if err != nil {
			return nil, SourceNone, err
		}

		return files, src, nil
	}

	files, err := p.mergeBaseDiff(ctx, defaultBranch)
	if err != nil {
		return nil, SourceNone, err
	}

	if len(files) == 0 {
		p.log.Debugf("no merge-base diff against %s, falling back", defaultBranch)

		return p.fallback(ctx, defaultBranch, recentCommits)
	}

	return files, SourceMergeBase, nil
}

// mergeBaseDiff implements the three-dot diff: git diff --name-only
// <base>...HEAD, where <base> is origin/<defaultBranch> if available, else
// the local <defaultBranch>. Returns an empty slice, not an error, when
// neither ref resolves locally (shallow clone); a failing diff, such as one
// with no merge base between the refs, is returned as an error.
func (p *Probe) mergeBaseDiff(ctx context.Context, defaultBranch string) ([]string, error) {
	base := "origin/" + defaultBranch
	if _, err := p.run(ctx, "rev-parse", "--verify", base); err != nil {
		base = defaultBranch
		if _, err := p.run(ctx, "rev-parse", "--verify", base); err != nil {
			p.log.Warnf("neither origin/%s nor %s is available locally (shallow clone?); falling back", defaultBranch, defaultBranch)

			return nil, nil
		}
	}

	out, err := p.run(ctx, "diff", "--name-only", base+"...HEAD")
	if err != nil {
		return nil, errors.WithStackTraceAndPrefix(err, "git diff against %s failed", base)
	}

	return tfFiles(out), nil
}

// fallback implements a three-strategy chain for the case where the caller
// is on the default branch or a plain diff against it yields nothing:
// recent commits, then uncommitted changes, then a reference point (last
// tag, or a commit from 1 day ago).
func (p *Probe) fallback(ctx context.Context, defaultBranch string, recentCommits int) ([]string, Source, error) {
	if files, err := p.recentCommitChanges(ctx, recentCommits); err == nil && len(files) > 0 {
		p.log.Infof("using recent-commits change detection (last %d commits)", recentCommits)

		return files, SourceRecentCommits, nil
	}

	if files, err := p.uncommittedChanges(ctx); err == nil && len(files) > 0 {
		p.log.Infof("using uncommitted-changes detection")

		return files, SourceUncommitted, nil
	}

	if files, err := p.referenceChanges(ctx, defaultBranch); err == nil && len(files) > 0 {
		p.log.Infof("using reference-point change detection")

		return files, SourceReference, nil
	}

	p.log.Infof("no changes found by any fallback strategy")

	return nil, SourceNone, nil
}

func (p *Probe) recentCommitChanges(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	out, err := p.run(ctx, "log", "--oneline", "-n", strconv.Itoa(n))
	if err != nil {
		return nil, errors.WithStackTrace(err)
	}

	var commits []string

	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) > 0 {
			commits = append(commits, fields[0])
		}
	}

	set := make(map[string]struct{})

	for _, commit := range commits {
		diffOut, err := p.run(ctx, "diff", "--name-only", commit+"~1", commit)
		if err != nil {
			continue
		}

		for _, f := range tfFiles(diffOut) {
			set[f] = struct{}{}
		}
	}

	return setToSortedSlice(set), nil
}

func (p *Probe) uncommittedChanges(ctx context.Context) ([]string, error) {
	set := make(map[string]struct{})

	for _, args := range [][]string{{"diff", "--cached", "--name-only"}, {"diff", "--name-only"}} {
		out, err := p.run(ctx, args...)
		if err != nil {
			continue
		}

		for _, f := range tfFiles(out) {
			set[f] = struct{}{}
		}
	}

	return setToSortedSlice(set), nil
}

func (p *Probe) referenceChanges(ctx context.Context, defaultBranch string) ([]string, error) {
	if tag, err := p.run(ctx, "describe", "--tags", "--abbrev=0"); err == nil {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			out, err := p.run(ctx, "diff", "--name-only", tag, "HEAD")
			if err == nil {
				return tfFiles(out), nil
			}
		}
	}

	out, err := p.run(ctx, "rev-list", "-n", "1", "--before=1 day ago", defaultBranch)
	if err != nil {
		return nil, errors.WithStackTrace(err)
	}

	commit := strings.TrimSpace(out)
	if commit == "" {
		return nil, nil
	}

	diffOut, err := p.run(ctx, "diff", "--name-only", commit, "HEAD")
	if err != nil {
		return nil, errors.WithStackTrace(err)
	}

	return tfFiles(diffOut), nil
}

func (p *Probe) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, p.gitPath, args...) //nolint:gosec
	cmd.Dir = p.workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", errors.Errorf("git %s failed: %w: %s", strings.Join(args, " "), err, stderr.String())
	}

	return stdout.String(), nil
}

func tfFiles(out string) []string {
	var files []string

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasSuffix(line, ".tf") {
			files = append(files, line)
		}
	}

	return files
}

func setToSortedSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}

	sort.Strings(out)

	return out
}
