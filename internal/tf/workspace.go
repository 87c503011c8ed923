// Package tf builds Terraform argv and probes workspaces. It never spawns
// a subprocess itself beyond the short-lived "terraform workspace list"
// probe; everything else is handed to internal/runner.
package tf

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/devqik/solarboat/internal/errors"
)

// WorkspaceListTimeout bounds the "terraform workspace list" probe.
const WorkspaceListTimeout = 30 * time.Second

// ListWorkspaces runs `terraform workspace list` in moduleDir and parses
// its output: each non-empty line trimmed, the leading "*" (current
// workspace) indicator stripped. A module that has never had workspaces
// created reports only "default".
func ListWorkspaces(ctx context.Context, tfPath, moduleDir string, env []string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, WorkspaceListTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, tfPath, "workspace", "list") //nolint:gosec
	cmd.Dir = moduleDir
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.Errorf("terraform workspace list in %s failed: %w: %s", moduleDir, err, stderr.String())
	}

	var workspaces []string

	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		line = strings.TrimPrefix(line, "*")
		line = strings.TrimSpace(line)

		if line != "" {
			workspaces = append(workspaces, line)
		}
	}

	if len(workspaces) == 0 {
		workspaces = []string{"default"}
	}

	return workspaces, nil
}
