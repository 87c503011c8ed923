package config

import "path/filepath"

// CLIOverrides carries the --ignore-workspaces / --var-files flags, which
// when set replace the config-derived values entirely rather than layering
// with them.
type CLIOverrides struct {
	IgnoreWorkspaces []string
	VarFiles         []string

	ignoreWorkspacesSet bool
	varFilesSet         bool
}

// NewCLIOverrides builds CLIOverrides, recording whether each flag was
// actually supplied so Resolver can distinguish "not set" from "set to
// empty".
func NewCLIOverrides(ignoreWorkspaces []string, ignoreWorkspacesSet bool, varFiles []string, varFilesSet bool) CLIOverrides {
	return CLIOverrides{
		IgnoreWorkspaces:    ignoreWorkspaces,
		VarFiles:            varFiles,
		ignoreWorkspacesSet: ignoreWorkspacesSet,
		varFilesSet:         varFilesSet,
	}
}

// Resolver is the read-only view the Config Store exposes: holds no
// mutable state after construction, so it is freely shared across the
// Parallel Executor's worker goroutines without locking.
type Resolver struct {
	file      File
	configDir string
	cli       CLIOverrides
}

// NewResolver builds a Resolver over a parsed File and the CLI overrides
// for this invocation.
func NewResolver(file File, configDir string, cli CLIOverrides) *Resolver {
	return &Resolver{file: file, configDir: configDir, cli: cli}
}

func (r *Resolver) moduleSection(modulePath string) Section {
	return r.file.Modules[modulePath]
}

// IsIgnored answers "is this workspace ignored for this module?": CLI
// ignore-workspaces, if provided, replaces module and global entirely;
// otherwise it's the union of module.ignore_workspaces and
// global.ignore_workspaces.
func (r *Resolver) IsIgnored(modulePath, workspace string) bool {
	if r.cli.ignoreWorkspacesSet {
		return contains(r.cli.IgnoreWorkspaces, workspace)
	}

	module := r.moduleSection(modulePath)

	return contains(module.IgnoreWorkspaces, workspace) || contains(r.file.Global.IgnoreWorkspaces, workspace)
}

// VarFilesFor answers "what ordered list of var files applies?": if the
// CLI supplied an explicit var-files list, that list wins outright.
// Otherwise it's general ++ specific, where general is the module's
// var_files if set else global's, and specific is the module's
// workspace_var_files[workspace] if set else global's. Every path is
// resolved relative to the config file's directory; absolute paths pass
// through unchanged.
func (r *Resolver) VarFilesFor(modulePath, workspace string) []string {
	if r.cli.varFilesSet {
		return resolvePaths(r.configDir, r.cli.VarFiles)
	}

	module := r.moduleSection(modulePath)

	general := module.VarFiles
	if general == nil {
		general = r.file.Global.VarFiles
	}

	specific := module.WorkspaceVarFiles[workspace]
	if specific == nil {
		specific = r.file.Global.WorkspaceVarFiles[workspace]
	}

	combined := make([]string, 0, len(general)+len(specific))
	combined = append(combined, general...)
	combined = append(combined, specific...)

	return resolvePaths(r.configDir, combined)
}

func resolvePaths(configDir string, paths []string) []string {
	if len(paths) == 0 {
		return nil
	}

	out := make([]string, len(paths))

	for i, p := range paths {
		if filepath.IsAbs(p) {
			out[i] = p
		} else {
			out[i] = filepath.Join(configDir, p)
		}
	}

	return out
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}

	return false
}
