// Package config implements discovery, parsing, validation, and layered
// resolution of solarboat.json, built on mapstructure's decoding over a raw
// JSON document.
package config

// WorkspaceVarFiles maps a workspace name to its ordered var-file list.
type WorkspaceVarFiles map[string][]string

// Section is the shape shared by the "global" key and every value under
// "modules" in solarboat.json.
type Section struct {
	IgnoreWorkspaces  []string          `mapstructure:"ignore_workspaces"`
	VarFiles          []string          `mapstructure:"var_files"`
	WorkspaceVarFiles WorkspaceVarFiles `mapstructure:"workspace_var_files"`
}

// File is the root shape of solarboat.json: exactly two optional top-level
// keys.
type File struct {
	Global  Section            `mapstructure:"global"`
	Modules map[string]Section `mapstructure:"modules"`
}

// ReservedWorkspaces are names that trigger a validation warning when a
// user references them as an override - they're always valid workspaces,
// but config that singles them out is almost certainly a typo.
var ReservedWorkspaces = map[string]struct{}{
	"default":   {},
	"terraform": {},
}
