package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devqik/solarboat/internal/config"
)

func newFile() config.File {
	return config.File{
		Global: config.Section{
			IgnoreWorkspaces: []string{"dev"},
			VarFiles:         []string{"g.tfvars"},
			WorkspaceVarFiles: config.WorkspaceVarFiles{
				"prod": {"gp.tfvars"},
			},
		},
		Modules: map[string]config.Section{
			"m": {
				VarFiles: []string{"m.tfvars"},
				WorkspaceVarFiles: config.WorkspaceVarFiles{
					"prod": {"mp.tfvars"},
				},
			},
		},
	}
}

// TestIsIgnoredUsesGlobalWhenModuleUnset verifies a workspace ignored only
// at the global level is still ignored for a module with no
// ignore_workspaces of its own.
func TestIsIgnoredUsesGlobalWhenModuleUnset(t *testing.T) {
	t.Parallel()

	r := config.NewResolver(newFile(), "/cfg", config.NewCLIOverrides(nil, false, nil, false))

	require.True(t, r.IsIgnored("m", "dev"))
	require.False(t, r.IsIgnored("m", "prod"))
}

func TestIsIgnoredCLIOverrideReplacesConfig(t *testing.T) {
	t.Parallel()

	cli := config.NewCLIOverrides([]string{"prod"}, true, nil, false)
	r := config.NewResolver(newFile(), "/cfg", cli)

	require.True(t, r.IsIgnored("m", "prod"))
	require.False(t, r.IsIgnored("m", "dev"), "CLI override should replace, not union with, the config ignore list")
}

// TestVarFilesForLayersModuleOverGlobal verifies the module's var_files
// and workspace_var_files both layer over the global ones, and the final
// list is general-then-specific.
func TestVarFilesForLayersModuleOverGlobal(t *testing.T) {
	t.Parallel()

	r := config.NewResolver(newFile(), "/cfg", config.NewCLIOverrides(nil, false, nil, false))

	files := r.VarFilesFor("m", "prod")
	require.Equal(t, []string{"/cfg/m.tfvars", "/cfg/mp.tfvars"}, files)
}

func TestVarFilesForFallsBackToGlobalWhenModuleUnset(t *testing.T) {
	t.Parallel()

	file := newFile()
	file.Modules["other"] = config.Section{}

	r := config.NewResolver(file, "/cfg", config.NewCLIOverrides(nil, false, nil, false))

	files := r.VarFilesFor("other", "prod")
	require.Equal(t, []string{"/cfg/g.tfvars", "/cfg/gp.tfvars"}, files)
}

func TestVarFilesForCLIOverrideReplacesConfigEntirely(t *testing.T) {
	t.Parallel()

	cli := config.NewCLIOverrides(nil, false, []string{"cli.tfvars"}, true)
	r := config.NewResolver(newFile(), "/cfg", cli)

	files := r.VarFilesFor("m", "prod")
	require.Equal(t, []string{"/cfg/cli.tfvars"}, files)
}

func TestVarFilesForPassesThroughAbsolutePaths(t *testing.T) {
	t.Parallel()

	file := config.File{
		Modules: map[string]config.Section{
			"m": {VarFiles: []string{"/abs/m.tfvars"}},
		},
	}

	r := config.NewResolver(file, "/cfg", config.NewCLIOverrides(nil, false, nil, false))

	files := r.VarFilesFor("m", "default")
	require.Equal(t, []string{"/abs/m.tfvars"}, files)
}
