package scanner_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devqik/solarboat/internal/scanner"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScanClassifiesStatefulModule(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "prod", "main.tf"), `
terraform {
  backend "s3" {
    bucket = "x"
  }
}
`)

	modules, err := scanner.Scan(root, root, scanner.Options{})
	require.NoError(t, err)
	require.Len(t, modules, 1)
	require.Equal(t, "prod", modules[0].Path)
	require.Equal(t, scanner.Stateful, modules[0].Kind)
}

func TestScanClassifiesStatelessModule(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "mods", "net", "main.tf"), `
resource "null_resource" "n" {}
`)

	modules, err := scanner.Scan(root, root, scanner.Options{})
	require.NoError(t, err)
	require.Len(t, modules, 1)
	require.Equal(t, scanner.Stateless, modules[0].Kind)
}

func TestScanIgnoresCommentedBackendBlock(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "m", "main.tf"), `
terraform {
  # backend "s3" {
  #   bucket = "x"
  # }
}
`)

	modules, err := scanner.Scan(root, root, scanner.Options{})
	require.NoError(t, err)
	require.Len(t, modules, 1)
	require.Equal(t, scanner.Stateless, modules[0].Kind)
}

func TestScanSkipsDotDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".terraform", "modules", "main.tf"), `resource "a" "b" {}`)
	writeFile(t, filepath.Join(root, ".git", "main.tf"), `resource "a" "b" {}`)
	writeFile(t, filepath.Join(root, "m", "main.tf"), `resource "a" "b" {}`)

	modules, err := scanner.Scan(root, root, scanner.Options{})
	require.NoError(t, err)
	require.Len(t, modules, 1)
	require.Equal(t, "m", modules[0].Path)
}

func TestScanExcludesGlobPatterns(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "legacy", "m", "main.tf"), `resource "a" "b" {}`)
	writeFile(t, filepath.Join(root, "live", "m", "main.tf"), `resource "a" "b" {}`)

	modules, err := scanner.Scan(root, root, scanner.Options{Exclude: []string{"legacy/*"}})
	require.NoError(t, err)
	require.Len(t, modules, 1)
	require.Equal(t, "live/m", modules[0].Path)
}

func TestScanHandlesSymlinkCycle(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "m", "main.tf"), `resource "a" "b" {}`)

	cycle := filepath.Join(root, "m", "loop")
	require.NoError(t, os.Symlink(filepath.Join(root, "m"), cycle))

	modules, err := scanner.Scan(root, root, scanner.Options{})
	require.NoError(t, err)
	require.Len(t, modules, 1)
}

func TestSortModulesOrdersByCanonicalPath(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b", "main.tf"), `resource "a" "b" {}`)
	writeFile(t, filepath.Join(root, "a", "main.tf"), `resource "a" "b" {}`)

	modules, err := scanner.Scan(root, root, scanner.Options{})
	require.NoError(t, err)

	sorted := scanner.SortModules(modules)
	require.Equal(t, "a", sorted[0].Path)
	require.Equal(t, "b", sorted[1].Path)
}
