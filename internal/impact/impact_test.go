package impact_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devqik/solarboat/internal/impact"
	"github.com/devqik/solarboat/internal/scanner"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// TestComputePropagatesStatelessChangeToStatefulDependent verifies a
// change to a stateless module's .tf file propagates to the stateful
// module that depends on it, transitively.
func TestComputePropagatesStatelessChangeToStatefulDependent(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "mods", "net", "main.tf"), `resource "a" "b" {}`)
	writeFile(t, filepath.Join(root, "prod", "main.tf"), `
terraform {
  backend "s3" {
    bucket = "x"
  }
}

module "n" {
  source = "../mods/net"
}
`)

	modules, err := scanner.Scan(root, root, scanner.Options{})
	require.NoError(t, err)

	graph, err := scanner.BuildGraph(modules)
	require.NoError(t, err)

	affected := impact.Compute([]string{"mods/net/main.tf"}, modules, graph, false)

	require.Len(t, affected, 1)
	require.Equal(t, "prod", affected[0].Path)
}

func TestComputeIgnoresChangeOutsideAnyModule(t *testing.T) {
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

	graph, err := scanner.BuildGraph(modules)
	require.NoError(t, err)

	affected := impact.Compute([]string{"README.md"}, modules, graph, false)
	require.Empty(t, affected)
}

func TestComputeAllReturnsEveryStatefulModule(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "main.tf"), `
terraform {
  backend "s3" {
    bucket = "x"
  }
}
`)
	writeFile(t, filepath.Join(root, "b", "main.tf"), `resource "x" "y" {}`)

	modules, err := scanner.Scan(root, root, scanner.Options{})
	require.NoError(t, err)

	graph, err := scanner.BuildGraph(modules)
	require.NoError(t, err)

	affected := impact.Compute(nil, modules, graph, true)
	require.Len(t, affected, 1)
	require.Equal(t, "a", affected[0].Path)
}

func TestComputeFiltersToDeepestMatchingModule(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.tf"), `
terraform {
  backend "s3" {
    bucket = "root"
  }
}
`)
	writeFile(t, filepath.Join(root, "nested", "main.tf"), `
terraform {
  backend "s3" {
    bucket = "nested"
  }
}
`)

	modules, err := scanner.Scan(root, root, scanner.Options{})
	require.NoError(t, err)

	graph, err := scanner.BuildGraph(modules)
	require.NoError(t, err)

	affected := impact.Compute([]string{"nested/main.tf"}, modules, graph, false)
	require.Len(t, affected, 1)
	require.Equal(t, "nested", affected[0].Path)
}
