package scanner_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devqik/solarboat/internal/scanner"
)

func TestBuildGraphResolvesLocalModuleSource(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "mods", "net", "main.tf"), `resource "a" "b" {}`)
	writeFile(t, filepath.Join(root, "prod", "main.tf"), `
module "n" {
  source = "../mods/net"
}
`)

	modules, err := scanner.Scan(root, root, scanner.Options{})
	require.NoError(t, err)

	graph, err := scanner.BuildGraph(modules)
	require.NoError(t, err)

	var prod *scanner.Module
	for _, m := range modules {
		if m.Path == "prod" {
			prod = m
		}
	}
	require.NotNil(t, prod)
	require.Contains(t, prod.DependsOn, "mods/net")

	affected := graph.ReverseReachable([]*scanner.Module{moduleByPath(modules, "mods/net")})
	require.Len(t, affected, 2)
}

func TestBuildGraphIgnoresNonLocalSources(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "prod", "main.tf"), `
module "vpc" {
  source = "terraform-aws-modules/vpc/aws"
}
`)

	modules, err := scanner.Scan(root, root, scanner.Options{})
	require.NoError(t, err)

	_, err = scanner.BuildGraph(modules)
	require.NoError(t, err)

	prod := moduleByPath(modules, "prod")
	require.Empty(t, prod.DependsOn)
}

func TestReverseReachableIsTransitive(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "mods", "leaf", "main.tf"), `resource "a" "b" {}`)
	writeFile(t, filepath.Join(root, "mods", "mid", "main.tf"), `
module "leaf" {
  source = "../leaf"
}
`)
	writeFile(t, filepath.Join(root, "prod", "main.tf"), `
module "mid" {
  source = "../mods/mid"
}
`)

	modules, err := scanner.Scan(root, root, scanner.Options{})
	require.NoError(t, err)

	graph, err := scanner.BuildGraph(modules)
	require.NoError(t, err)

	affected := graph.ReverseReachable([]*scanner.Module{moduleByPath(modules, "mods/leaf")})

	var paths []string
	for _, m := range affected {
		paths = append(paths, m.Path)
	}
	require.ElementsMatch(t, []string{"mods/leaf", "mods/mid", "prod"}, paths)
}

func moduleByPath(modules []*scanner.Module, path string) *scanner.Module {
	for _, m := range modules {
		if m.Path == path {
			return m
		}
	}

	return nil
}
