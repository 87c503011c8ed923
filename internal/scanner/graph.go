package scanner

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/devqik/solarboat/internal/errors"
)

// Graph is the directed dependency graph between Modules: an edge (from,
// to) means "from" sources "to" as a submodule. Represented as indices
// into a flat table so the reverse-reachability walk needs only a visited
// set and a queue.
type Graph struct {
	modules []*Module
	index   map[string]int
	// edges[i] holds the indices of modules that module i depends on.
	edges [][]int
	// reverse[i] holds the indices of modules that depend on module i.
	reverse [][]int
}

var moduleBlockStart = regexp.MustCompile(`^module\s+"([^"]+)"\s*\{`)
var sourceAttr = regexp.MustCompile(`^source\s*=\s*["']([^"']+)["']`)

// BuildGraph parses every module's .tf files for local module "source"
// references and builds the dependency graph over the given module set.
func BuildGraph(modules []*Module) (*Graph, error) {
	g := &Graph{
		modules: modules,
		index:   make(map[string]int, len(modules)),
		edges:   make([][]int, len(modules)),
		reverse: make([][]int, len(modules)),
	}

	for i, m := range modules {
		g.index[m.Path] = i
	}

	for i, m := range modules {
		sources, err := localModuleSources(m)
		if err != nil {
			return nil, err
		}

		seen := make(map[int]struct{})

		for _, src := range sources {
			target := filepath.ToSlash(filepath.Clean(filepath.Join(m.Path, src)))

			j, ok := g.index[target]
			if !ok {
				// Registry/git/https sources, or a relative path that
				// doesn't resolve to a discovered Module, are ignored.
				continue
			}

			if _, dup := seen[j]; dup {
				continue
			}

			seen[j] = struct{}{}
			g.edges[i] = append(g.edges[i], j)
			g.reverse[j] = append(g.reverse[j], i)
			m.DependsOn[modules[j].Path] = struct{}{}
		}
	}

	return g, nil
}

// localModuleSources returns, for every module "<name>" { ... } block found
// across m's .tf files, the value of its source attribute, unresolved.
func localModuleSources(m *Module) ([]string, error) {
	var sources []string

	for _, file := range m.TFFiles {
		content, err := os.ReadFile(file) //nolint:gosec
		if err != nil {
			return nil, errors.WithStackTraceAndPrefix(err, "failed to read %s", file)
		}

		sources = append(sources, findModuleSources(string(content))...)
	}

	return sources, nil
}

// findModuleSources is a line-oriented, brace-balancing scan for
// module "x" { ... source = "..." ... } blocks; a full HCL parser is
// unnecessary for extracting local source references.
func findModuleSources(content string) []string {
	var sources []string

	depth := 0
	inModuleBlock := false
	sawSource := false

	for _, rawLine := range strings.Split(content, "\n") {
		line := strings.TrimSpace(stripLineComment(rawLine))
		if line == "" {
			continue
		}

		if !inModuleBlock {
			if moduleBlockStart.MatchString(line) {
				inModuleBlock = true
				sawSource = false
				depth = strings.Count(line, "{") - strings.Count(line, "}")
			}

			continue
		}

		if !sawSource {
			if m := sourceAttr.FindStringSubmatch(line); m != nil {
				sources = append(sources, m[1])
				sawSource = true
			}
		}

		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if depth <= 0 {
			inModuleBlock = false
		}
	}

	return sources
}

// Modules returns the flat module table backing the graph, in the order
// passed to BuildGraph.
func (g *Graph) Modules() []*Module {
	return g.modules
}

// ReverseReachable returns every module that depends, directly or
// transitively, on any module in seeds - the closure the Impact Analyzer
// needs to expand from directly changed modules to every module that
// (transitively) sources them. The seeds themselves are included in the
// result.
func (g *Graph) ReverseReachable(seeds []*Module) []*Module {
	visited := make([]bool, len(g.modules))
	queue := make([]int, 0, len(seeds))

	for _, seed := range seeds {
		i, ok := g.index[seed.Path]
		if !ok || visited[i] {
			continue
		}

		visited[i] = true
		queue = append(queue, i)
	}

	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]

		for _, j := range g.reverse[i] {
			if visited[j] {
				continue
			}

			visited[j] = true
			queue = append(queue, j)
		}
	}

	var out []*Module

	for i, v := range visited {
		if v {
			out = append(out, g.modules[i])
		}
	}

	return out
}
