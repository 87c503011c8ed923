// Package impact implements the Impact Analyzer: it combines a
// Changed-File Set with the dependency graph to produce the Affected Set
// of stateful modules a run must process.
package impact

import (
	"strings"

	"github.com/devqik/solarboat/internal/scanner"
)

// Compute maps a Changed-File Set to the Affected Set of stateful modules.
// changedFiles are slash-separated paths relative to the same anchor the
// Module Scanner canonicalized module paths against.
func Compute(changedFiles []string, modules []*scanner.Module, graph *scanner.Graph, all bool) []*scanner.Module {
	if all {
		return scanner.SortModules(scanner.StatefulModules(modules))
	}

	directly := directlyChanged(changedFiles, modules)
	affected := graph.ReverseReachable(directly)
	stateful := scanner.StatefulModules(affected)

	return scanner.SortModules(stateful)
}

// directlyChanged maps each changed file to the deepest module whose
// canonical directory is a prefix of the file's path. A change outside
// every module is ignored.
func directlyChanged(changedFiles []string, modules []*scanner.Module) []*scanner.Module {
	seen := make(map[string]*scanner.Module)

	for _, file := range changedFiles {
		file = strings.TrimPrefix(file, "./")

		var best *scanner.Module

		for _, m := range modules {
			if !isUnder(file, m.Path) {
				continue
			}

			if best == nil || best.Path == "." || len(m.Path) > len(best.Path) {
				best = m
			}
		}

		if best != nil {
			seen[best.Path] = best
		}
	}

	out := make([]*scanner.Module, 0, len(seen))
	for _, m := range seen {
		out = append(out, m)
	}

	return out
}

// isUnder reports whether file lives at or under dir, both expressed in
// the same slash-separated canonical form. dir == "." matches everything
// (the project root itself contains .tf files with no subdirectory).
func isUnder(file, dir string) bool {
	if dir == "." || dir == "" {
		return true
	}

	return file == dir || strings.HasPrefix(file, dir+"/")
}
