// Package scanner discovers Terraform modules under a root directory and
// builds the local dependency graph between them, the way the original
// solarboat scan_utils.rs walked a tree and classified each directory it
// found.
package scanner

import "sort"

// Kind classifies a Module by whether Terraform manages persistent state
// for it.
type Kind int

const (
	// Stateless modules are only ever referenced as submodules.
	Stateless Kind = iota
	// Stateful modules declare a backend block and are the unit the
	// Command Orchestrator runs init/plan/apply against.
	Stateful
)

func (k Kind) String() string {
	if k == Stateful {
		return "stateful"
	}

	return "stateless"
}

// Module is a directory containing one or more .tf files. Path is always
// the canonical form: relative to the project root (the config file's
// directory if one was found, else the scan root), using forward slashes.
type Module struct {
	Path     string
	Kind     Kind
	TFFiles  []string
	DependsOn map[string]struct{}
}

func newModule(path string) *Module {
	return &Module{
		Path:      path,
		Kind:      Stateless,
		DependsOn: make(map[string]struct{}),
	}
}

// SortModules returns modules ordered ascending by canonical path, the tie
// break the Impact Analyzer needs for deterministic output.
func SortModules(modules []*Module) []*Module {
	sorted := make([]*Module, len(modules))
	copy(sorted, modules)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	return sorted
}

// StatefulModules filters modules to those classified Kind == Stateful.
func StatefulModules(modules []*Module) []*Module {
	var out []*Module

	for _, m := range modules {
		if m.Kind == Stateful {
			out = append(out, m)
		}
	}

	return out
}
