package scanner

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mattn/go-zglob"

	"github.com/devqik/solarboat/internal/errors"
)

// skippedDirs are never descended into.
var skippedDirs = map[string]struct{}{
	".terraform": {},
	".git":       {},
}

var terraformBlockStart = regexp.MustCompile(`^terraform\s*\{`)
var backendBlockStart = regexp.MustCompile(`^backend\s+"[^"]*"\s*\{`)

// Options configures a scan.
type Options struct {
	// Exclude holds glob patterns (matched against the canonical, slash
	// separated module path) that are skipped entirely. Supplements the
	// spec's hard-coded dot-directory skip list.
	Exclude []string
}

// Scan walks root depth-first and returns every discovered Module, ordered
// by discovery (not yet sorted by canonical path - callers that need that
// ordering use SortModules). anchor is the directory canonical paths are
// made relative to (the project root).
func Scan(root, anchor string, opts Options) ([]*Module, error) {
	root = filepath.Clean(root)
	anchor = filepath.Clean(anchor)

	var modules []*Module

	visited := make(map[string]struct{})

	err := walk(root, anchor, opts, visited, &modules)
	if err != nil {
		return nil, err
	}

	return modules, nil
}

func walk(dir, anchor string, opts Options, visited map[string]struct{}, modules *[]*Module) error {
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		// A broken symlink or permission issue under the tree is not fatal
		// to the overall scan; skip this subtree.
		return nil //nolint:nilerr
	}

	if _, ok := visited[real]; ok {
		return nil
	}

	visited[real] = struct{}{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.WithStackTraceAndPrefix(err, "failed to read directory %s", dir)
	}

	var tfFiles []string

	var subdirs []string

	for _, entry := range entries {
		name := entry.Name()

		if entry.IsDir() {
			if strings.HasPrefix(name, ".") {
				continue
			}

			if _, skip := skippedDirs[name]; skip {
				continue
			}

			subdirs = append(subdirs, filepath.Join(dir, name))

			continue
		}

		if entry.Type().IsRegular() && strings.HasSuffix(name, ".tf") {
			tfFiles = append(tfFiles, filepath.Join(dir, name))
		}
	}

	if len(tfFiles) > 0 {
		canonical, err := canonicalPath(anchor, dir)
		if err != nil {
			return err
		}

		if !excluded(canonical, opts.Exclude) {
			module, err := classify(canonical, tfFiles)
			if err != nil {
				return err
			}

			*modules = append(*modules, module)
		}
	}

	for _, subdir := range subdirs {
		if err := walk(subdir, anchor, opts, visited, modules); err != nil {
			return err
		}
	}

	return nil
}

func excluded(canonical string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := zglob.Match(pattern, canonical); ok {
			return true
		}
	}

	return false
}

func canonicalPath(anchor, dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.WithStackTrace(err)
	}

	absAnchor, err := filepath.Abs(anchor)
	if err != nil {
		return "", errors.WithStackTrace(err)
	}

	rel, err := filepath.Rel(absAnchor, abs)
	if err != nil {
		return "", errors.WithStackTrace(err)
	}

	return filepath.ToSlash(rel), nil
}

func classify(canonical string, tfFiles []string) (*Module, error) {
	module := newModule(canonical)
	module.TFFiles = tfFiles

	for _, file := range tfFiles {
		stateful, err := fileHasActiveBackend(file)
		if err != nil {
			return nil, err
		}

		if stateful {
			module.Kind = Stateful

			break
		}
	}

	return module, nil
}

// fileHasActiveBackend reports whether the .tf file at path contains a
// top-level terraform { backend "..." { ... } } block, ignoring anything
// on a line commented out with # or //. Detection is intentionally
// textual and line-oriented rather than a full HCL parse.
func fileHasActiveBackend(path string) (bool, error) {
	content, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return false, errors.WithStackTraceAndPrefix(err, "failed to read %s", path)
	}

	depth := 0
	inTerraformBlock := false

	for _, rawLine := range strings.Split(string(content), "\n") {
		line := strings.TrimSpace(stripLineComment(rawLine))
		if line == "" {
			continue
		}

		if !inTerraformBlock {
			if terraformBlockStart.MatchString(line) {
				inTerraformBlock = true
				depth = strings.Count(line, "{") - strings.Count(line, "}")
			}

			continue
		}

		if backendBlockStart.MatchString(line) {
			return true, nil
		}

		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if depth <= 0 {
			inTerraformBlock = false
		}
	}

	return false, nil
}

// stripLineComment removes a trailing "# ..." or "// ..." comment. It does
// not attempt to respect string literals containing "#" or "//" - adequate
// for the backend-block detection this feeds, which never needs to look
// inside a string value.
func stripLineComment(line string) string {
	if idx := strings.Index(line, "#"); idx >= 0 {
		line = line[:idx]
	}

	if idx := strings.Index(line, "//"); idx >= 0 {
		line = line[:idx]
	}

	return line
}
