package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"

	"github.com/devqik/solarboat/internal/errors"
	"github.com/devqik/solarboat/pkg/log"
)

const envVar = "SOLARBOAT_ENV"

// Load discovers and parses the configuration file. explicitPath,
// if non-empty, is used verbatim. If noConfig is set, Load returns empty
// defaults without looking at the filesystem. Otherwise it checks
// SOLARBOAT_ENV for an environment-specific file before falling back to
// solarboat.json in root. Absence of any file is not an error.
//
// Returns the parsed File (zero value if none was found), the directory
// paths under "modules" are resolved relative to, and the path actually
// loaded (empty if none).
func Load(root, explicitPath string, noConfig bool, l log.Logger) (File, string, string, error) {
	if noConfig {
		return File{}, root, "", nil
	}

	path := explicitPath
	if path == "" {
		path = discover(root)
	}

	if path == "" {
		l.Infof("no configuration file found, using defaults")

		return File{}, root, "", nil
	}

	l.Infof("loading configuration from %s", path)

	file, err := parse(path, l)
	if err != nil {
		return File{}, root, "", err
	}

	configDir := filepath.Dir(path)

	normalized := File{Global: file.Global, Modules: make(map[string]Section, len(file.Modules))}

	for key, section := range file.Modules {
		normalized.Modules[canonicalModulePath(configDir, key)] = section
	}

	return normalized, configDir, path, nil
}

func discover(root string) string {
	if env := os.Getenv(envVar); env != "" {
		candidate := filepath.Join(root, "solarboat."+env+".json")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	candidate := filepath.Join(root, "solarboat.json")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}

	return ""
}

// parse decodes the JSON document into File via mapstructure so unknown
// top-level or section keys can be reported as warnings instead of fatal
// errors.
func parse(path string, l log.Logger) (File, error) {
	raw, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return File{}, errors.WithStackTraceAndPrefix(err, "failed to read config file %s", path)
	}

	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return File{}, errors.WithStackTraceAndPrefix(err, "failed to parse JSON config file %s", path)
	}

	var file File

	var meta mapstructure.Metadata

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:   &file,
		Metadata: &meta,
	})
	if err != nil {
		return File{}, errors.WithStackTrace(err)
	}

	if err := decoder.Decode(generic); err != nil {
		return File{}, errors.WithStackTraceAndPrefix(err, "failed to decode config file %s", path)
	}

	for _, key := range meta.Unused {
		l.Warnf("unknown config key %q in %s", key, path)
	}

	return file, nil
}

// canonicalModulePath normalizes a "modules" key to the same canonical
// form the Module Scanner produces: a slash-separated path relative to
// configDir.
func canonicalModulePath(configDir, key string) string {
	key = filepath.FromSlash(key)

	if filepath.IsAbs(key) {
		if rel, err := filepath.Rel(configDir, key); err == nil {
			key = rel
		}
	}

	return filepath.ToSlash(filepath.Clean(key))
}

// Validate emits warnings (never errors) for module paths that no
// discovered module matches, var files that don't exist on disk, and
// reserved workspace names used as config overrides.
func Validate(file File, configDir string, knownModules map[string]struct{}, l log.Logger) {
	for modulePath, section := range file.Modules {
		if _, ok := knownModules[modulePath]; !ok {
			l.Warnf("config references module path %q which no discovered module matches", modulePath)
		}

		validateSection(section, configDir, "module '"+modulePath+"'", l)
	}

	validateSection(file.Global, configDir, "global", l)
}

func validateSection(section Section, configDir, context string, l log.Logger) {
	checkVarFiles(section.VarFiles, configDir, context, l)
	checkReserved(section.IgnoreWorkspaces, context, l)

	for workspace, files := range section.WorkspaceVarFiles {
		checkVarFiles(files, configDir, context+" workspace '"+workspace+"'", l)

		if _, reserved := ReservedWorkspaces[workspace]; reserved {
			l.Warnf("%s uses reserved workspace name %q in workspace_var_files", context, workspace)
		}
	}
}

func checkVarFiles(files []string, configDir, context string, l log.Logger) {
	for _, f := range files {
		path := f
		if !filepath.IsAbs(path) {
			path = filepath.Join(configDir, f)
		}

		if _, err := os.Stat(path); err != nil {
			l.Warnf("var file %q for %s does not exist", f, context)
		}
	}
}

func checkReserved(workspaces []string, context string, l log.Logger) {
	for _, w := range workspaces {
		if _, reserved := ReservedWorkspaces[w]; reserved {
			l.Warnf("%s uses reserved workspace name %q in ignore_workspaces", context, w)
		}
	}
}
