package ingest

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mpetrov/bugscope/internal/project"
)

// manifestParsers is the closed manifest-filename -> parser table. A file
// participates in dependency extraction only when its base name matches
// exactly.
var manifestParsers = map[string]struct {
	ecosystem string
	parse     func(content string) (map[string]string, error)
}{
	"package.json":     {"npm", parsePackageJSON},
	"requirements.txt": {"pip", parseRequirements},
	"go.mod":           {"go", parseGoMod},
}

// extractDependencies collects declared dependencies from every recognized
// manifest in the batch, keyed by ecosystem. Malformed manifests are logged
// and skipped; they never fail the batch.
func extractDependencies(files []project.AnalyzedFile) map[string]map[string]string {
	deps := make(map[string]map[string]string)
	for _, f := range files {
		entry, ok := manifestParsers[path.Base(f.Name)]
		if !ok {
			continue
		}
		parsed, err := entry.parse(f.Content)
		if err != nil {
			logrus.Warnf("skipping malformed manifest %s: %v", f.Name, err)
			continue
		}
		if len(parsed) == 0 {
			continue
		}
		if deps[entry.ecosystem] == nil {
			deps[entry.ecosystem] = make(map[string]string)
		}
		for name, version := range parsed {
			deps[entry.ecosystem][name] = version
		}
	}
	if len(deps) == 0 {
		return nil
	}
	return deps
}

// parsePackageJSON merges the dependencies and devDependencies sections of a
// package.json into a single name -> version map.
func parsePackageJSON(content string) (map[string]string, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("decoding package.json: %w", err)
	}

	out := make(map[string]string)
	for _, section := range []string{"dependencies", "devDependencies"} {
		m, ok := raw[section].(map[string]any)
		if !ok {
			continue
		}
		for name, v := range m {
			if version, ok := v.(string); ok {
				out[name] = version
			}
		}
	}
	return out, nil
}

// parseRequirements reads a pip requirements.txt. Comment lines, blank lines
// and pip flags are skipped; version specifiers (==, >=, <=, !=, ~=) are
// stripped from the name.
func parseRequirements(content string) (map[string]string, error) {
	out := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}

		name, version := line, ""
		if idx := strings.IndexAny(line, "=<>!~"); idx >= 0 {
			name = strings.TrimSpace(line[:idx])
			version = strings.Trim(line[idx:], "=<>!~ ")
		}
		if name != "" {
			out[name] = version
		}
	}
	return out, nil
}

// parseGoMod reads the require directives of a go.mod file.
func parseGoMod(content string) (map[string]string, error) {
	out := make(map[string]string)
	inBlock := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "require (":
			inBlock = true
		case inBlock && line == ")":
			inBlock = false
		case inBlock:
			if fields := strings.Fields(line); len(fields) >= 2 && !strings.HasPrefix(fields[0], "//") {
				out[fields[0]] = fields[1]
			}
		case strings.HasPrefix(line, "require "):
			if fields := strings.Fields(line); len(fields) >= 3 {
				out[fields[1]] = fields[2]
			}
		}
	}
	return out, nil
}
