package ingest

import "path"

// GenericProject is the project type when no marker file is present.
const GenericProject = "Generic"

// projectMarkers is scanned in order; the first marker found among the file
// names decides the project type, so a project containing both package.json
// and requirements.txt always classifies as Node.js.
var projectMarkers = []struct {
	file  string
	label string
}{
	{"package.json", "Node.js"},
	{"requirements.txt", "Python"},
	{"pyproject.toml", "Python"},
	{"go.mod", "Go"},
	{"Cargo.toml", "Rust"},
	{"pom.xml", "Java (Maven)"},
	{"build.gradle", "Java (Gradle)"},
	{"Gemfile", "Ruby"},
	{"composer.json", "PHP"},
}

// ProjectTypeFor classifies a project from its file names. Names may carry
// path prefixes; only the base name is matched. The result is deterministic
// regardless of the order of names.
func ProjectTypeFor(names []string) string {
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[path.Base(n)] = true
	}
	for _, m := range projectMarkers {
		if present[m.file] {
			return m.label
		}
	}
	return GenericProject
}
