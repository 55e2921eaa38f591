package analyzers

import (
	"strings"

	"github.com/mpetrov/bugscope/internal/project"
)

// Analyzer produces a structural summary for a single source file.
type Analyzer interface {
	// Name returns the analyzer identifier (e.g. "javascript").
	Name() string
	// Extensions returns the file extensions this analyzer handles.
	Extensions() []string
	// Analyze summarizes one file's content. It never fails; input it cannot
	// make sense of yields the zero summary.
	Analyze(content []byte, ext string) project.StructuralSummary
}

// Registry dispatches files to analyzers by extension. The table is fixed at
// construction time.
type Registry struct {
	byExt map[string]Analyzer
}

// NewRegistry builds a registry over the given analyzers.
func NewRegistry(analyzers ...Analyzer) *Registry {
	r := &Registry{byExt: make(map[string]Analyzer)}
	for _, a := range analyzers {
		for _, ext := range a.Extensions() {
			r.byExt[strings.ToLower(ext)] = a
		}
	}
	return r
}

// Get returns the analyzer for the given extension, or nil when the
// extension is not covered.
func (r *Registry) Get(ext string) Analyzer {
	return r.byExt[strings.ToLower(ext)]
}

// Analyze summarizes content with the analyzer registered for ext. Files
// outside the table get the zero summary.
func (r *Registry) Analyze(content []byte, ext string) project.StructuralSummary {
	ext = strings.ToLower(ext)
	a := r.byExt[ext]
	if a == nil {
		return project.StructuralSummary{}
	}
	return a.Analyze(content, ext)
}
