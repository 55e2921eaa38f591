package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mpetrov/bugscope/internal/analyzers"
	"github.com/mpetrov/bugscope/internal/analyzers/jsanalyzer"
	"github.com/mpetrov/bugscope/internal/project"
)

// DefaultProjectName is used when neither the caller nor its metadata names
// the project.
const DefaultProjectName = "untitled-project"

// AppMeta carries caller-declared metadata for application projects.
type AppMeta struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	RepoURL     string `json:"repository_url"`
}

// Pipeline turns batches of uploaded files into project snapshots.
type Pipeline struct {
	analyzers *analyzers.Registry
}

// New creates a Pipeline with all built-in analyzers registered.
func New() *Pipeline {
	return &Pipeline{
		analyzers: analyzers.NewRegistry(jsanalyzer.New()),
	}
}

// ProcessFiles ingests a batch of files into a snapshot. Each file is
// processed independently; files that cannot be read are logged and dropped,
// and the batch never fails as a whole. The returned snapshot is valid even
// for an empty batch.
func (p *Pipeline) ProcessFiles(ctx context.Context, name string, files []project.UploadedFile) *project.Snapshot {
	analyzed := make([]project.AnalyzedFile, 0, len(files))
	for _, f := range files {
		select {
		case <-ctx.Done():
			logrus.Warnf("ingestion stopped after %d of %d files: %v", len(analyzed), len(files), ctx.Err())
			return aggregate(name, analyzed)
		default:
		}

		af, err := p.processOne(f)
		if err != nil {
			logrus.Warnf("skipping unreadable file %s: %v", f.Name, err)
			continue
		}
		analyzed = append(analyzed, af)
	}
	return aggregate(name, analyzed)
}

// ProcessAppProject ingests files for a caller-described application and
// overlays the declared metadata onto the computed snapshot. Among the
// computed fields only the name may be replaced.
func (p *Pipeline) ProcessAppProject(ctx context.Context, files []project.UploadedFile, meta AppMeta) *project.Snapshot {
	snap := p.ProcessFiles(ctx, meta.Name, files)
	snap.Description = meta.Description
	snap.RepoURL = meta.RepoURL
	return snap
}

// processOne reads and analyzes a single file, independent of every other
// file in the batch.
func (p *Pipeline) processOne(f project.UploadedFile) (project.AnalyzedFile, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return project.AnalyzedFile{}, err
	}

	content := string(data)
	ext := strings.ToLower(filepath.Ext(f.Name))

	return project.AnalyzedFile{
		Name:      f.Name,
		Content:   content,
		Size:      int64(len(data)),
		Lines:     countLines(content),
		Extension: ext,
		Language:  LanguageFor(ext),
		Structure: p.analyzers.Analyze(data, ext),
	}, nil
}

// countLines counts line-terminator-separated segments. An empty file still
// has one segment, so the minimum is 1.
func countLines(content string) int {
	return len(strings.Split(content, "\n"))
}

// aggregate reduces per-file results into a snapshot. The same inputs always
// produce the same totals, languages, project type and dependencies.
func aggregate(name string, files []project.AnalyzedFile) *project.Snapshot {
	if name == "" {
		name = DefaultProjectName
	}

	totalLines := 0
	langSet := make(map[string]bool)
	names := make([]string, 0, len(files))
	for _, f := range files {
		totalLines += f.Lines
		if f.Language != UnknownLanguage {
			langSet[f.Language] = true
		}
		names = append(names, f.Name)
	}

	languages := make([]string, 0, len(langSet))
	for lang := range langSet {
		languages = append(languages, lang)
	}
	sort.Strings(languages)

	now := time.Now().UTC()
	return &project.Snapshot{
		Name:         name,
		Files:        files,
		TotalFiles:   len(files),
		TotalLines:   totalLines,
		Languages:    languages,
		ProjectType:  ProjectTypeFor(names),
		Dependencies: extractDependencies(files),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
