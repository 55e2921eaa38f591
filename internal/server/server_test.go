package server

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mpetrov/bugscope/internal/config"
	"github.com/mpetrov/bugscope/internal/diagnose"
	"github.com/mpetrov/bugscope/internal/ingest"
	"github.com/mpetrov/bugscope/internal/llm"
	"github.com/mpetrov/bugscope/internal/project"
)

// --- test helpers ---

func newTestServer(t *testing.T, client llm.Client) *Server {
	t.Helper()
	store, err := project.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(config.Default(), store, ingest.New(), diagnose.NewService(client), "test")
}

// writeProjectDir lays out a small Node.js project on disk, including a
// node_modules directory that the default ignore patterns must skip.
func writeProjectDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"package.json":          `{"name": "shop", "dependencies": {"express": "^4.18.0"}}`,
		"src/app.js":            "function main() {}\n",
		"node_modules/x/idx.js": "module.exports = {}\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// seedProject stores a snapshot directly, bypassing the pipeline.
func seedProject(t *testing.T, s *Server) *project.Snapshot {
	t.Helper()
	snap := &project.Snapshot{
		Name:        "checkout",
		ProjectType: "Node.js",
		Languages:   []string{"JavaScript"},
		TotalFiles:  1,
		TotalLines:  42,
		Files: []project.AnalyzedFile{
			{
				Name:     "app.js",
				Content:  "const session = require('./session');\n",
				Lines:    1,
				Language: "JavaScript",
				Structure: project.StructuralSummary{
					Functions: []project.FunctionDecl{{Name: "startServer", Line: 3, Params: 1}},
				},
			},
		},
		Dependencies: map[string]map[string]string{"npm": {"express": "^4.18.0"}},
	}
	if err := s.store.Save(context.Background(), snap); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return snap
}

const analysisJSON = `{
  "rootCause": "The checkout handler drops the session cookie on redirect",
  "severity": "high",
  "impact": "Users are logged out mid-purchase",
  "fixes": [
    {
      "id": "fix-1",
      "title": "Reissue the session cookie",
      "description": "Set the cookie on every redirect response",
      "steps": ["Locate the redirect handler", "Set the cookie before writing the response"],
      "riskLevel": "low",
      "estimatedTime": "1 hour"
    }
  ],
  "testingStrategy": "Add an integration test covering the redirect flow"
}`

// --- ingest_project ---

func TestIngestProject(t *testing.T) {
	srv := newTestServer(t, &llm.Mock{})
	dir := writeProjectDir(t)

	summary, err := srv.ingestProject(context.Background(), dir, "")
	if err != nil {
		t.Fatalf("ingestProject: %v", err)
	}

	// The name defaults to the directory basename.
	if !strings.Contains(summary, "Ingested "+`"`+filepath.Base(dir)+`"`) {
		t.Errorf("summary missing project name, got:\n%s", summary)
	}
	if !strings.Contains(summary, "Type: Node.js") {
		t.Errorf("summary missing project type, got:\n%s", summary)
	}
	// node_modules is ignored, so only package.json and src/app.js count.
	if !strings.Contains(summary, "Files: 2 (") {
		t.Errorf("summary should count 2 files, got:\n%s", summary)
	}
	if !strings.Contains(summary, "JavaScript") {
		t.Errorf("summary missing languages, got:\n%s", summary)
	}
	if !strings.Contains(summary, "Dependencies (npm): 1") {
		t.Errorf("summary missing npm dependency count, got:\n%s", summary)
	}
	if !strings.Contains(summary, "analyze_bug") {
		t.Errorf("summary should point at the next step, got:\n%s", summary)
	}

	// The snapshot must actually be stored.
	summaries, err := srv.store.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 stored project, got %d", len(summaries))
	}
	if summaries[0].TotalFiles != 2 {
		t.Errorf("stored TotalFiles = %d, want 2", summaries[0].TotalFiles)
	}
}

func TestIngestProjectExplicitName(t *testing.T) {
	srv := newTestServer(t, &llm.Mock{})
	dir := writeProjectDir(t)

	summary, err := srv.ingestProject(context.Background(), dir, "payments")
	if err != nil {
		t.Fatalf("ingestProject: %v", err)
	}
	if !strings.Contains(summary, `Ingested "payments"`) {
		t.Errorf("explicit name not used, got:\n%s", summary)
	}
}

func TestIngestProjectEmptyDir(t *testing.T) {
	srv := newTestServer(t, &llm.Mock{})

	_, err := srv.ingestProject(context.Background(), t.TempDir(), "")
	if err == nil {
		t.Fatal("expected an error for an empty directory")
	}
	if !strings.Contains(err.Error(), "no files found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestIngestProjectMissingPath(t *testing.T) {
	srv := newTestServer(t, &llm.Mock{})

	_, err := srv.ingestProject(context.Background(), filepath.Join(t.TempDir(), "missing"), "")
	if err == nil {
		t.Fatal("expected an error for a missing directory")
	}
}

// --- analyze_bug ---

func TestAnalyzeBug(t *testing.T) {
	mock := &llm.Mock{Response: analysisJSON}
	srv := newTestServer(t, mock)
	snap := seedProject(t, srv)

	report, err := srv.analyzeBug(context.Background(), snap.ID, "checkout logs users out")
	if err != nil {
		t.Fatalf("analyzeBug: %v", err)
	}

	if len(mock.Calls) != 1 {
		t.Fatalf("expected exactly 1 model call, got %d", len(mock.Calls))
	}
	if !strings.Contains(report, "Severity: high") {
		t.Errorf("report missing severity, got:\n%s", report)
	}
	if !strings.Contains(report, "drops the session cookie") {
		t.Errorf("report missing root cause, got:\n%s", report)
	}
	if !strings.Contains(report, "fix-1") {
		t.Errorf("report must show fix IDs, got:\n%s", report)
	}
	if !strings.Contains(report, "generate_implementation") {
		t.Errorf("report should point at the next step, got:\n%s", report)
	}

	// The analysis must be persisted for later implementation requests.
	stored, err := srv.store.Analysis(context.Background(), snap.ID)
	if err != nil {
		t.Fatalf("stored analysis: %v", err)
	}
	if !strings.Contains(stored.RootCause, "session cookie") {
		t.Errorf("stored root cause = %q", stored.RootCause)
	}
}

func TestAnalyzeBugUnknownProject(t *testing.T) {
	srv := newTestServer(t, &llm.Mock{Response: analysisJSON})

	_, err := srv.analyzeBug(context.Background(), "nope", "something broke")
	if !errors.Is(err, project.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAnalyzeBugBackendDown(t *testing.T) {
	srv := newTestServer(t, &llm.Mock{Err: errors.New("connection refused")})
	snap := seedProject(t, srv)

	// A dead backend still produces a stored fallback analysis, not an error.
	report, err := srv.analyzeBug(context.Background(), snap.ID, "something broke")
	if err != nil {
		t.Fatalf("analyzeBug: %v", err)
	}
	if !strings.Contains(report, "unreachable") {
		t.Errorf("fallback report should mention the unreachable service, got:\n%s", report)
	}
	if _, err := srv.store.Analysis(context.Background(), snap.ID); err != nil {
		t.Errorf("fallback analysis should be stored: %v", err)
	}
}

// --- generate_implementation ---

func TestGenerateImplementation(t *testing.T) {
	mock := &llm.Mock{Response: analysisJSON}
	srv := newTestServer(t, mock)
	snap := seedProject(t, srv)

	if _, err := srv.analyzeBug(context.Background(), snap.ID, "checkout logs users out"); err != nil {
		t.Fatal(err)
	}

	mock.Response = "Edit session.js: reissue the cookie in the redirect handler."
	text, err := srv.generateImplementation(context.Background(), snap.ID, "fix-1", "keep the diff minimal")
	if err != nil {
		t.Fatalf("generateImplementation: %v", err)
	}
	if text != "Edit session.js: reissue the cookie in the redirect handler." {
		t.Errorf("implementation text = %q", text)
	}

	if len(mock.Calls) != 2 {
		t.Fatalf("expected 2 model calls (analyze + implement), got %d", len(mock.Calls))
	}
	prompt := mock.Calls[1].Prompt
	if !strings.Contains(prompt, "Reissue the session cookie") {
		t.Errorf("implementation prompt missing fix title:\n%s", prompt)
	}
	if !strings.Contains(prompt, "keep the diff minimal") {
		t.Errorf("implementation prompt missing instructions:\n%s", prompt)
	}
}

func TestGenerateImplementationUnknownFix(t *testing.T) {
	mock := &llm.Mock{Response: analysisJSON}
	srv := newTestServer(t, mock)
	snap := seedProject(t, srv)

	if _, err := srv.analyzeBug(context.Background(), snap.ID, "bug"); err != nil {
		t.Fatal(err)
	}

	_, err := srv.generateImplementation(context.Background(), snap.ID, "fix-99", "")
	if err == nil {
		t.Fatal("expected an error for an unknown fix ID")
	}
	if !strings.Contains(err.Error(), "analyze_bug") {
		t.Errorf("error should point back at analyze_bug, got: %v", err)
	}
}

func TestGenerateImplementationWithoutAnalysis(t *testing.T) {
	srv := newTestServer(t, &llm.Mock{})
	snap := seedProject(t, srv)

	_, err := srv.generateImplementation(context.Background(), snap.ID, "fix-1", "")
	if !errors.Is(err, project.ErrNoAnalysis) {
		t.Fatalf("expected ErrNoAnalysis, got %v", err)
	}
}

// --- list_projects / get_project ---

func TestProjectsJSONEmpty(t *testing.T) {
	srv := newTestServer(t, &llm.Mock{})

	text, err := srv.projectsJSON(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "ingest_project") {
		t.Errorf("empty store message should point at ingest_project, got: %s", text)
	}
}

func TestProjectsJSON(t *testing.T) {
	srv := newTestServer(t, &llm.Mock{})
	seedProject(t, srv)

	text, err := srv.projectsJSON(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, `"name": "checkout"`) {
		t.Errorf("missing project name, got:\n%s", text)
	}
	if !strings.Contains(text, `"analyzed": false`) {
		t.Errorf("missing analysis status, got:\n%s", text)
	}
}

func TestGetProjectJSONStripsContents(t *testing.T) {
	srv := newTestServer(t, &llm.Mock{})
	snap := seedProject(t, srv)

	text, err := srv.getProjectJSON(context.Background(), snap.ID)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(text, "require('./session')") {
		t.Errorf("file contents must be stripped, got:\n%s", text)
	}
	// Metadata and structure survive.
	if !strings.Contains(text, `"app.js"`) {
		t.Errorf("missing file name, got:\n%s", text)
	}
	if !strings.Contains(text, `"startServer"`) {
		t.Errorf("missing structural summary, got:\n%s", text)
	}
}

func TestGetProjectJSONUnknownProject(t *testing.T) {
	srv := newTestServer(t, &llm.Mock{})

	_, err := srv.getProjectJSON(context.Background(), "nope")
	if !errors.Is(err, project.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// --- rendering ---

func TestStripContentsDoesNotMutate(t *testing.T) {
	snap := &project.Snapshot{
		Files: []project.AnalyzedFile{{Name: "a.js", Content: "let a = 1;"}},
	}

	trimmed := stripContents(snap)
	if trimmed.Files[0].Content != "" {
		t.Error("copy should have empty content")
	}
	if snap.Files[0].Content != "let a = 1;" {
		t.Error("original snapshot must not be mutated")
	}
}

func TestRenderAnalysis(t *testing.T) {
	a := &project.BugAnalysis{
		RootCause: "A race between the cache refresh and the request handler",
		Severity:  project.SeverityCritical,
		Impact:    "Intermittent 500s under load",
		Fixes: []project.FixRecommendation{
			{
				ID:            "f1",
				Title:         "Guard the cache with a mutex",
				Description:   "Serialize refresh and reads",
				Steps:         []string{"Add the mutex", "Lock around refresh"},
				RiskLevel:     project.RiskLow,
				EstimatedTime: "2 hours",
			},
			{ID: "f2", Title: "Switch to a concurrent map", RiskLevel: project.RiskMedium},
		},
		RelatedIssues:   []string{"Stale reads after refresh"},
		TestingStrategy: "Run the handler under the race detector",
	}

	out := renderAnalysis(a)

	for _, want := range []string{
		"Severity: critical",
		"A race between the cache refresh",
		"Intermittent 500s under load",
		"Fixes (2):",
		"1. Guard the cache with a mutex [id: f1, risk: low, estimate: 2 hours]",
		"- Add the mutex",
		"2. Switch to a concurrent map [id: f2, risk: medium]",
		"Related issues:",
		"Stale reads after refresh",
		"Testing strategy:",
		"race detector",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("renderAnalysis output missing %q, got:\n%s", want, out)
		}
	}
}

func TestRenderIngestSummaryWithoutOptionalSections(t *testing.T) {
	snap := &project.Snapshot{
		ID:          "p1",
		Name:        "bare",
		ProjectType: "Unknown",
		TotalFiles:  1,
		TotalLines:  3,
	}

	out := renderIngestSummary(snap)
	if strings.Contains(out, "Languages:") {
		t.Errorf("no languages line expected for an empty language list, got:\n%s", out)
	}
	if strings.Contains(out, "Dependencies") {
		t.Errorf("no dependency lines expected, got:\n%s", out)
	}
	if !strings.Contains(out, "Files: 1 (3 lines)") {
		t.Errorf("missing file count, got:\n%s", out)
	}
}
