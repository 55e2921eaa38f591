package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mpetrov/bugscope/internal/project"
)

// --- helpers ---

func writeBatch(t *testing.T, files map[string]string) []project.UploadedFile {
	t.Helper()
	dir := t.TempDir()

	var batch []project.UploadedFile
	for name, content := range files {
		absPath := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(absPath, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		batch = append(batch, project.UploadedFile{
			Name: name,
			Path: absPath,
			Size: int64(len(content)),
		})
	}
	return batch
}

func findFile(snap *project.Snapshot, name string) (project.AnalyzedFile, bool) {
	for _, f := range snap.Files {
		if f.Name == name {
			return f, true
		}
	}
	return project.AnalyzedFile{}, false
}

// --- aggregate invariants ---

func TestProcessFiles_Totals(t *testing.T) {
	batch := writeBatch(t, map[string]string{
		"src/app.js":  "function main() {}\nmain()\n", // 3 segments
		"src/util.py": "x = 1",                        // 1 segment
		"README.md":   "",                             // empty file still counts 1
	})

	snap := New().ProcessFiles(context.Background(), "demo", batch)

	if snap.TotalFiles != 3 {
		t.Errorf("TotalFiles = %d, want 3", snap.TotalFiles)
	}

	wantLines := 0
	for _, f := range snap.Files {
		wantLines += f.Lines
	}
	if snap.TotalLines != wantLines {
		t.Errorf("TotalLines = %d, want sum of per-file lines %d", snap.TotalLines, wantLines)
	}

	md, ok := findFile(snap, "README.md")
	if !ok {
		t.Fatal("README.md missing from snapshot")
	}
	if md.Lines != 1 {
		t.Errorf("empty file Lines = %d, want 1", md.Lines)
	}

	app, _ := findFile(snap, "src/app.js")
	if app.Lines != 3 {
		t.Errorf("app.js Lines = %d, want 3", app.Lines)
	}
}

func TestProcessFiles_LanguagesExcludeUnknown(t *testing.T) {
	batch := writeBatch(t, map[string]string{
		"a.js":      "let x = 1",
		"b.py":      "x = 1",
		"strange.q": "???",
	})

	snap := New().ProcessFiles(context.Background(), "demo", batch)

	want := []string{"JavaScript", "Python"}
	if len(snap.Languages) != len(want) {
		t.Fatalf("Languages = %v, want %v", snap.Languages, want)
	}
	for i := range want {
		if snap.Languages[i] != want[i] {
			t.Errorf("Languages[%d] = %q, want %q", i, snap.Languages[i], want[i])
		}
	}

	q, _ := findFile(snap, "strange.q")
	if q.Language != "Unknown" {
		t.Errorf("strange.q Language = %q, want Unknown", q.Language)
	}
}

func TestProcessFiles_UnreadableFileDropped(t *testing.T) {
	batch := writeBatch(t, map[string]string{"ok.js": "let x = 1\n"})
	batch = append(batch, project.UploadedFile{
		Name: "ghost.js",
		Path: filepath.Join(t.TempDir(), "does-not-exist.js"),
	})

	snap := New().ProcessFiles(context.Background(), "demo", batch)

	if snap.TotalFiles != 1 {
		t.Errorf("TotalFiles = %d, want 1 (unreadable file dropped)", snap.TotalFiles)
	}
	if _, ok := findFile(snap, "ghost.js"); ok {
		t.Error("unreadable file must not appear in the snapshot")
	}
}

func TestProcessFiles_EmptyBatch(t *testing.T) {
	snap := New().ProcessFiles(context.Background(), "", nil)

	if snap == nil {
		t.Fatal("ProcessFiles returned nil for empty batch")
	}
	if snap.TotalFiles != 0 || snap.TotalLines != 0 {
		t.Errorf("totals = %d/%d, want 0/0", snap.TotalFiles, snap.TotalLines)
	}
	if snap.ProjectType != "Generic" {
		t.Errorf("ProjectType = %q, want Generic", snap.ProjectType)
	}
	if snap.Name != DefaultProjectName {
		t.Errorf("Name = %q, want %q", snap.Name, DefaultProjectName)
	}
}

func TestProcessFiles_StructuralSummaries(t *testing.T) {
	batch := writeBatch(t, map[string]string{
		"src/handlers.js": "function createUser(req, res) {}\nclass UserStore {}\n",
		"script.py":       "def f():\n    pass\n",
	})

	snap := New().ProcessFiles(context.Background(), "demo", batch)

	js, _ := findFile(snap, "src/handlers.js")
	if len(js.Structure.Functions) != 1 || js.Structure.Functions[0].Name != "createUser" {
		t.Errorf("js functions = %+v, want createUser", js.Structure.Functions)
	}
	if len(js.Structure.Classes) != 1 || js.Structure.Classes[0].Name != "UserStore" {
		t.Errorf("js classes = %+v, want UserStore", js.Structure.Classes)
	}

	// Python is classified but never parsed.
	py, _ := findFile(snap, "script.py")
	if len(py.Structure.Functions) != 0 {
		t.Errorf("py functions = %+v, want none", py.Structure.Functions)
	}
}

func TestProcessFiles_MalformedManifestContinues(t *testing.T) {
	batch := writeBatch(t, map[string]string{
		"package.json": `{broken`,
		"index.js":     "console.log(1)\n",
	})

	snap := New().ProcessFiles(context.Background(), "demo", batch)

	if snap.TotalFiles != 2 {
		t.Errorf("TotalFiles = %d, want 2", snap.TotalFiles)
	}
	if _, ok := snap.Dependencies["npm"]; ok {
		t.Error("malformed package.json must not yield an npm dependency entry")
	}
	// The marker file still drives project-type classification.
	if snap.ProjectType != "Node.js" {
		t.Errorf("ProjectType = %q, want Node.js", snap.ProjectType)
	}
}

func TestProcessFiles_Dependencies(t *testing.T) {
	batch := writeBatch(t, map[string]string{
		"package.json": `{"dependencies": {"react": "^18.2.0"}}`,
	})

	snap := New().ProcessFiles(context.Background(), "demo", batch)

	if snap.Dependencies["npm"]["react"] != "^18.2.0" {
		t.Errorf(`Dependencies["npm"]["react"] = %q, want ^18.2.0`, snap.Dependencies["npm"]["react"])
	}
}

func TestProcessFiles_CancelledContextReturnsPartial(t *testing.T) {
	batch := writeBatch(t, map[string]string{"a.js": "1\n", "b.js": "2\n"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap := New().ProcessFiles(ctx, "demo", batch)
	if snap == nil {
		t.Fatal("cancelled ingestion must still return a snapshot")
	}
	if snap.TotalFiles != 0 {
		t.Errorf("TotalFiles = %d, want 0 for already-cancelled context", snap.TotalFiles)
	}
}

// --- app project overlay ---

func TestProcessAppProject_Overlay(t *testing.T) {
	batch := writeBatch(t, map[string]string{"index.js": "let x = 1\n"})

	snap := New().ProcessAppProject(context.Background(), batch, AppMeta{
		Name:        "checkout-service",
		Description: "handles payments",
		RepoURL:     "https://example.com/org/checkout",
	})

	if snap.Name != "checkout-service" {
		t.Errorf("Name = %q, want checkout-service", snap.Name)
	}
	if snap.Description != "handles payments" {
		t.Errorf("Description = %q", snap.Description)
	}
	if snap.RepoURL != "https://example.com/org/checkout" {
		t.Errorf("RepoURL = %q", snap.RepoURL)
	}
	// Computed fields are untouched by the overlay.
	if snap.TotalFiles != 1 {
		t.Errorf("TotalFiles = %d, want 1", snap.TotalFiles)
	}
}

func TestProcessAppProject_EmptyNameKeepsDefault(t *testing.T) {
	batch := writeBatch(t, map[string]string{"index.js": "1\n"})

	snap := New().ProcessAppProject(context.Background(), batch, AppMeta{Description: "d"})
	if snap.Name != DefaultProjectName {
		t.Errorf("Name = %q, want %q", snap.Name, DefaultProjectName)
	}
}
