package diagnose

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mpetrov/bugscope/internal/project"
)

// --- analysis prompt ---

func TestBuildAnalysisPromptSummarizesProject(t *testing.T) {
	snap := &project.Snapshot{
		Name:        "shop",
		ProjectType: "Node.js",
		TotalFiles:  3,
		TotalLines:  120,
		Languages:   []string{"JavaScript", "TypeScript"},
		Dependencies: map[string]map[string]string{
			"npm": {"react": "^18.0.0", "express": "^4.18.0"},
			"pip": {"requests": "2.31.0"},
		},
	}

	prompt := buildAnalysisPrompt(snap, "login fails")

	for _, want := range []string{
		"Project: shop",
		"Type: Node.js",
		"Files: 3 (120 lines)",
		"Languages: JavaScript, TypeScript",
		"Dependencies: npm (2), pip (1)",
		"login fails",
		`"severity": "low|medium|high|critical"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildAnalysisPromptCapsSample(t *testing.T) {
	long := strings.Repeat("x", 2500)
	snap := &project.Snapshot{
		Name:        "shop",
		ProjectType: "Node.js",
		Files: []project.AnalyzedFile{
			{Name: "a.js", Content: long},
			{Name: "b.js", Content: "short"},
			{Name: "c.js", Content: "short"},
			{Name: "d.js", Content: "beyond the cap"},
		},
	}

	prompt := buildAnalysisPrompt(snap, "bug")

	if !strings.Contains(prompt, truncationMarker) {
		t.Error("prompt missing truncation marker for oversized file")
	}
	if !strings.Contains(prompt, strings.Repeat("x", maxSampleChars)) {
		t.Error("prompt missing the capped file content")
	}
	if strings.Contains(prompt, strings.Repeat("x", maxSampleChars+1)) {
		t.Error("file content exceeds the per-file cap")
	}
	if strings.Contains(prompt, "d.js") {
		t.Error("prompt includes a file beyond the sample cap")
	}
	for _, want := range []string{"a.js", "b.js", "c.js"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing sampled file %q", want)
		}
	}
}

func TestBuildAnalysisPromptCapsSampleByCharacters(t *testing.T) {
	under := strings.Repeat("€", 400) // 1200 bytes, 400 characters
	over := strings.Repeat("é", maxSampleChars+200)
	snap := &project.Snapshot{
		Name:        "intl",
		ProjectType: "Node.js",
		Files: []project.AnalyzedFile{
			{Name: "a.js", Content: under},
			{Name: "b.js", Content: over},
		},
	}

	prompt := buildAnalysisPrompt(snap, "bug")

	if !utf8.ValidString(prompt) {
		t.Error("prompt contains invalid UTF-8")
	}
	if !strings.Contains(prompt, under) {
		t.Error("file under the character cap was truncated")
	}
	if !strings.Contains(prompt, strings.Repeat("é", maxSampleChars)) {
		t.Error("prompt missing the capped file content")
	}
	if strings.Contains(prompt, strings.Repeat("é", maxSampleChars+1)) {
		t.Error("file content exceeds the per-file cap")
	}
}

func TestBuildAnalysisPromptShortFilesUnmarked(t *testing.T) {
	snap := &project.Snapshot{
		Name:        "tiny",
		ProjectType: "Generic",
		Files: []project.AnalyzedFile{
			{Name: "a.js", Content: "let a = 1"},
		},
	}

	prompt := buildAnalysisPrompt(snap, "bug")

	if strings.Contains(prompt, truncationMarker) {
		t.Error("truncation marker present for a file under the cap")
	}
}

// --- implementation prompt ---

func TestBuildImplementationPrompt(t *testing.T) {
	snap := &project.Snapshot{Name: "shop", ProjectType: "Node.js"}
	fix := project.FixRecommendation{
		Title:       "Debounce the search box",
		Description: "Wrap the change handler in a 300ms debounce.",
		Steps:       []string{"add a debounce helper", "wire it into SearchBox"},
	}

	prompt := buildImplementationPrompt(snap, fix, "keep it dependency-free")

	for _, want := range []string{
		"shop (Node.js)",
		"Fix to implement: Debounce the search box",
		"1. add a debounce helper",
		"2. wire it into SearchBox",
		"keep it dependency-free",
		"plain text",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildImplementationPromptOmitsEmptySections(t *testing.T) {
	snap := &project.Snapshot{Name: "shop", ProjectType: "Node.js"}
	fix := project.FixRecommendation{Title: "Small fix", Description: "Do the thing."}

	prompt := buildImplementationPrompt(snap, fix, "  ")

	if strings.Contains(prompt, "Planned steps") {
		t.Error("prompt includes a steps section for a fix without steps")
	}
	if strings.Contains(prompt, "Additional instructions") {
		t.Error("prompt includes instructions section for blank instructions")
	}
}
