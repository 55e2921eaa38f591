package project

import "time"

// UploadedFile describes a file handed to the ingestion pipeline before its
// content has been read.
type UploadedFile struct {
	Name string `json:"name"`           // Original file name (may contain path separators)
	Path string `json:"path"`           // Location the content is read from
	Size int64  `json:"size,omitempty"` // Size in bytes as reported at intake
}

// AnalyzedFile is a single file after ingestion: content, derived metadata
// and the structural summary produced by the static analyzer.
type AnalyzedFile struct {
	Name      string            `json:"name"`
	Content   string            `json:"content"`
	Size      int64             `json:"size"`
	Lines     int               `json:"lines"`
	Extension string            `json:"extension"` // Lowercase, with leading dot; empty when the name has none
	Language  string            `json:"language"`  // Human-readable label, "Unknown" when unrecognized
	Structure StructuralSummary `json:"structure"`
}

// StructuralSummary holds the lightweight static-analysis result for one file.
// Files in unsupported languages carry the zero value.
type StructuralSummary struct {
	Functions       []FunctionDecl `json:"functions,omitempty"`
	Classes         []ClassDecl    `json:"classes,omitempty"`
	Imports         []string       `json:"imports,omitempty"`
	ComplexityScore int            `json:"complexity_score"`
	PotentialIssues []string       `json:"potential_issues,omitempty"`
}

// FunctionDecl is a top-level function found by the analyzer.
type FunctionDecl struct {
	Name   string `json:"name"` // "anonymous" when the declaration carries no name
	Line   int    `json:"line"` // 1-based
	Params int    `json:"params"`
}

// ClassDecl is a top-level class found by the analyzer.
type ClassDecl struct {
	Name string `json:"name"`
	Line int    `json:"line"` // 1-based
}

// Snapshot is the aggregate view of an ingested project.
type Snapshot struct {
	ID           string                       `json:"id"`
	Name         string                       `json:"name"`
	Description  string                       `json:"description,omitempty"`
	RepoURL      string                       `json:"repository_url,omitempty"`
	Files        []AnalyzedFile               `json:"files"`
	TotalFiles   int                          `json:"total_files"` // Count of successfully read files
	TotalLines   int                          `json:"total_lines"`
	Languages    []string                     `json:"languages"` // Sorted, "Unknown" excluded
	ProjectType  string                       `json:"project_type"`
	Dependencies map[string]map[string]string `json:"dependencies,omitempty"` // ecosystem -> name -> version
	CreatedAt    time.Time                    `json:"created_at"`
	UpdatedAt    time.Time                    `json:"updated_at"`
}

// Severity levels, ordered by urgency.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Risk levels for fix recommendations.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// BugAnalysis is the structured result of a bug-analysis request. Every
// analysis path produces one; degraded paths fill it with fallback content
// rather than failing. JSON tags mirror the reply shape the analysis prompt
// requests from the model, so a strict parse is a plain unmarshal.
type BugAnalysis struct {
	RootCause       string              `json:"rootCause"`
	Severity        string              `json:"severity"`
	Impact          string              `json:"impact"`
	Fixes           []FixRecommendation `json:"fixes"`
	RelatedIssues   []string            `json:"relatedIssues,omitempty"`
	TestingStrategy string              `json:"testingStrategy"`
}

// FixRecommendation is one proposed remediation inside a BugAnalysis.
type FixRecommendation struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Steps         []string `json:"steps,omitempty"`
	RiskLevel     string   `json:"riskLevel"`
	EstimatedTime string   `json:"estimatedTime,omitempty"`
	Provider      string   `json:"recommendedProvider,omitempty"` // Model provider suggested to implement the fix
	Reasoning     string   `json:"reasoning,omitempty"`
}

// Fix returns the recommendation with the given ID, if the analysis holds one.
func (a *BugAnalysis) Fix(id string) (FixRecommendation, bool) {
	for _, fix := range a.Fixes {
		if fix.ID == id {
			return fix, true
		}
	}
	return FixRecommendation{}, false
}

// Summary is the list view of a stored project, without file contents.
type Summary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ProjectType string    `json:"project_type"`
	TotalFiles  int       `json:"total_files"`
	TotalLines  int       `json:"total_lines"`
	Analyzed    bool      `json:"analyzed"` // True once a bug analysis has been stored
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
