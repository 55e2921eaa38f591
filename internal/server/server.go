// Package server exposes the ingestion pipeline and the diagnosis service as
// MCP tools over a stdio transport, so coding agents can drive bugscope
// without going through the HTTP API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/mpetrov/bugscope/internal/config"
	"github.com/mpetrov/bugscope/internal/diagnose"
	"github.com/mpetrov/bugscope/internal/ingest"
	"github.com/mpetrov/bugscope/internal/project"
)

// Server wraps the MCP server and connects it to the project store and the
// diagnosis service.
type Server struct {
	mcp      *mcp.Server
	cfg      *config.Config
	store    *project.Store
	pipeline *ingest.Pipeline
	diag     *diagnose.Service
}

// New creates an MCP server wired to the given store and services.
func New(cfg *config.Config, store *project.Store, pipeline *ingest.Pipeline, diag *diagnose.Service, version string) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		pipeline: pipeline,
		diag:     diag,
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "bugscope",
		Version: version,
	}, nil)
	s.registerResources()
	s.registerTools()

	return s
}

// Run starts the MCP server on the stdio transport.
func (s *Server) Run(ctx context.Context) error {
	logrus.Info("starting MCP server on stdio transport")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// registerResources adds read-only views over the project store.
func (s *Server) registerResources() {
	// Resource: the stored project list
	s.mcp.AddResource(&mcp.Resource{
		URI:         "bugscope://projects",
		Name:        "Stored Projects",
		Description: "Every ingested project with its size, type and analysis status",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		text, err := s.projectsJSON(ctx)
		if err != nil {
			return nil, err
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{URI: req.Params.URI, Text: text, MIMEType: "application/json"},
			},
		}, nil
	})
}

// ingestArgs are the arguments for the ingest_project tool.
type ingestArgs struct {
	Path string `json:"path" jsonschema:"required,Path to the project directory to ingest"`
	Name string `json:"name,omitempty" jsonschema:"Project name. Defaults to the directory name."`
}

// analyzeArgs are the arguments for the analyze_bug tool.
type analyzeArgs struct {
	ProjectID   string `json:"project_id" jsonschema:"required,ID of a previously ingested project"`
	Description string `json:"description,omitempty" jsonschema:"Description of the bug to analyze. Leave empty to request a general audit."`
}

// implementArgs are the arguments for the generate_implementation tool.
type implementArgs struct {
	ProjectID    string `json:"project_id" jsonschema:"required,ID of an analyzed project"`
	FixID        string `json:"fix_id" jsonschema:"required,ID of the fix to implement, taken from a prior analyze_bug result"`
	Instructions string `json:"instructions,omitempty" jsonschema:"Additional instructions for the implementation"`
}

// listArgs are the arguments for the list_projects tool.
type listArgs struct{}

// getArgs are the arguments for the get_project tool.
type getArgs struct {
	ProjectID string `json:"project_id" jsonschema:"required,ID of the project to fetch"`
}

// registerTools adds MCP tools for project ingestion and bug diagnosis.
func (s *Server) registerTools() {
	// Tool: ingest_project
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "ingest_project",
		Description: "Ingest a project directory: read its files, classify languages and project type, run static analysis, and store a snapshot for later bug analysis.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ingestArgs) (*mcp.CallToolResult, any, error) {
		summary, err := s.ingestProject(ctx, args.Path, args.Name)
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		return textResult(summary), nil, nil
	})

	// Tool: analyze_bug
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "analyze_bug",
		Description: "Analyze a bug in an ingested project. Stores and returns the root cause, severity, impact and fix recommendations.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args analyzeArgs) (*mcp.CallToolResult, any, error) {
		report, err := s.analyzeBug(ctx, args.ProjectID, args.Description)
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		return textResult(report), nil, nil
	})

	// Tool: generate_implementation
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "generate_implementation",
		Description: "Turn one fix from a stored bug analysis into a concrete implementation plan.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args implementArgs) (*mcp.CallToolResult, any, error) {
		text, err := s.generateImplementation(ctx, args.ProjectID, args.FixID, args.Instructions)
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		return textResult(text), nil, nil
	})

	// Tool: list_projects
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_projects",
		Description: "List stored projects with file counts and analysis status. Returns JSON.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listArgs) (*mcp.CallToolResult, any, error) {
		text, err := s.projectsJSON(ctx)
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		return textResult(text), nil, nil
	})

	// Tool: get_project
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_project",
		Description: "Fetch a stored project snapshot as JSON. File contents are omitted; the structural summaries remain.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getArgs) (*mcp.CallToolResult, any, error) {
		text, err := s.getProjectJSON(ctx, args.ProjectID)
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		return textResult(text), nil, nil
	})
}

// ingestProject collects files under path, runs them through the pipeline and
// stores the resulting snapshot.
func (s *Server) ingestProject(ctx context.Context, path, name string) (string, error) {
	files, err := ingest.Collect(path, s.cfg.Ignore)
	if err != nil {
		return "", fmt.Errorf("collecting files: %w", err)
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no files found under %s", path)
	}

	if name == "" {
		if abs, err := filepath.Abs(path); err == nil {
			name = filepath.Base(abs)
		}
	}

	snap := s.pipeline.ProcessFiles(ctx, name, files)
	if err := s.store.Save(ctx, snap); err != nil {
		return "", fmt.Errorf("saving project: %w", err)
	}
	return renderIngestSummary(snap), nil
}

// analyzeBug runs one analysis for the stored project and persists the result.
// A failed persist is logged but does not discard the analysis.
func (s *Server) analyzeBug(ctx context.Context, projectID, description string) (string, error) {
	snap, err := s.store.Get(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("loading project %s: %w", projectID, err)
	}

	analysis := s.diag.AnalyzeBug(ctx, snap, description)
	if err := s.store.SaveAnalysis(ctx, snap.ID, analysis); err != nil {
		logrus.Warnf("storing analysis for %s: %v", snap.ID, err)
	}
	return renderAnalysis(analysis), nil
}

// generateImplementation resolves a fix from the stored analysis and asks the
// diagnosis service for an implementation plan.
func (s *Server) generateImplementation(ctx context.Context, projectID, fixID, instructions string) (string, error) {
	snap, err := s.store.Get(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("loading project %s: %w", projectID, err)
	}
	analysis, err := s.store.Analysis(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("loading analysis for %s: %w", projectID, err)
	}
	fix, ok := analysis.Fix(fixID)
	if !ok {
		return "", fmt.Errorf("fix %s not found; analyze_bug lists the available fix IDs", fixID)
	}
	return s.diag.GenerateImplementation(ctx, snap, fix, instructions), nil
}

// projectsJSON renders the stored project list as indented JSON.
func (s *Server) projectsJSON(ctx context.Context) (string, error) {
	summaries, err := s.store.List(ctx)
	if err != nil {
		return "", fmt.Errorf("listing projects: %w", err)
	}
	if len(summaries) == 0 {
		return "No projects stored. Run ingest_project first.", nil
	}

	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding projects: %w", err)
	}
	return string(data), nil
}

// getProjectJSON renders one stored snapshot as indented JSON with per-file
// contents stripped. Tool output lands in an agent context window, so the raw
// sources stay out of it.
func (s *Server) getProjectJSON(ctx context.Context, projectID string) (string, error) {
	snap, err := s.store.Get(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("loading project %s: %w", projectID, err)
	}

	data, err := json.MarshalIndent(stripContents(snap), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding project %s: %w", projectID, err)
	}
	return string(data), nil
}

// stripContents returns a copy of snap whose files carry metadata and
// structural summaries only.
func stripContents(snap *project.Snapshot) *project.Snapshot {
	trimmed := *snap
	trimmed.Files = make([]project.AnalyzedFile, len(snap.Files))
	copy(trimmed.Files, snap.Files)
	for i := range trimmed.Files {
		trimmed.Files[i].Content = ""
	}
	return &trimmed
}

// renderIngestSummary formats a one-screen report of a fresh snapshot.
func renderIngestSummary(snap *project.Snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Ingested %q as project %s\n\n", snap.Name, snap.ID)
	fmt.Fprintf(&sb, "- Type: %s\n", snap.ProjectType)
	fmt.Fprintf(&sb, "- Files: %d (%d lines)\n", snap.TotalFiles, snap.TotalLines)
	if len(snap.Languages) > 0 {
		fmt.Fprintf(&sb, "- Languages: %s\n", strings.Join(snap.Languages, ", "))
	}
	for _, eco := range sortedEcosystems(snap.Dependencies) {
		fmt.Fprintf(&sb, "- Dependencies (%s): %d\n", eco, len(snap.Dependencies[eco]))
	}
	sb.WriteString("\nUse analyze_bug with this project ID and a bug description.")
	return sb.String()
}

// renderAnalysis formats a stored analysis for agent consumption. Fix IDs are
// included so generate_implementation can reference them.
func renderAnalysis(a *project.BugAnalysis) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Severity: %s\n\n", a.Severity)
	fmt.Fprintf(&sb, "Root cause:\n%s\n\n", a.RootCause)
	if a.Impact != "" {
		fmt.Fprintf(&sb, "Impact:\n%s\n\n", a.Impact)
	}

	fmt.Fprintf(&sb, "Fixes (%d):\n", len(a.Fixes))
	for i, fix := range a.Fixes {
		fmt.Fprintf(&sb, "%d. %s [id: %s, risk: %s", i+1, fix.Title, fix.ID, fix.RiskLevel)
		if fix.EstimatedTime != "" {
			fmt.Fprintf(&sb, ", estimate: %s", fix.EstimatedTime)
		}
		sb.WriteString("]\n")
		if fix.Description != "" {
			fmt.Fprintf(&sb, "   %s\n", fix.Description)
		}
		for _, step := range fix.Steps {
			fmt.Fprintf(&sb, "   - %s\n", step)
		}
	}

	if len(a.RelatedIssues) > 0 {
		sb.WriteString("\nRelated issues:\n")
		for _, issue := range a.RelatedIssues {
			fmt.Fprintf(&sb, "- %s\n", issue)
		}
	}
	if a.TestingStrategy != "" {
		fmt.Fprintf(&sb, "\nTesting strategy:\n%s\n", a.TestingStrategy)
	}
	sb.WriteString("\nUse generate_implementation with a fix ID to get an implementation plan.")
	return sb.String()
}

func sortedEcosystems(deps map[string]map[string]string) []string {
	ecosystems := make([]string, 0, len(deps))
	for eco := range deps {
		ecosystems = append(ecosystems, eco)
	}
	sort.Strings(ecosystems)
	return ecosystems
}

// textResult creates a successful result carrying the given text.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// errorResult creates an error result with the given message.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}
