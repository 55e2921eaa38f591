package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/mpetrov/bugscope/internal/project"
)

// analysisReport is the machine-readable shape of the analyze command output.
type analysisReport struct {
	Project  projectInfo          `json:"project" yaml:"project"`
	Analysis *project.BugAnalysis `json:"analysis" yaml:"analysis"`
}

type projectInfo struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	ProjectType string   `json:"project_type" yaml:"project_type"`
	TotalFiles  int      `json:"total_files" yaml:"total_files"`
	TotalLines  int      `json:"total_lines" yaml:"total_lines"`
	Languages   []string `json:"languages,omitempty" yaml:"languages,omitempty"`
}

// displayAnalysis renders the analysis in the requested format.
func displayAnalysis(snap *project.Snapshot, analysis *project.BugAnalysis, format string) error {
	report := analysisReport{
		Project: projectInfo{
			ID:          snap.ID,
			Name:        snap.Name,
			ProjectType: snap.ProjectType,
			TotalFiles:  snap.TotalFiles,
			TotalLines:  snap.TotalLines,
			Languages:   snap.Languages,
		},
		Analysis: analysis,
	}

	switch format {
	case "json":
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	case "yaml":
		out, err := yaml.Marshal(report)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
	case "human":
		fallthrough
	default:
		displayHuman(snap, analysis)
	}
	return nil
}

func displayHuman(snap *project.Snapshot, a *project.BugAnalysis) {
	cyan := color.New(color.FgCyan, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	white := color.New(color.FgWhite, color.Bold)

	fmt.Println()
	cyan.Printf("Project: %s", snap.Name)
	fmt.Printf(" (%s, %d files, %d lines)\n", snap.ProjectType, snap.TotalFiles, snap.TotalLines)
	fmt.Printf("ID: %s\n\n", snap.ID)

	red.Println("ROOT CAUSE:")
	fmt.Println(wrapText(a.RootCause, 80, "   "))
	fmt.Println()

	severityColor(a.Severity).Printf("SEVERITY: %s\n\n", strings.ToUpper(a.Severity))

	if a.Impact != "" {
		white.Println("IMPACT:")
		fmt.Println(wrapText(a.Impact, 80, "   "))
		fmt.Println()
	}

	if len(a.Fixes) > 0 {
		green.Println("FIXES:")
		for i, fix := range a.Fixes {
			fmt.Printf("   %d. %s [%s risk", i+1, fix.Title, fix.RiskLevel)
			if fix.EstimatedTime != "" {
				fmt.Printf(", %s", fix.EstimatedTime)
			}
			fmt.Println("]")
			if fix.Description != "" {
				fmt.Printf("      %s\n", fix.Description)
			}
			for _, step := range fix.Steps {
				fmt.Printf("      - %s\n", step)
			}
			fmt.Printf("      ID: %s\n", color.HiBlackString(fix.ID))
			fmt.Println()
		}
	}

	if len(a.RelatedIssues) > 0 {
		yellow.Println("RELATED ISSUES:")
		for _, issue := range a.RelatedIssues {
			fmt.Printf("   - %s\n", issue)
		}
		fmt.Println()
	}

	if a.TestingStrategy != "" {
		cyan.Println("TESTING STRATEGY:")
		fmt.Println(wrapText(a.TestingStrategy, 80, "   "))
		fmt.Println()
	}

	fmt.Println(strings.Repeat("─", 80))
	fmt.Println(color.HiBlackString("Run with -o json or -o yaml for machine-readable output"))
}

func severityColor(severity string) *color.Color {
	switch strings.ToLower(severity) {
	case project.SeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case project.SeverityHigh:
		return color.New(color.FgRed)
	case project.SeverityMedium:
		return color.New(color.FgYellow)
	case project.SeverityLow:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgWhite)
	}
}

func printSuccess(msg string) {
	color.New(color.FgGreen).Printf("✓ %s\n", msg)
}

// wrapText wraps text to the given width, indenting every line. Existing line
// breaks are preserved.
func wrapText(text string, width int, indent string) string {
	var result strings.Builder
	for _, line := range strings.Split(text, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			result.WriteString("\n")
			continue
		}

		current := indent
		for _, word := range words {
			if current != indent && len(current)+len(word)+1 > width {
				result.WriteString(current + "\n")
				current = indent + word
			} else if current == indent {
				current += word
			} else {
				current += " " + word
			}
		}
		result.WriteString(current + "\n")
	}
	return strings.TrimSuffix(result.String(), "\n")
}
