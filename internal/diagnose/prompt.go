package diagnose

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mpetrov/bugscope/internal/project"
)

// Caps for the prompt's code sample. These are contract values, not
// configuration: the sample never exceeds maxSampleFiles files or
// maxSampleChars characters per file.
const (
	maxSampleFiles = 3
	maxSampleChars = 1000

	truncationMarker = "... (truncated)"
)

// genericBugDescription stands in when the caller reports no symptom.
const genericBugDescription = "No specific bug was described. Audit the project for likely defects and focus on the most probable failure points."

// analysisSystemPrompt frames every bug-analysis completion.
const analysisSystemPrompt = "You are an expert debugging assistant. You analyze software projects, identify root causes of bugs and propose concrete, low-risk fixes."

// implementationSystemPrompt frames every implementation completion.
const implementationSystemPrompt = "You are an expert software engineer. You turn agreed fix recommendations into precise, minimal implementation plans."

// analysisReplyShape closes the analysis prompt with the exact JSON
// structure the interpreter decodes.
const analysisReplyShape = `
Respond in JSON format with this structure:
{
  "rootCause": "brief explanation of the root cause",
  "severity": "low|medium|high|critical",
  "impact": "what this bug affects and how badly",
  "fixes": [
    {
      "title": "short fix name",
      "description": "what to change",
      "steps": ["ordered implementation steps"],
      "riskLevel": "low|medium|high",
      "estimatedTime": "rough effort estimate",
      "reasoning": "why this fix addresses the root cause"
    }
  ],
  "relatedIssues": ["other defects noticed along the way"],
  "testingStrategy": "how to verify the fix"
}

Focus on the reported bug. Be concise but thorough.`

// buildAnalysisPrompt renders a snapshot and bug description into the
// analysis prompt.
func buildAnalysisPrompt(snap *project.Snapshot, bugDescription string) string {
	if strings.TrimSpace(bugDescription) == "" {
		bugDescription = genericBugDescription
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\n", snap.Name)
	fmt.Fprintf(&b, "Type: %s\n", snap.ProjectType)
	fmt.Fprintf(&b, "Files: %d (%d lines)\n", snap.TotalFiles, snap.TotalLines)
	if len(snap.Languages) > 0 {
		fmt.Fprintf(&b, "Languages: %s\n", strings.Join(snap.Languages, ", "))
	}
	writeDependencySummary(&b, snap.Dependencies)

	fmt.Fprintf(&b, "\nBug report:\n%s\n", bugDescription)

	writeCodeSample(&b, snap.Files)

	b.WriteString(analysisReplyShape)
	return b.String()
}

// buildImplementationPrompt renders the chosen fix into a plain-text
// implementation request. No code samples are attached.
func buildImplementationPrompt(snap *project.Snapshot, fix project.FixRecommendation, customInstructions string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s (%s)\n", snap.Name, snap.ProjectType)
	fmt.Fprintf(&b, "\nFix to implement: %s\n%s\n", fix.Title, fix.Description)
	if len(fix.Steps) > 0 {
		b.WriteString("\nPlanned steps:\n")
		for i, step := range fix.Steps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
	}
	if strings.TrimSpace(customInstructions) != "" {
		fmt.Fprintf(&b, "\nAdditional instructions:\n%s\n", customInstructions)
	}
	b.WriteString("\nProduce a concrete implementation of this fix: the code changes to make, file by file, with brief justifications. Respond in plain text, not JSON.")
	return b.String()
}

// writeDependencySummary appends a one-line ecosystem overview.
func writeDependencySummary(b *strings.Builder, deps map[string]map[string]string) {
	if len(deps) == 0 {
		return
	}
	ecosystems := make([]string, 0, len(deps))
	for eco := range deps {
		ecosystems = append(ecosystems, eco)
	}
	sort.Strings(ecosystems)

	parts := make([]string, 0, len(ecosystems))
	for _, eco := range ecosystems {
		parts = append(parts, fmt.Sprintf("%s (%d)", eco, len(deps[eco])))
	}
	fmt.Fprintf(b, "Dependencies: %s\n", strings.Join(parts, ", "))
}

// writeCodeSample appends up to maxSampleFiles files, each capped at
// maxSampleChars characters with an explicit truncation marker.
func writeCodeSample(b *strings.Builder, files []project.AnalyzedFile) {
	if len(files) == 0 {
		return
	}
	b.WriteString("\nCode sample:\n")
	for i, f := range files {
		if i == maxSampleFiles {
			break
		}
		content, cut := truncateRunes(f.Content, maxSampleChars)
		if cut {
			content += "\n" + truncationMarker
		}
		fmt.Fprintf(b, "\n--- %s ---\n%s\n", f.Name, content)
	}
}

// truncateRunes cuts s after max runes. The cap counts characters, not
// bytes, and the cut never splits a UTF-8 sequence.
func truncateRunes(s string, max int) (string, bool) {
	n := 0
	for i := range s {
		if n == max {
			return s[:i], true
		}
		n++
	}
	return s, false
}
