package diagnose

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/mpetrov/bugscope/internal/project"
)

// Interpret converts raw model output into a BugAnalysis. It never fails:
// strategies are tried in order (strict JSON, labeled free text, static
// default) and the first one that yields anything wins.
func Interpret(raw string) project.BugAnalysis {
	if analysis, ok := parseStrict(raw); ok {
		return analysis
	}
	if analysis, ok := parseLenient(raw); ok {
		return analysis
	}
	return defaultAnalysis()
}

// parseStrict decodes the outermost JSON object in raw. Decoded values are
// returned exactly as the model produced them; fields the model omitted stay
// empty.
func parseStrict(raw string) (project.BugAnalysis, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return project.BugAnalysis{}, false
	}

	var analysis project.BugAnalysis
	if err := json.Unmarshal([]byte(raw[start:end+1]), &analysis); err != nil {
		return project.BugAnalysis{}, false
	}
	return analysis, true
}

// Labels for the free-text section scan.
var (
	rootCauseLabel = regexp.MustCompile(`(?i)root cause`)
	impactLabel    = regexp.MustCompile(`(?i)impact`)
	testingLabel   = regexp.MustCompile(`(?i)testing strategy`)
)

// parseLenient scavenges labeled sections and severity keywords from free
// text. It reports false when nothing recognizable is present.
func parseLenient(raw string) (project.BugAnalysis, bool) {
	rootCause := extractSection(raw, rootCauseLabel)
	impact := extractSection(raw, impactLabel)
	testing := extractSection(raw, testingLabel)
	severity, severityFound := scanSeverity(raw)

	if rootCause == "" && impact == "" && testing == "" && !severityFound {
		return project.BugAnalysis{}, false
	}

	if rootCause == "" {
		rootCause = "The response did not state an explicit root cause; review the raw analysis text."
	}
	if impact == "" {
		impact = "Impact could not be recovered from the response."
	}
	if testing == "" {
		testing = "Reproduce the original failure after applying the fix and add a regression test."
	}

	return project.BugAnalysis{
		RootCause:       rootCause,
		Severity:        severity,
		Impact:          impact,
		Fixes:           []project.FixRecommendation{genericFix()},
		TestingStrategy: testing,
	}, true
}

// extractSection captures the text between the first label match and the
// next blank line, or the end of the text. The match runs over raw itself;
// indexes into a lowered copy shift when case mappings change rune width.
func extractSection(raw string, label *regexp.Regexp) string {
	loc := label.FindStringIndex(raw)
	if loc == nil {
		return ""
	}

	rest := raw[loc[1]:]
	rest = strings.TrimLeft(rest, ":* \t")
	if end := strings.Index(rest, "\n\n"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// severityScanOrder ranks keywords for the free-text scan. The most urgent
// keyword present anywhere in the text wins, regardless of position.
var severityScanOrder = []string{
	project.SeverityCritical,
	project.SeverityHigh,
	project.SeverityMedium,
	project.SeverityLow,
}

// scanSeverity picks the highest-priority severity keyword mentioned in raw.
// When none is mentioned it reports medium and false.
func scanSeverity(raw string) (string, bool) {
	lower := strings.ToLower(raw)
	for _, severity := range severityScanOrder {
		if strings.Contains(lower, severity) {
			return severity, true
		}
	}
	return project.SeverityMedium, false
}

// genericFix is the single recommendation synthesized when the model's own
// fixes cannot be recovered from its response.
func genericFix() project.FixRecommendation {
	return project.FixRecommendation{
		ID:          uuid.NewString(),
		Title:       "Review the analysis and apply a targeted fix",
		Description: "The response did not include structured fix recommendations. Use the root cause above to locate the defect and correct it directly.",
		Steps: []string{
			"Reproduce the bug using the reported symptoms",
			"Inspect the code paths named in the root cause",
			"Apply the smallest change that removes the failure",
			"Add a regression test covering the scenario",
		},
		RiskLevel:     project.RiskLow,
		EstimatedTime: "1-2 hours",
		Reasoning:     "Synthesized locally because the response was not in the expected structured format.",
	}
}
