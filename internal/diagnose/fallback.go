package diagnose

import (
	"github.com/google/uuid"

	"github.com/mpetrov/bugscope/internal/project"
)

// defaultAnalysis is the fixed result for responses no strategy could
// decode. Its wording differs from unavailableAnalysis so callers can tell a
// formatting failure from an outage.
func defaultAnalysis() project.BugAnalysis {
	return project.BugAnalysis{
		RootCause:       "The root cause could not be determined from the model response.",
		Severity:        project.SeverityMedium,
		Impact:          "Unknown. The response did not contain a usable analysis.",
		Fixes:           []project.FixRecommendation{genericFix()},
		TestingStrategy: "Reproduce the bug manually and verify the eventual fix with a regression test.",
	}
}

// unavailableAnalysis is the fixed result when the model backend cannot be
// reached at all.
func unavailableAnalysis() project.BugAnalysis {
	return project.BugAnalysis{
		RootCause:       "The analysis service is unreachable, so the bug could not be analyzed.",
		Severity:        project.SeverityMedium,
		Impact:          "No automated analysis was performed for this request.",
		Fixes: []project.FixRecommendation{{
			ID:          uuid.NewString(),
			Title:       "Retry once the analysis service is reachable",
			Description: "The model backend did not respond. Verify connectivity and credentials, then run the analysis again.",
			Steps: []string{
				"Check the configured model provider and its API key",
				"Confirm the backend is reachable from this host",
				"Re-run the bug analysis",
			},
			RiskLevel:     project.RiskLow,
			EstimatedTime: "15 minutes",
			Reasoning:     "Generated locally because the model backend was unavailable.",
		}},
		TestingStrategy: "Not available until the analysis service responds.",
	}
}

// implementationFallback is returned when the implementation request cannot
// reach the model.
const implementationFallback = `The implementation service is unreachable, so no generated implementation is available.

Manual implementation guide:
1. Re-read the selected fix and its planned steps.
2. Locate the affected files named in the analysis.
3. Apply the change in small increments, running the test suite after each one.
4. Add a regression test that fails without the change.

Re-run this request once the model backend is reachable.`
