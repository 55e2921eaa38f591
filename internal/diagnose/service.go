// Package diagnose turns project snapshots into bug analyses by prompting a
// model backend and interpreting whatever comes back. Every entry point
// degrades instead of failing: a broken backend or an undecodable response
// yields a usable fallback result, never an error.
package diagnose

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mpetrov/bugscope/internal/llm"
	"github.com/mpetrov/bugscope/internal/project"
)

// Sampling contract per request kind. Analysis gets a larger budget and a
// slightly higher temperature than implementation.
const (
	analysisMaxTokens   = 2000
	analysisTemperature = 0.3

	implementationMaxTokens   = 1500
	implementationTemperature = 0.2
)

// Service runs analysis and implementation requests against a model backend.
type Service struct {
	client llm.Client
}

// NewService creates a Service backed by client.
func NewService(client llm.Client) *Service {
	return &Service{client: client}
}

// AnalyzeBug runs one analysis request for snap and returns the interpreted
// result. Exactly one model call is made, with no retries. A backend failure
// yields the fixed unavailable analysis; an undecodable response degrades
// through the interpreter chain.
func (s *Service) AnalyzeBug(ctx context.Context, snap *project.Snapshot, bugDescription string) *project.BugAnalysis {
	raw, err := s.client.Complete(ctx, llm.CompletionRequest{
		System:      analysisSystemPrompt,
		Prompt:      buildAnalysisPrompt(snap, bugDescription),
		MaxTokens:   analysisMaxTokens,
		Temperature: analysisTemperature,
	})
	if err != nil {
		logrus.Warnf("bug analysis call failed, returning fallback: %v", err)
		analysis := unavailableAnalysis()
		return &analysis
	}

	analysis := Interpret(raw)
	ensureFixIDs(&analysis)
	return &analysis
}

// GenerateImplementation asks the model to turn an agreed fix into concrete
// code changes. The returned text is opaque and never parsed; a backend
// failure yields the fixed manual-implementation guide.
func (s *Service) GenerateImplementation(ctx context.Context, snap *project.Snapshot, fix project.FixRecommendation, customInstructions string) string {
	raw, err := s.client.Complete(ctx, llm.CompletionRequest{
		System:      implementationSystemPrompt,
		Prompt:      buildImplementationPrompt(snap, fix, customInstructions),
		MaxTokens:   implementationMaxTokens,
		Temperature: implementationTemperature,
	})
	if err != nil {
		logrus.Warnf("implementation call failed, returning fallback: %v", err)
		return implementationFallback
	}
	return raw
}

// ensureFixIDs assigns an ID to every fix the model returned without one, so
// fixes can be referenced by later implementation requests.
func ensureFixIDs(analysis *project.BugAnalysis) {
	for i := range analysis.Fixes {
		if analysis.Fixes[i].ID == "" {
			analysis.Fixes[i].ID = uuid.NewString()
		}
	}
}
