// Package llm provides minimal single-turn completion clients for the
// supported model backends.
package llm

import (
	"context"

	"github.com/pkg/errors"
)

// CompletionRequest is a single completion call to a model backend.
type CompletionRequest struct {
	System      string // system instruction, may be empty
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Client sends completion requests to one model backend. A non-nil error
// from Complete means the backend could not produce a response (unreachable,
// rejected request or empty reply); callers degrade instead of retrying.
type Client interface {
	// Name returns the provider identifier (e.g. "claude").
	Name() string
	// Complete sends one completion request and returns the raw response text.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Unavailable is a Client that always fails. It stands in when no backend is
// configured, so callers fall through to their degraded paths instead of
// special-casing a nil client.
type Unavailable struct {
	Reason string
}

func (u Unavailable) Name() string {
	return "unavailable"
}

func (u Unavailable) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return "", errors.Errorf("model backend unavailable: %s", u.Reason)
}
