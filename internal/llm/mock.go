package llm

import "context"

// Mock is a scripted Client for tests. It records every request it receives.
type Mock struct {
	Response string
	Err      error
	Calls    []CompletionRequest
}

func (m *Mock) Name() string {
	return "mock"
}

func (m *Mock) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}
