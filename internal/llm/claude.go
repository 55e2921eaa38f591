package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const (
	defaultClaudeModel = "claude-sonnet-4-20250514"
	claudeEndpoint     = "https://api.anthropic.com/v1/messages"
)

// Claude talks to the Anthropic messages API.
type Claude struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewClaude creates a Claude client. An empty model selects the default, and
// a non-positive timeout falls back to 60 seconds.
func NewClaude(apiKey, model string, timeout time.Duration) *Claude {
	if model == "" {
		model = defaultClaudeModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Claude{
		apiKey:  apiKey,
		model:   model,
		baseURL: claudeEndpoint,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Claude) Name() string {
	return "claude"
}

// Complete sends a single messages-API request and returns the first content
// block's text.
func (c *Claude) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048 // the messages API rejects requests without a budget
	}

	body := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{{
			"role":    "user",
			"content": req.Prompt,
		}},
		"max_tokens":  maxTokens,
		"temperature": req.Temperature,
	}
	if req.System != "" {
		body["system"] = req.System
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "calling claude API")
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "reading claude response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("claude API error (status %d): %s", resp.StatusCode, string(respBytes))
	}

	// Minimal struct to pull out the content text.
	var claudeResp struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBytes, &claudeResp); err != nil {
		return "", errors.Wrap(err, "decoding claude response")
	}
	if claudeResp.Error.Message != "" {
		return "", errors.Errorf("claude API error: %s", claudeResp.Error.Message)
	}
	if len(claudeResp.Content) == 0 {
		return "", errors.New("empty response from claude")
	}
	return claudeResp.Content[0].Text, nil
}
