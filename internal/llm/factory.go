package llm

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mpetrov/bugscope/internal/config"
)

// New creates the model client selected by cfg. API keys come from the
// environment: ANTHROPIC_API_KEY for claude, OPENAI_API_KEY for openai.
// Model overrides fall back to CLAUDE_MODEL / OPENAI_MODEL when the config
// leaves the model empty.
func New(cfg config.ModelConfig) (Client, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	switch strings.ToLower(cfg.Provider) {
	case "claude", "":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, errors.New("ANTHROPIC_API_KEY environment variable not set")
		}
		model := cfg.Model
		if model == "" {
			model = os.Getenv("CLAUDE_MODEL")
		}
		return NewClaude(apiKey, model, timeout), nil

	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, errors.New("OPENAI_API_KEY environment variable not set")
		}
		model := cfg.Model
		if model == "" {
			model = os.Getenv("OPENAI_MODEL")
		}
		return NewOpenAI(apiKey, model, timeout), nil

	case "ollama":
		return NewOllama(cfg.Host, cfg.Model)

	default:
		return nil, errors.Errorf("unsupported model provider: %s (supported: claude, openai, ollama)", cfg.Provider)
	}
}
