package llm

import (
	"context"
	"net/url"
	"strings"

	ollama "github.com/JexSrs/go-ollama"
	"github.com/pkg/errors"
)

const defaultOllamaModel = "llama3"

// Ollama talks to a local Ollama server.
type Ollama struct {
	client *ollama.Ollama
	model  string
}

// NewOllama creates a client for the Ollama server at host. An empty model
// selects the default.
func NewOllama(host, model string) (*Ollama, error) {
	u, err := url.Parse(host)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid ollama host %q", host)
	}
	if model == "" {
		model = defaultOllamaModel
	}
	return &Ollama{client: ollama.New(*u), model: model}, nil
}

func (o *Ollama) Name() string {
	return "ollama"
}

// Complete sends a single generate request. Sampling parameters beyond
// model, system and prompt are left to the server defaults.
func (o *Ollama) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	res, err := o.client.Generate(
		o.client.Generate.WithModel(o.model),
		o.client.Generate.WithSystem(req.System),
		o.client.Generate.WithPrompt(req.Prompt),
	)
	if err != nil {
		return "", errors.Wrap(err, "calling ollama")
	}
	if !res.Done {
		return "", errors.New("ollama returned an unfinished response")
	}
	if strings.TrimSpace(res.Response) == "" {
		return "", errors.New("empty response from ollama")
	}
	return res.Response, nil
}
