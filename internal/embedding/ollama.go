package embedding

import (
	"context"
	"strings"
)

// DefaultOllamaURL is used when no base URL is configured.
const DefaultOllamaURL = "http://localhost:11434"

// OllamaEmbedder calls a local Ollama server's /api/embeddings endpoint.
type OllamaEmbedder struct {
	*remote
	model string
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewOllamaEmbedder creates an Ollama embedder. Dims reports 768
// (nomic-embed-text) or 384 (all-minilm) until the first response.
func NewOllamaEmbedder(baseURL, model string) *OllamaEmbedder {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	dims := 768
	if strings.HasPrefix(model, "all-minilm") {
		dims = 384
	}
	return &OllamaEmbedder{remote: newRemote("ollama", baseURL, dims), model: model}
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	var out ollamaResponse
	if err := e.post(ctx, "/api/embeddings", ollamaRequest{Model: e.model, Prompt: text}, &out); err != nil {
		return nil, err
	}
	vec := make(Vector, len(out.Embedding))
	for i, v := range out.Embedding {
		vec[i] = float32(v)
	}
	return e.accept(vec)
}
