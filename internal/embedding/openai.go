package embedding

import (
	"context"
	"fmt"
	"strings"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAIEmbedder calls any OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	*remote
	model string
	// requested is sent as "dimensions" when the model supports shortening.
	requested int
}

type openaiEmbedRequest struct {
	Input      string `json:"input"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type openaiEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewOpenAIEmbedder creates an embedder for an OpenAI-compatible API. A
// positive dims is requested from text-embedding-3 models; other models
// return their native size.
func NewOpenAIEmbedder(baseURL, apiKey, model string, dims int) *OpenAIEmbedder {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	e := &OpenAIEmbedder{model: model}
	if dims > 0 && strings.HasPrefix(model, "text-embedding-3") {
		e.requested = dims
	}
	if dims <= 0 {
		dims = 1536
	}
	e.remote = newRemote("openai", baseURL, dims)
	if apiKey != "" {
		e.headers["Authorization"] = "Bearer " + apiKey
	}
	return e
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	var out openaiEmbedResponse
	req := openaiEmbedRequest{Input: text, Model: e.model, Dimensions: e.requested}
	if err := e.post(ctx, "/embeddings", req, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("openai returned no embedding")
	}
	return e.accept(out.Data[0].Embedding)
}
