package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultClaudeModel is used when no model is configured.
const DefaultClaudeModel = "claude-3-5-haiku-latest"

// AnthropicGenerator sends the prompt as a single user message to Claude.
type AnthropicGenerator struct {
	client anthropic.Client
	model  string
	system string
}

// NewAnthropicGenerator creates a Claude generator. An empty apiKey falls back
// to the SDK's ANTHROPIC_API_KEY lookup.
func NewAnthropicGenerator(apiKey, baseURL, model, system string) *AnthropicGenerator {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = DefaultClaudeModel
	}
	return &AnthropicGenerator{
		client: anthropic.NewClient(opts...),
		model:  model,
		system: system,
	}
}

func (g *AnthropicGenerator) Name() string { return "Claude" }

func (g *AnthropicGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = 200
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if g.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: g.system}}
	}

	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude api error: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}
