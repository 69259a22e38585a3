// Package prompt renders the model prompt from history, context and query.
package prompt

import (
	"fmt"
	"os"
	"strings"
	"text/template"
)

// DefaultTemplate is the built-in prompt.
const DefaultTemplate = `You are a helpful college assistant at {{.Institution}}.

Communication Guidelines:
"tone": "friendly"
"tone": "talkative"
"tone": "Humorous"
You are {{.Assistant}}
- Keep replies short and natural, 1-2 sentences unless the user asks for more.
- Respond conversationally like a human would. No robotic lines, no forced greetings.
- Never assume anything about the user. Only respond based on known facts or previous context.
- Do not make up information.

Conversation History:
{{.History}}

Context:
{{.Context}}

User: {{.Query}}
Answer:`

// Defaults for the persona fields.
const (
	DefaultInstitution = "Graphic Era Hill University, Bhimtal Campus"
	DefaultAssistant   = "AlphaMind"
)

// Data is what a template can reference.
type Data struct {
	Institution string
	Assistant   string
	History     string
	Context     string
	Query       string
}

// Builder renders prompts.
type Builder struct {
	tmpl        *template.Template
	institution string
	assistant   string
}

// New parses text as a prompt template. Empty text uses DefaultTemplate and
// empty persona fields use the defaults.
func New(text, institution, assistant string) (*Builder, error) {
	if text == "" {
		text = DefaultTemplate
	}
	if institution == "" {
		institution = DefaultInstitution
	}
	if assistant == "" {
		assistant = DefaultAssistant
	}
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}
	return &Builder{tmpl: tmpl, institution: institution, assistant: assistant}, nil
}

// FromFile reads a template from path.
func FromFile(path, institution, assistant string) (*Builder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt template: %w", err)
	}
	return New(string(data), institution, assistant)
}

// Default returns a builder for DefaultTemplate.
func Default() *Builder {
	b, err := New("", "", "")
	if err != nil {
		panic(err)
	}
	return b
}

// Assistant returns the assistant's display name.
func (b *Builder) Assistant() string { return b.assistant }

// Build renders the prompt.
func (b *Builder) Build(history, context, query string) (string, error) {
	var sb strings.Builder
	err := b.tmpl.Execute(&sb, Data{
		Institution: b.institution,
		Assistant:   b.assistant,
		History:     history,
		Context:     context,
		Query:       query,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return sb.String(), nil
}
