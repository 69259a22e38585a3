package llm

import (
	"fmt"
	"time"
)

// Backend names accepted by New.
const (
	BackendCommand   = "command"
	BackendOllama    = "ollama"
	BackendAnthropic = "anthropic"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	Command []string
	Model   string
	URL     string
	APIKey  string
	System  string
	Timeout time.Duration
}

// New builds the configured backend wrapped in Guard.
func New(opts Options) (Generator, error) {
	var g Generator
	switch opts.Backend {
	case "", BackendCommand:
		cg, err := NewCommandGenerator(opts.Command)
		if err != nil {
			return nil, err
		}
		g = cg
	case BackendOllama:
		g = NewOllamaGenerator(opts.URL, opts.Model)
	case BackendAnthropic:
		g = NewAnthropicGenerator(opts.APIKey, opts.URL, opts.Model, opts.System)
	default:
		return nil, fmt.Errorf("unknown llm backend %q", opts.Backend)
	}
	return Guard(g, opts.Timeout), nil
}
