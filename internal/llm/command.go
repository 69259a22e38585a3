package llm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Placeholders substituted in command arguments.
const (
	PromptPlaceholder    = "{prompt}"
	MaxTokensPlaceholder = "{max_tokens}"
)

// DefaultCommand runs the local Ollama CLI with the prompt on stdin.
var DefaultCommand = []string{"ollama", "run", "llama3.2"}

// CommandGenerator runs a local model CLI per call. When no argument holds
// PromptPlaceholder the prompt is written to stdin.
type CommandGenerator struct {
	argv []string
	name string
}

// NewCommandGenerator creates a generator for argv, e.g.
// ["llama-run", "model.gguf", "{prompt}", "--n-predict={max_tokens}"].
func NewCommandGenerator(argv []string) (*CommandGenerator, error) {
	if len(argv) == 0 {
		argv = DefaultCommand
	}
	if strings.TrimSpace(argv[0]) == "" {
		return nil, fmt.Errorf("empty model command")
	}
	name := filepath.Base(argv[0])
	if name == "ollama" {
		name = "Ollama"
	}
	return &CommandGenerator{argv: append([]string(nil), argv...), name: name}, nil
}

func (c *CommandGenerator) Name() string { return c.name }

func (c *CommandGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	args := make([]string, len(c.argv)-1)
	usesStdin := true
	for i, a := range c.argv[1:] {
		if strings.Contains(a, PromptPlaceholder) {
			usesStdin = false
		}
		a = strings.ReplaceAll(a, PromptPlaceholder, prompt)
		a = strings.ReplaceAll(a, MaxTokensPlaceholder, strconv.Itoa(maxTokens))
		args[i] = a
	}

	cmd := exec.CommandContext(ctx, c.argv[0], args...)
	if usesStdin {
		cmd.Stdin = strings.NewReader(prompt)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%s: %w: %s", c.argv[0], err, msg)
		}
		return "", fmt.Errorf("%s: %w", c.argv[0], err)
	}
	return stdout.String(), nil
}
