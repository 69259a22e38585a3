// Package llm adapts language-model backends to a single Generate call and
// maps their failures to in-band error replies.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Generator produces a completion for prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Func adapts a plain function to Generator.
type Func func(ctx context.Context, prompt string, maxTokens int) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return f(ctx, prompt, maxTokens)
}

// Named is implemented by generators that report a display name.
type Named interface {
	Name() string
}

// ErrGeneration matches every *GenerationError.
var ErrGeneration = errors.New("generation failed")

// Failure classifies a generation error.
type Failure int

const (
	FailureError Failure = iota
	FailureEmpty
	FailureTimeout
)

// GenerationError describes a failed model call.
type GenerationError struct {
	Backend string
	Failure Failure
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s generation failed: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("%s generation failed: %s", e.Backend, e.reason())
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Is reports ErrGeneration as a match.
func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }

func (e *GenerationError) reason() string {
	switch e.Failure {
	case FailureEmpty:
		return "returned empty response."
	case FailureTimeout:
		return "call timed out."
	default:
		if e.Backend == defaultName {
			return "failed."
		}
		return "model failed."
	}
}

// Reply is the in-band text shown to the user and logged as the bot turn.
func (e *GenerationError) Reply() string {
	return fmt.Sprintf("[ERROR] %s %s", e.Backend, e.reason())
}

const defaultName = "Model"

// Guard wraps g so that each call is bounded by timeout and every failure,
// including blank output, surfaces as a *GenerationError. Successful output
// is trimmed. Guarding an already guarded generator without a timeout
// returns it unchanged.
func Guard(g Generator, timeout time.Duration) Generator {
	if gg, ok := g.(*guarded); ok && timeout <= 0 {
		return gg
	}
	name := defaultName
	if n, ok := g.(Named); ok && n.Name() != "" {
		name = n.Name()
	}
	return &guarded{inner: g, timeout: timeout, name: name}
}

type guarded struct {
	inner   Generator
	timeout time.Duration
	name    string
}

func (g *guarded) Name() string { return g.name }

func (g *guarded) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	out, err := g.inner.Generate(ctx, prompt, maxTokens)
	if err != nil {
		var ge *GenerationError
		if errors.As(err, &ge) {
			return "", ge
		}
		failure := FailureError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			failure = FailureTimeout
		}
		return "", &GenerationError{Backend: g.name, Failure: failure, Err: err}
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", &GenerationError{Backend: g.name, Failure: FailureEmpty}
	}
	return out, nil
}

// ReplyFor returns the user-facing text for a generation error.
func ReplyFor(err error) string {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Reply()
	}
	return "[ERROR] Exception: " + err.Error()
}
