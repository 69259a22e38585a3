package llm

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireTool(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

func TestCommandGenerator_Stdin(t *testing.T) {
	requireTool(t, "cat")
	g, err := NewCommandGenerator([]string{"cat"})
	require.NoError(t, err)

	out, err := g.Generate(context.Background(), "prompt via stdin", 200)
	require.NoError(t, err)
	assert.Equal(t, "prompt via stdin", out)
	assert.Equal(t, "cat", g.Name())
}

func TestCommandGenerator_ArgumentStyle(t *testing.T) {
	requireTool(t, "echo")
	g, err := NewCommandGenerator([]string{"echo", PromptPlaceholder, "--n-predict=" + MaxTokensPlaceholder})
	require.NoError(t, err)

	out, err := g.Generate(context.Background(), "hello", 200)
	require.NoError(t, err)
	assert.Equal(t, "hello --n-predict=200\n", out)
}

func TestCommandGenerator_Failure(t *testing.T) {
	requireTool(t, "false")
	g, err := NewCommandGenerator([]string{"false"})
	require.NoError(t, err)

	_, err = Guard(g, time.Second).Generate(context.Background(), "x", 1)
	require.Error(t, err)
	assert.Equal(t, "[ERROR] false model failed.", ReplyFor(err))
}

func TestCommandGenerator_Timeout(t *testing.T) {
	requireTool(t, "sleep")
	g, err := NewCommandGenerator([]string{"sleep", "5"})
	require.NoError(t, err)

	start := time.Now()
	_, err = Guard(g, 50*time.Millisecond).Generate(context.Background(), "x", 1)
	require.Error(t, err)
	assert.Equal(t, "[ERROR] sleep call timed out.", ReplyFor(err))
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestCommandGenerator_DefaultIsOllama(t *testing.T) {
	g, err := NewCommandGenerator(nil)
	require.NoError(t, err)
	assert.Equal(t, "Ollama", g.Name())
	assert.Equal(t, DefaultCommand, g.argv)
}
