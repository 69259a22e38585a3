package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicGenerator_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"), r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(120), body["max_tokens"])
		assert.Equal(t, "claude-test", body["model"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "The dean is in block A."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 8}
		}`))
	}))
	defer server.Close()

	g := NewAnthropicGenerator("test-key", server.URL, "claude-test", "Be brief.")
	out, err := g.Generate(context.Background(), "Where is the dean?", 120)
	require.NoError(t, err)
	assert.Equal(t, "The dean is in block A.", out)
}
