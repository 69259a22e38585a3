package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// remote is the HTTP plumbing shared by the Ollama and OpenAI providers.
type remote struct {
	provider string
	baseURL  string
	headers  map[string]string
	client   *http.Client
	// dims starts as the configured guess and is replaced by the length of
	// the first vector the service returns.
	dims atomic.Int64
}

func newRemote(provider, baseURL string, dims int) *remote {
	r := &remote{
		provider: provider,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		headers:  map[string]string{"Content-Type": "application/json"},
		client:   &http.Client{Timeout: 30 * time.Second},
	}
	r.dims.Store(int64(dims))
	return r
}

// post sends in as JSON to path and decodes the response into out.
func (r *remote) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", r.provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", r.provider, err)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", r.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s error %d: %s", r.provider, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", r.provider, err)
	}
	return nil
}

// accept records the service's real dimension and normalises vec.
func (r *remote) accept(vec Vector) (Vector, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("%s returned an empty embedding", r.provider)
	}
	r.dims.Store(int64(len(vec)))
	return Normalize(vec), nil
}

func (r *remote) Dims() int { return int(r.dims.Load()) }
