package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Vector
		expected float64
		delta    float64
	}{
		{"identical", Vector{1, 0, 0}, Vector{1, 0, 0}, 1.0, 0.001},
		{"orthogonal", Vector{1, 0, 0}, Vector{0, 1, 0}, 0.0, 0.001},
		{"opposite", Vector{1, 0, 0}, Vector{-1, 0, 0}, -1.0, 0.001},
		{"similar", Vector{1, 1, 0}, Vector{1, 0, 0}, 0.707, 0.01},
		{"empty", Vector{}, Vector{}, 0.0, 0.001},
		{"different lengths", Vector{1, 0}, Vector{1, 0, 0}, 0.0, 0.001},
		{"zero vector", Vector{0, 0, 0}, Vector{1, 0, 0}, 0.0, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.expected) > tt.delta {
				t.Errorf("CosineSimilarity(%v, %v) = %f, want %f (±%f)", tt.a, tt.b, got, tt.expected, tt.delta)
			}
		})
	}
}

func norm(v Vector) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestNormalize(t *testing.T) {
	v := Normalize(Vector{3, 4})
	if math.Abs(norm(v)-1) > 1e-6 {
		t.Errorf("expected unit norm, got %f", norm(v))
	}
	if math.Abs(float64(v[0])-0.6) > 1e-6 {
		t.Errorf("expected 0.6, got %f", v[0])
	}

	zero := Normalize(Vector{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("expected zero vector unchanged, got %v", zero)
	}
}

func TestHashEmbedder(t *testing.T) {
	ctx := context.Background()
	e := NewHashEmbedder(0)
	if e.Dims() != DefaultHashDims {
		t.Fatalf("expected %d dims, got %d", DefaultHashDims, e.Dims())
	}

	a, _ := e.Embed(ctx, "Hostel fees are paid in July")
	b, _ := e.Embed(ctx, "hostel FEES are paid in july!")
	c, _ := e.Embed(ctx, "The physics lab has microscopes")

	if len(a) != e.Dims() {
		t.Fatalf("expected vector of %d, got %d", e.Dims(), len(a))
	}
	if math.Abs(norm(a)-1) > 1e-5 {
		t.Errorf("expected unit vector, got norm %f", norm(a))
	}
	if sim := CosineSimilarity(a, b); sim < 0.999 {
		t.Errorf("expected case/punctuation insensitive match, got %f", sim)
	}
	if CosineSimilarity(a, c) >= CosineSimilarity(a, b) {
		t.Error("expected unrelated text to score lower")
	}

	// Texts with no word characters still embed to a unit vector.
	p, _ := e.Embed(ctx, "???")
	if math.Abs(norm(p)-1) > 1e-5 {
		t.Errorf("expected unit vector for punctuation, got norm %f", norm(p))
	}
}

func TestHashEmbedder_NeverZero(t *testing.T) {
	ctx := context.Background()
	e := NewHashEmbedder(2)
	// With two buckets, some pair of words must land in one bucket with
	// opposite signs; every text still embeds to a unit vector.
	for i := 0; i < 200; i++ {
		text := fmt.Sprintf("w%d x%d", i, i*7)
		v, err := e.Embed(ctx, text)
		if err != nil {
			t.Fatalf("embed %q: %v", text, err)
		}
		if math.Abs(norm(v)-1) > 1e-5 {
			t.Fatalf("expected unit vector for %q, got %v", text, v)
		}
	}
}

type countingEmbedder struct {
	calls atomic.Int32
	inner Embedder
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	c.calls.Add(1)
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) Dims() int { return c.inner.Dims() }

func TestCachedEmbedder(t *testing.T) {
	ctx := context.Background()
	counter := &countingEmbedder{inner: NewHashEmbedder(16)}
	c, err := NewCachedEmbedder(counter, 100)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	defer c.Close()

	first, err := c.Embed(ctx, "library hours")
	if err != nil {
		t.Fatal(err)
	}
	c.Wait()
	second, err := c.Embed(ctx, "library hours")
	if err != nil {
		t.Fatal(err)
	}
	if counter.calls.Load() != 1 {
		t.Errorf("expected 1 inner call, got %d", counter.calls.Load())
	}
	if CosineSimilarity(first, second) < 0.999 {
		t.Error("expected cached vector to match")
	}
	if c.Dims() != 16 {
		t.Errorf("expected dims 16, got %d", c.Dims())
	}
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) (Vector, error) {
	return nil, errors.New("boom")
}
func (failingEmbedder) Dims() int { return 1 }

func TestCachedEmbedder_ErrorNotCached(t *testing.T) {
	c, err := NewCachedEmbedder(failingEmbedder{}, 10)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, err := c.Embed(context.Background(), "x"); err == nil {
		t.Error("expected error to propagate")
	}
}

func TestOllamaEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req ollamaRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "all-minilm" || req.Prompt != "hello" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{3, 4}})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL+"/", "all-minilm")
	if e.Dims() != 384 {
		t.Errorf("expected 384 dims for all-minilm, got %d", e.Dims())
	}
	v, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(v) != 2 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("expected normalised [0.6 0.8], got %v", v)
	}
}

func TestOllamaEmbedder_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := NewOllamaEmbedder(srv.URL, "missing").Embed(context.Background(), "x"); err == nil {
		t.Error("expected error on non-200 status")
	}
}

func TestOpenAIEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"data":[{"embedding":[0,2]}]}`))
	}))
	defer srv.Close()

	v, err := NewOpenAIEmbedder(srv.URL, "sk-test", "", 2).Embed(context.Background(), "x")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if v[0] != 0 || v[1] != 1 {
		t.Errorf("expected [0 1], got %v", v)
	}
}

func TestNew(t *testing.T) {
	e, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*HashEmbedder); !ok {
		t.Errorf("expected hash embedder by default, got %T", e)
	}

	e, err = New(Options{Provider: "hash", CacheSize: 8})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*CachedEmbedder); !ok {
		t.Errorf("expected cached embedder, got %T", e)
	}

	if _, err := New(Options{Provider: "nope"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestRegister(t *testing.T) {
	Register("test-fixed", func(o Options) (Embedder, error) {
		return NewHashEmbedder(o.Dims), nil
	})
	e, err := New(Options{Provider: "test-fixed", Dims: 8})
	if err != nil {
		t.Fatal(err)
	}
	if e.Dims() != 8 {
		t.Errorf("expected 8 dims, got %d", e.Dims())
	}

	found := false
	for _, p := range Providers() {
		if p == "test-fixed" {
			found = true
		}
	}
	if !found {
		t.Error("expected registered provider to be listed")
	}
}

func TestOllamaEmbedder_LearnsDims(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{1, 0, 0}})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "nomic-embed-text")
	if e.Dims() != 768 {
		t.Fatalf("expected 768 dims before first call, got %d", e.Dims())
	}
	if _, err := e.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("embed: %v", err)
	}
	if e.Dims() != 3 {
		t.Errorf("expected 3 dims after first call, got %d", e.Dims())
	}
}

func TestOpenAIEmbedder_Dimensions(t *testing.T) {
	var got openaiEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"data":[{"index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	if _, err := NewOpenAIEmbedder(srv.URL, "", "text-embedding-3-large", 256).Embed(context.Background(), "x"); err != nil {
		t.Fatalf("embed: %v", err)
	}
	if got.Dimensions != 256 || got.Model != "text-embedding-3-large" {
		t.Errorf("unexpected request %+v", got)
	}

	got = openaiEmbedRequest{}
	if _, err := NewOpenAIEmbedder(srv.URL, "", "nomic-embed-text", 256).Embed(context.Background(), "x"); err != nil {
		t.Fatalf("embed: %v", err)
	}
	if got.Dimensions != 0 {
		t.Errorf("dimensions sent to a model that cannot shorten: %+v", got)
	}
}

func TestOpenAIEmbedder_EmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	if _, err := NewOpenAIEmbedder(srv.URL, "", "", 0).Embed(context.Background(), "x"); err == nil {
		t.Error("expected error for empty data")
	}
}
