// Package embedding provides a pluggable interface for text embedding providers.
package embedding

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Vector is a float32 embedding vector.
type Vector = []float32

// Embedder generates embedding vectors from text.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
	Dims() int
}

// CosineSimilarity computes cosine similarity between two vectors.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Normalize returns v scaled to unit length. A zero vector is returned as is.
func Normalize(v Vector) Vector {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// --- Factory ---

// Options selects and configures an embedding provider.
type Options struct {
	// Provider is one of "hash", "ollama", "openai" or a registered name.
	Provider string
	Model    string
	// URL overrides the provider's base URL.
	URL    string
	APIKey string
	Dims   int
	// ModelPath and TokenizerPath are used by local model providers.
	ModelPath     string
	TokenizerPath string
	LibraryPath   string
	// CacheSize bounds the number of cached query embeddings. Zero disables
	// caching.
	CacheSize int64
}

// Factory builds an embedder from options.
type Factory func(Options) (Embedder, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a provider available to New under name. It is meant to be
// called from an init function of a provider package.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if f == nil {
		panic("embedding: Register factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic("embedding: Register called twice for provider " + name)
	}
	registry[name] = f
}

// Providers lists the available provider names.
func Providers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := []string{"hash", "ollama", "openai"}
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates an embedder for opts.Provider, wrapped in a cache when
// opts.CacheSize is positive.
func New(opts Options) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch opts.Provider {
	case "", "hash":
		e = NewHashEmbedder(opts.Dims)
	case "ollama":
		model := opts.Model
		if model == "" {
			model = "nomic-embed-text"
		}
		e = NewOllamaEmbedder(opts.URL, model)
	case "openai":
		e = NewOpenAIEmbedder(opts.URL, opts.APIKey, opts.Model, opts.Dims)
	default:
		registryMu.RLock()
		f, ok := registry[opts.Provider]
		registryMu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("unknown embedding provider %q (available: %v)", opts.Provider, Providers())
		}
		e, err = f(opts)
		if err != nil {
			return nil, fmt.Errorf("init %s embedder: %w", opts.Provider, err)
		}
	}

	if opts.CacheSize > 0 {
		return NewCachedEmbedder(e, opts.CacheSize)
	}
	return e, nil
}
