package embedding

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// CachedEmbedder memoises another embedder's vectors by exact text.
type CachedEmbedder struct {
	inner Embedder
	cache *ristretto.Cache
}

// NewCachedEmbedder wraps inner with a cache holding up to maxItems vectors.
func NewCachedEmbedder(inner Embedder, maxItems int64) (*CachedEmbedder, error) {
	if maxItems <= 0 {
		maxItems = 1024
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &CachedEmbedder{inner: inner, cache: cache}, nil
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	if v, ok := c.cache.Get(text); ok {
		if vec, ok := v.(Vector); ok {
			return vec, nil
		}
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, vec, 1)
	return vec, nil
}

func (c *CachedEmbedder) Dims() int { return c.inner.Dims() }

// Unwrap returns the embedder behind the cache.
func (c *CachedEmbedder) Unwrap() Embedder { return c.inner }

// Wait blocks until pending cache writes are applied.
func (c *CachedEmbedder) Wait() { c.cache.Wait() }

// Close releases the cache.
func (c *CachedEmbedder) Close() error {
	c.cache.Close()
	return nil
}
