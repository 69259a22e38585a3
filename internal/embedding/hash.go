package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// DefaultHashDims is the vector size of HashEmbedder when none is given.
const DefaultHashDims = 384

// HashEmbedder is a deterministic bag-of-words embedder. Each lowercase word
// is hashed into one of dims buckets with a hash-derived sign, and the
// result is normalised. Texts sharing words score higher than texts that do
// not, which is enough for offline use and tests.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a feature-hashing embedder.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultHashDims
	}
	return &HashEmbedder{dims: dims}
}

func (e *HashEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		words = []string{strings.TrimSpace(text)}
	}

	vec := make(Vector, e.dims)
	for _, w := range words {
		bucket, sign := e.slot(w)
		vec[bucket] += sign
	}
	// Opposite signs in one bucket can cancel out every word; the whole
	// text then decides the direction.
	if isZero(vec) {
		bucket, _ := e.slot(text)
		vec[bucket] = 1
	}
	return Normalize(vec), nil
}

func (e *HashEmbedder) slot(s string) (uint64, float32) {
	h := fnv.New64a()
	h.Write([]byte(s))
	sum := h.Sum64()
	if sum>>63 == 1 {
		return sum % uint64(e.dims), -1
	}
	return sum % uint64(e.dims), 1
}

func isZero(v Vector) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func (e *HashEmbedder) Dims() int { return e.dims }
