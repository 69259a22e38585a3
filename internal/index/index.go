// Package index holds the in-memory vector index over the corpus.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/rcliao/alphamind/internal/embedding"
	"github.com/rcliao/alphamind/internal/model"
)

// DefaultK is the number of semantic neighbours returned by default.
const DefaultK = 3

// ErrIndexMismatch is returned when the built index does not hold exactly one
// vector per corpus entry.
var ErrIndexMismatch = errors.New("index size does not match corpus")

// ErrZeroVector is returned when an embedder yields a vector with no
// direction, which has no defined cosine similarity.
var ErrZeroVector = errors.New("embedding is a zero vector")

// Index is an immutable nearest-neighbour index over corpus entries. A
// rebuild produces a new Index.
type Index struct {
	col      *chromem.Collection
	entries  []model.Entry
	embedder embedding.Embedder
	built    time.Duration
}

// Build embeds every entry in order and inserts the vectors into a fresh
// collection. Any embedding failure aborts the build.
func Build(ctx context.Context, entries []model.Entry, embedder embedding.Embedder) (*Index, error) {
	start := time.Now()

	db := chromem.NewDB()
	col, err := db.CreateCollection("corpus", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	docs := make([]chromem.Document, 0, len(entries))
	for _, e := range entries {
		vec, err := embed(ctx, embedder, e.Text)
		if err != nil {
			return nil, fmt.Errorf("embed entry %d: %w", e.Pos, err)
		}
		docs = append(docs, chromem.Document{
			ID:        strconv.Itoa(e.Pos),
			Content:   e.Text,
			Embedding: vec,
			Metadata:  map[string]string{"kind": e.Kind, "source": e.Source},
		})
	}
	for _, d := range docs {
		if err := col.AddDocument(ctx, d); err != nil {
			return nil, fmt.Errorf("add document %s: %w", d.ID, err)
		}
	}

	if col.Count() != len(entries) {
		return nil, fmt.Errorf("%w: %d vectors for %d entries", ErrIndexMismatch, col.Count(), len(entries))
	}

	idx := &Index{
		col:      col,
		entries:  append([]model.Entry(nil), entries...),
		embedder: embedder,
		built:    time.Since(start),
	}
	slog.Debug("index built", "component", "index", "entries", len(entries), "duration", idx.built)
	return idx, nil
}

// Size returns the number of indexed vectors.
func (x *Index) Size() int {
	return x.col.Count()
}

// Entries returns a copy of the indexed corpus.
func (x *Index) Entries() []model.Entry {
	return append([]model.Entry(nil), x.entries...)
}

// Entry returns the corpus entry at pos.
func (x *Index) Entry(pos int) (model.Entry, bool) {
	if pos < 0 || pos >= len(x.entries) {
		return model.Entry{}, false
	}
	return x.entries[pos], true
}

// BuildDuration reports how long Build took.
func (x *Index) BuildDuration() time.Duration {
	return x.built
}

// Search returns the k entries most similar to query, by descending cosine
// similarity with ties broken by smaller position. An empty index yields no
// hits.
func (x *Index) Search(ctx context.Context, query string, k int) ([]model.Hit, error) {
	if k <= 0 {
		k = DefaultK
	}
	n := x.col.Count()
	if n == 0 {
		return nil, nil
	}

	vec, err := embed(ctx, x.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// chromem orders by similarity only, so the whole collection is ranked
	// here to keep ties deterministic.
	results, err := x.col.QueryEmbedding(ctx, vec, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	hits := make([]model.Hit, 0, len(results))
	for _, r := range results {
		pos, err := strconv.Atoi(r.ID)
		if err != nil {
			return nil, fmt.Errorf("bad document id %q: %w", r.ID, err)
		}
		hits = append(hits, model.Hit{Pos: pos, Score: float64(r.Similarity)})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Pos < hits[j].Pos
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Texts resolves hits to their entry texts in hit order.
func (x *Index) Texts(hits []model.Hit) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		if e, ok := x.Entry(h.Pos); ok {
			out = append(out, e.Text)
		}
	}
	return out
}

// embed returns the normalised embedding of text, rejecting zero vectors.
func embed(ctx context.Context, embedder embedding.Embedder, text string) (embedding.Vector, error) {
	vec, err := embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	for _, x := range vec {
		if x != 0 {
			return embedding.Normalize(vec), nil
		}
	}
	return nil, ErrZeroVector
}
