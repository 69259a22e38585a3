// Package retrieval turns a user query into model context by consulting user
// facts before falling back to semantic search over the corpus.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rcliao/alphamind/internal/entity"
	"github.com/rcliao/alphamind/internal/index"
	"github.com/rcliao/alphamind/internal/model"
)

// Stage names the retrieval step that produced a context.
type Stage string

const (
	StageNone     Stage = "none"
	StageEntity   Stage = "entity"
	StageLexical  Stage = "lexical"
	StageSemantic Stage = "semantic"
)

// Separators used when joining retrieved texts.
const (
	FactSeparator  = "\n"
	ChunkSeparator = "\n---\n"
)

// FactSource is the read side of the fact store.
type FactSource interface {
	Facts() []model.Fact
	Overlap(ctx context.Context, query string) ([]model.Fact, error)
}

// Searcher is the read side of the embedding index.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]model.Hit, error)
	Texts(hits []model.Hit) []string
}

// Result is the outcome of one retrieval.
type Result struct {
	Context string       `json:"context"`
	Stage   Stage        `json:"stage"`
	Facts   []model.Fact `json:"facts,omitempty"`
	Hits    []model.Hit  `json:"hits,omitempty"`
}

// Engine runs the fact-first retrieval chain.
type Engine struct {
	facts     FactSource
	index     Searcher
	extractor entity.Extractor
	k         int
	log       *slog.Logger
}

// New creates an engine. A nil extractor uses entity.Default and k <= 0 uses
// index.DefaultK.
func New(facts FactSource, idx Searcher, extractor entity.Extractor, k int) *Engine {
	if extractor == nil {
		extractor = entity.Default
	}
	if k <= 0 {
		k = index.DefaultK
	}
	return &Engine{
		facts:     facts,
		index:     idx,
		extractor: extractor,
		k:         k,
		log:       slog.Default().With("component", "retrieval"),
	}
}

// Retrieve returns the context for query from the first stage that matches:
// facts naming an entity in the query, then facts sharing a token with the
// query, then the k nearest corpus entries.
func (e *Engine) Retrieve(ctx context.Context, query string) (Result, error) {
	facts := e.facts.Facts()

	if matched := e.entityMatches(query, facts); len(matched) > 0 {
		e.log.Debug("entity match", "facts", len(matched))
		return factResult(StageEntity, matched), nil
	}

	overlap, err := e.facts.Overlap(ctx, query)
	if err != nil {
		return Result{}, fmt.Errorf("lexical stage: %w", err)
	}
	if len(overlap) > 0 {
		e.log.Debug("lexical match", "facts", len(overlap))
		return factResult(StageLexical, overlap), nil
	}

	if e.index == nil {
		return Result{Stage: StageNone}, nil
	}
	hits, err := e.index.Search(ctx, query, e.k)
	if err != nil {
		return Result{}, fmt.Errorf("semantic stage: %w", err)
	}
	if len(hits) == 0 {
		return Result{Stage: StageNone}, nil
	}
	e.log.Debug("semantic match", "hits", len(hits))
	return Result{
		Context: strings.Join(e.index.Texts(hits), ChunkSeparator),
		Stage:   StageSemantic,
		Hits:    hits,
	}, nil
}

// entityMatches returns, in memory order, each fact containing a name that
// appears case-insensitively in query.
func (e *Engine) entityMatches(query string, facts []model.Fact) []model.Fact {
	lq := strings.ToLower(query)
	var out []model.Fact
	for _, f := range facts {
		for _, name := range e.extractor.Names(f.Text) {
			if strings.Contains(lq, strings.ToLower(name)) {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

func factResult(stage Stage, facts []model.Fact) Result {
	texts := make([]string, len(facts))
	for i, f := range facts {
		texts[i] = f.Text
	}
	return Result{
		Context: strings.Join(texts, FactSeparator),
		Stage:   stage,
		Facts:   facts,
	}
}

// ResolvePronouns replaces pronouns in query with the most recent name found
// in the session's bot replies or, failing that, in the facts.
func (e *Engine) ResolvePronouns(query string, turns []model.Turn) string {
	return ResolvePronouns(query, turns, e.facts.Facts(), e.extractor)
}
