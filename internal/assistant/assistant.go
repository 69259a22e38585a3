// Package assistant ties the fact store, corpus index, retrieval engine and
// language model together and answers one user input at a time.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rcliao/alphamind/internal/embedding"
	"github.com/rcliao/alphamind/internal/entity"
	"github.com/rcliao/alphamind/internal/index"
	"github.com/rcliao/alphamind/internal/llm"
	"github.com/rcliao/alphamind/internal/loader"
	"github.com/rcliao/alphamind/internal/model"
	"github.com/rcliao/alphamind/internal/prompt"
	"github.com/rcliao/alphamind/internal/retrieval"
	"github.com/rcliao/alphamind/internal/session"
	"github.com/rcliao/alphamind/internal/store"
)

// Messages shown for teach commands.
const (
	TeachAck   = "Got it! I'll remember: %s"
	TeachRetry = "Please provide a fact after 'remember that'"
)

// Options configures an Assistant.
type Options struct {
	DataDir   string
	Loader    loader.Options
	TopK      int
	MaxTokens int
	Extractor entity.Extractor
	Prompt    *prompt.Builder
	Logger    *slog.Logger
}

// Assistant owns the corpus index and answers inputs against a caller-owned
// session. It is safe for concurrent use.
type Assistant struct {
	opts     Options
	facts    store.Store
	embedder embedding.Embedder
	gen      llm.Generator
	log      *slog.Logger

	mu     sync.RWMutex
	index  *index.Index
	engine *retrieval.Engine
	chunks int
	built  time.Time
}

// ReplyKind classifies a Reply.
type ReplyKind string

const (
	KindAnswer ReplyKind = "answer"
	KindTeach  ReplyKind = "teach"
	KindRetry  ReplyKind = "retry"
)

// Reply is the outcome of one input.
type Reply struct {
	Text     string          `json:"response"`
	Kind     ReplyKind       `json:"kind"`
	Stage    retrieval.Stage `json:"stage,omitempty"`
	Resolved string          `json:"resolved_query,omitempty"`
	Fact     *model.Fact     `json:"fact,omitempty"`
	// Failed is set when the model call failed and Text is an error reply.
	Failed bool `json:"failed,omitempty"`
}

// New builds the corpus index from the documents under opts.DataDir and the
// facts in fs. An embedding failure is returned as an error. gen is wrapped
// in llm.Guard so blank output is always a generation failure.
func New(ctx context.Context, opts Options, fs store.Store, emb embedding.Embedder, gen llm.Generator) (*Assistant, error) {
	if opts.TopK <= 0 {
		opts.TopK = index.DefaultK
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 200
	}
	if opts.Extractor == nil {
		opts.Extractor = entity.Default
	}
	if opts.Prompt == nil {
		opts.Prompt = prompt.Default()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	opts.Loader.Logger = log

	a := &Assistant{
		opts:     opts,
		facts:    fs,
		embedder: emb,
		gen:      llm.Guard(gen, 0),
		log:      log.With("component", "assistant"),
	}
	if err := a.Rebuild(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// Rebuild reloads documents and facts and replaces the index. On failure the
// previous index stays in place.
func (a *Assistant) Rebuild(ctx context.Context) error {
	chunks, err := loader.Load(a.opts.DataDir, a.opts.Loader)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	entries := model.Corpus(chunks, a.facts.Facts())

	idx, err := index.Build(ctx, entries, a.embedder)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	engine := retrieval.New(a.facts, idx, a.opts.Extractor, a.opts.TopK)

	a.mu.Lock()
	a.index = idx
	a.engine = engine
	a.chunks = len(chunks)
	a.built = time.Now()
	a.mu.Unlock()

	a.log.Info("index ready", "chunks", len(chunks), "entries", idx.Size(), "duration", idx.BuildDuration())
	return nil
}

func (a *Assistant) current() (*retrieval.Engine, *index.Index) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.engine, a.index
}

// Facts returns the fact store.
func (a *Assistant) Facts() store.Store { return a.facts }

// AssistantName is the persona name used in replies.
func (a *Assistant) AssistantName() string { return a.opts.Prompt.Assistant() }

// Teach stores fact after trimming. Empty input returns ErrEmptyFact.
func (a *Assistant) Teach(ctx context.Context, fact string) (model.Fact, error) {
	f, err := a.facts.Append(ctx, fact)
	if err != nil {
		return f, err
	}
	a.log.Info("fact learned", "seq", f.Seq)
	return f, nil
}

// Retrieve resolves pronouns in query against turns and runs retrieval.
func (a *Assistant) Retrieve(ctx context.Context, query string, turns []model.Turn) (string, retrieval.Result, error) {
	engine, _ := a.current()
	resolved := engine.ResolvePronouns(query, turns)
	res, err := engine.Retrieve(ctx, resolved)
	return resolved, res, err
}

// Handle processes one user input within sess. Teach commands store a fact
// and are not recorded as turns. Everything else is answered by the model;
// a model failure becomes an "[ERROR] ..." reply that is recorded like any
// other turn. The returned error covers retrieval and persistence failures.
func (a *Assistant) Handle(ctx context.Context, sess *session.Session, input string) (Reply, error) {
	fact, isTeach, err := ParseTeach(input)
	if isTeach {
		if errors.Is(err, ErrEmptyFact) {
			return Reply{Text: TeachRetry, Kind: KindRetry}, nil
		}
		f, err := a.Teach(ctx, fact)
		if errors.Is(err, store.ErrEmptyFact) || errors.Is(err, store.ErrMultilineFact) {
			return Reply{Text: TeachRetry, Kind: KindRetry}, nil
		}
		if err != nil {
			return Reply{}, fmt.Errorf("teach: %w", err)
		}
		return Reply{Text: fmt.Sprintf(TeachAck, f.Text), Kind: KindTeach, Fact: &f}, nil
	}

	resolved, res, err := a.Retrieve(ctx, input, sess.Turns())
	if err != nil {
		return Reply{}, fmt.Errorf("retrieve: %w", err)
	}
	a.log.Debug("retrieved", "session", sess.ID(), "stage", res.Stage, "resolved", resolved)

	p, err := a.opts.Prompt.Build(sess.FormatHistory(), res.Context, resolved)
	if err != nil {
		return Reply{}, err
	}

	reply := Reply{Kind: KindAnswer, Stage: res.Stage, Resolved: resolved}
	out, err := a.gen.Generate(ctx, p, a.opts.MaxTokens)
	if err != nil {
		a.log.Warn("generation failed", "session", sess.ID(), "error", err)
		reply.Text = llm.ReplyFor(err)
		reply.Failed = true
	} else {
		reply.Text = out
	}

	if err := sess.RecordTurn(input, reply.Text); err != nil {
		return reply, fmt.Errorf("record turn: %w", err)
	}
	return reply, nil
}

// Stats describes the loaded corpus.
type Stats struct {
	DataDir       string        `json:"data_dir"`
	Chunks        int           `json:"chunks"`
	IndexedFacts  int           `json:"indexed_facts"`
	IndexSize     int           `json:"index_size"`
	Facts         *store.Stats  `json:"facts"`
	BuildDuration time.Duration `json:"build_duration_ns"`
	BuiltAt       time.Time     `json:"built_at"`
	Dims          int           `json:"embedding_dims"`
}

// Stats reports corpus, index and fact statistics.
func (a *Assistant) Stats(ctx context.Context) (*Stats, error) {
	a.mu.RLock()
	st := &Stats{
		DataDir:       a.opts.DataDir,
		Chunks:        a.chunks,
		IndexSize:     a.index.Size(),
		BuildDuration: a.index.BuildDuration(),
		BuiltAt:       a.built,
		Dims:          a.embedder.Dims(),
	}
	st.IndexedFacts = st.IndexSize - st.Chunks
	a.mu.RUnlock()

	fs, err := a.facts.Stats(ctx)
	if err != nil {
		return st, fmt.Errorf("fact stats: %w", err)
	}
	st.Facts = fs
	return st, nil
}
