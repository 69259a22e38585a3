package assistant

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rcliao/alphamind/internal/embedding"
	"github.com/rcliao/alphamind/internal/llm"
	"github.com/rcliao/alphamind/internal/loader"
	"github.com/rcliao/alphamind/internal/retrieval"
	"github.com/rcliao/alphamind/internal/session"
	"github.com/rcliao/alphamind/internal/store"
)

// recorder is a fake model that remembers the prompts it was given.
type recorder struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
}

func (r *recorder) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, prompt)
	return r.reply, r.err
}

func (r *recorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.prompts) == 0 {
		return ""
	}
	return r.prompts[len(r.prompts)-1]
}

type fixture struct {
	dir   string
	facts *store.FactStore
	gen   *recorder
	a     *Assistant
}

func newFixture(t *testing.T, docs map[string]string, gen *recorder) *fixture {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	data := filepath.Join(dir, "college_data")
	for name, content := range docs {
		path := filepath.Join(data, name)
		os.MkdirAll(filepath.Dir(path), 0o755)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	fs, err := store.Open(ctx, filepath.Join(dir, "memory.txt"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { fs.Close() })

	if gen == nil {
		gen = &recorder{reply: "ok"}
	}
	a, err := New(ctx, Options{DataDir: data, Loader: loader.DefaultOptions()},
		fs, embedding.NewHashEmbedder(128), llm.Guard(gen, time.Second))
	if err != nil {
		t.Fatalf("new assistant: %v", err)
	}
	return &fixture{dir: dir, facts: fs, gen: gen, a: a}
}

func TestNew_IndexMatchesCorpus(t *testing.T) {
	f := newFixture(t, map[string]string{
		"hostels.txt":   "Hostel A is for boys.\n\nHostel B is for girls.",
		"admin/fee.txt": "Fees are due in July.",
	}, nil)
	f.facts.Append(context.Background(), "The dean is Arun Singh")
	if err := f.a.Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}

	st, err := f.a.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Chunks != 3 || st.IndexSize != 4 || st.IndexedFacts != 1 {
		t.Errorf("unexpected stats %+v", st)
	}
	if st.Facts.Facts != 1 {
		t.Errorf("expected 1 fact, got %d", st.Facts.Facts)
	}
}

func TestNew_MissingCorpusStarts(t *testing.T) {
	ctx := context.Background()
	fs, err := store.Open(ctx, filepath.Join(t.TempDir(), "memory.txt"))
	if err != nil {
		t.Fatal(err)
	}
	defer fs.Close()

	a, err := New(ctx, Options{DataDir: filepath.Join(t.TempDir(), "missing")}, fs,
		embedding.NewHashEmbedder(16), llm.Guard(&recorder{reply: "hi"}, 0))
	if err != nil {
		t.Fatalf("expected start with empty corpus: %v", err)
	}
	reply, err := a.Handle(ctx, session.Memory(1), "anything?")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Stage != retrieval.StageNone || reply.Text != "hi" {
		t.Errorf("unexpected reply %+v", reply)
	}
}

type brokenEmbedder struct{}

func (brokenEmbedder) Embed(context.Context, string) (embedding.Vector, error) {
	return nil, errors.New("embedding service unreachable")
}
func (brokenEmbedder) Dims() int { return 1 }

func TestNew_EmbeddingFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	data := t.TempDir()
	os.WriteFile(filepath.Join(data, "a.txt"), []byte("text"), 0o644)
	fs, _ := store.Open(ctx, filepath.Join(t.TempDir(), "memory.txt"))
	defer fs.Close()

	if _, err := New(ctx, Options{DataDir: data}, fs, brokenEmbedder{}, llm.Guard(&recorder{}, 0)); err == nil {
		t.Fatal("expected embedding failure to abort startup")
	}
}

func TestHandle_TeachAndReload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	sess := session.Memory(1)

	r1, err := f.a.Handle(ctx, sess, "remember that X is true")
	if err != nil {
		t.Fatal(err)
	}
	if r1.Kind != KindTeach || r1.Text != "Got it! I'll remember: X is true" {
		t.Errorf("unexpected teach reply %+v", r1)
	}
	f.a.Handle(ctx, sess, "learn that Y is true")

	if len(sess.Turns()) != 0 {
		t.Errorf("teach commands should not be recorded as turns")
	}
	if len(f.gen.prompts) != 0 {
		t.Errorf("teach commands should not call the model")
	}

	f.facts.Close()
	reloaded, err := store.Open(ctx, filepath.Join(f.dir, "memory.txt"))
	if err != nil {
		t.Fatal(err)
	}
	defer reloaded.Close()
	facts := reloaded.Facts()
	if len(facts) != 2 || facts[0].Text != "X is true" || facts[1].Text != "Y is true" {
		t.Errorf("unexpected facts after reload %+v", facts)
	}
}

func TestHandle_TeachRejection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	sess := session.Memory(1)

	reply, err := f.a.Handle(ctx, sess, "remember that")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Kind != KindRetry || reply.Text != TeachRetry {
		t.Errorf("expected retry prompt, got %+v", reply)
	}
	if len(f.facts.Facts()) != 0 || len(sess.Turns()) != 0 {
		t.Error("rejected teach must not mutate state")
	}
}

func TestHandle_EntityFactInPrompt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{
		"staff.txt": "Dr. Arun Kumar heads physics.\n\nThe dean's office is in block A.",
	}, &recorder{reply: "He is the dean."})
	sess := session.Memory(1)

	f.a.Handle(ctx, sess, "remember that Dr. Arun Singh is the dean")
	reply, err := f.a.Handle(ctx, sess, "Who is Dr. Arun Singh?")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Stage != retrieval.StageEntity {
		t.Errorf("expected entity stage, got %s", reply.Stage)
	}
	if !strings.Contains(f.gen.last(), "Context:\nDr. Arun Singh is the dean\n") {
		t.Errorf("expected fact as context, prompt was:\n%s", f.gen.last())
	}
}

func TestHandle_PronounResolution(t *testing.T) {
	ctx := context.Background()
	gen := &recorder{reply: "Arun Singh is the dean."}
	f := newFixture(t, nil, gen)
	sess := session.Memory(1)

	if _, err := f.a.Handle(ctx, sess, "Who is Arun Singh?"); err != nil {
		t.Fatal(err)
	}
	reply, err := f.a.Handle(ctx, sess, "What does he teach?")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Resolved != "What does Arun Singh teach?" {
		t.Errorf("expected resolved query, got %q", reply.Resolved)
	}
	if !strings.Contains(gen.last(), "User: What does Arun Singh teach?\nAnswer:") {
		t.Errorf("expected resolved query in prompt:\n%s", gen.last())
	}
	// the raw input is what gets recorded
	turns := sess.Turns()
	if turns[len(turns)-1].User != "What does he teach?" {
		t.Errorf("expected raw input recorded, got %q", turns[len(turns)-1].User)
	}
}

func TestHandle_HistoryWindow(t *testing.T) {
	ctx := context.Background()
	gen := &recorder{reply: "answer"}
	f := newFixture(t, nil, gen)
	sess := session.Memory(1)

	for _, q := range []string{"first question", "second question", "third question"} {
		if _, err := f.a.Handle(ctx, sess, q); err != nil {
			t.Fatal(err)
		}
	}
	f.a.Handle(ctx, sess, "fourth question")

	p := gen.last()
	if !strings.Contains(p, "Conversation History:\nUser: third question\nBot: answer\n") {
		t.Errorf("expected only the last turn in history:\n%s", p)
	}
	if strings.Contains(p, "second question") {
		t.Errorf("history should hold only one turn:\n%s", p)
	}
}

func TestHandle_GenerationFailureKeepsGoing(t *testing.T) {
	ctx := context.Background()
	gen := &recorder{err: errors.New("exit status 1")}
	f := newFixture(t, map[string]string{"a.txt": "Library opens at 9"}, gen)

	sess, err := session.New(filepath.Join(f.dir, "chats"), 1, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	reply, err := f.a.Handle(ctx, sess, "When does the library open?")
	if err != nil {
		t.Fatalf("generation failure must not be an error: %v", err)
	}
	if !reply.Failed || !strings.HasPrefix(reply.Text, "[ERROR] ") {
		t.Errorf("expected in-band error reply, got %+v", reply)
	}

	gen.err = nil
	gen.reply = "It opens at 9."
	reply, err = f.a.Handle(ctx, sess, "And on Sunday?")
	if err != nil || reply.Text != "It opens at 9." {
		t.Errorf("expected next turn to succeed, got %+v, %v", reply, err)
	}

	sess.Close()
	data, _ := os.ReadFile(sess.LogPath())
	if !strings.Contains(string(data), "Bot: [ERROR] ") {
		t.Errorf("expected failed turn in log, got %q", string(data))
	}
	if len(sess.Turns()) != 2 {
		t.Errorf("expected both turns recorded, got %d", len(sess.Turns()))
	}
}

func TestHandle_BlankOutputFromUnguardedModel(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs, err := store.Open(ctx, filepath.Join(dir, "memory.txt"))
	if err != nil {
		t.Fatal(err)
	}
	defer fs.Close()

	gen := &recorder{reply: "   "}
	a, err := New(ctx, Options{DataDir: filepath.Join(dir, "college_data")}, fs, embedding.NewHashEmbedder(16), gen)
	if err != nil {
		t.Fatalf("new assistant: %v", err)
	}

	sess := session.Memory(1)
	reply, err := a.Handle(ctx, sess, "hello")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !reply.Failed || reply.Text != "[ERROR] Model returned empty response." {
		t.Errorf("expected empty-response error reply, got %+v", reply)
	}
	turns := sess.Turns()
	if len(turns) != 1 || turns[0].Bot != reply.Text {
		t.Errorf("expected the error reply recorded as the bot turn, got %+v", turns)
	}
}

func TestRebuild_PicksUpNewFacts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{"a.txt": "Library opens at 9"}, nil)
	before, _ := f.a.Stats(ctx)

	f.a.Teach(ctx, "Canteen closes at 10")
	mid, _ := f.a.Stats(ctx)
	if mid.IndexSize != before.IndexSize {
		t.Error("facts taught after startup must not be indexed until rebuild")
	}

	if err := f.a.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}
	after, _ := f.a.Stats(ctx)
	if after.IndexSize != before.IndexSize+1 {
		t.Errorf("expected index to grow by one, got %d -> %d", before.IndexSize, after.IndexSize)
	}
}
