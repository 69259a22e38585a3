package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultBuild(t *testing.T) {
	b := Default()
	got, err := b.Build("User: hi\nBot: hello", "Library opens at 9", "When does the library open?")
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	for _, want := range []string{
		"college assistant at Graphic Era Hill University, Bhimtal Campus.",
		"You are AlphaMind",
		"Conversation History:\nUser: hi\nBot: hello\n\nContext:\nLibrary opens at 9\n\n",
		"User: When does the library open?\nAnswer:",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
	if !strings.HasSuffix(got, "Answer:") {
		t.Error("expected prompt to end with Answer:")
	}
}

func TestCustomTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.tmpl")
	os.WriteFile(path, []byte("{{.Assistant}}@{{.Institution}}|{{.Context}}|{{.Query}}"), 0o644)

	b, err := FromFile(path, "Test College", "Bot")
	if err != nil {
		t.Fatalf("from file: %v", err)
	}
	got, err := b.Build("", "ctx", "q")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Bot@Test College|ctx|q" {
		t.Errorf("unexpected render %q", got)
	}
	if b.Assistant() != "Bot" {
		t.Errorf("unexpected assistant %q", b.Assistant())
	}
}

func TestBadTemplate(t *testing.T) {
	if _, err := New("{{.Query", "", ""); err == nil {
		t.Error("expected parse error")
	}
	b, err := New("{{.Nope}}", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Build("", "", ""); err == nil {
		t.Error("expected execution error for unknown field")
	}
}
