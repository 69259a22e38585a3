package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rcliao/alphamind/internal/assistant"
	"github.com/rcliao/alphamind/internal/session"
)

type scripted struct {
	inputs  []string
	replies map[string]assistant.Reply
	err     error
}

func (s *scripted) AssistantName() string { return "AlphaMind" }

func (s *scripted) Handle(_ context.Context, _ *session.Session, input string) (assistant.Reply, error) {
	s.inputs = append(s.inputs, input)
	if s.err != nil {
		return assistant.Reply{}, s.err
	}
	if r, ok := s.replies[input]; ok {
		return r, nil
	}
	return assistant.Reply{Text: "answer to " + input, Kind: assistant.KindAnswer}, nil
}

func TestChatLoop(t *testing.T) {
	r := &scripted{replies: map[string]assistant.Reply{
		"remember that": {Text: assistant.TeachRetry, Kind: assistant.KindRetry},
	}}
	in := strings.NewReader("hello\n\n  remember that \nEXIT\nnever read\n")
	var out bytes.Buffer

	if err := chatLoop(context.Background(), r, session.Memory(1), in, &out, false); err != nil {
		t.Fatalf("chatLoop: %v", err)
	}

	if len(r.inputs) != 2 {
		t.Fatalf("handled %d inputs, want 2: %q", len(r.inputs), r.inputs)
	}
	want := "AlphaMind: answer to hello\n" + assistant.TeachRetry + "\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestChatLoop_Interactive(t *testing.T) {
	r := &scripted{}
	var out bytes.Buffer
	if err := chatLoop(context.Background(), r, session.Memory(1), strings.NewReader("exit\n"), &out, true); err != nil {
		t.Fatalf("chatLoop: %v", err)
	}
	if !strings.HasPrefix(out.String(), "AlphaMind is ready.") {
		t.Errorf("missing banner: %q", out.String())
	}
	if !strings.Contains(out.String(), "You: ") {
		t.Errorf("missing prompt: %q", out.String())
	}
}

func TestChatLoop_ContinuesAfterError(t *testing.T) {
	r := &scripted{err: errors.New("index unavailable")}
	var out bytes.Buffer
	if err := chatLoop(context.Background(), r, session.Memory(1), strings.NewReader("a\nb\n"), &out, false); err != nil {
		t.Fatalf("chatLoop: %v", err)
	}
	if len(r.inputs) != 2 {
		t.Fatalf("handled %d inputs, want 2", len(r.inputs))
	}
	if got := strings.Count(out.String(), "[ERROR]"); got != 2 {
		t.Errorf("error lines = %d, want 2: %q", got, out.String())
	}
}
