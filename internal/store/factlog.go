package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rcliao/alphamind/internal/model"
)

// FactStore implements Store on a newline-delimited log file.
type FactStore struct {
	path string

	mu    sync.RWMutex
	facts []model.Fact
	file  *os.File
	lex   *lexicon
}

var _ Store = (*FactStore)(nil)

// Open loads the fact log at path. A missing log yields an empty store; the
// file is created on the first Append.
func Open(ctx context.Context, path string) (*FactStore, error) {
	lines, err := readLog(path)
	if err != nil {
		return nil, err
	}

	lex, err := newLexicon(ctx)
	if err != nil {
		return nil, fmt.Errorf("open lexicon: %w", err)
	}

	s := &FactStore{path: path, lex: lex}
	for _, line := range lines {
		f := model.Fact{Seq: len(s.facts), Text: line}
		if err := lex.insert(ctx, f); err != nil {
			lex.close()
			return nil, fmt.Errorf("index fact %d: %w", f.Seq, err)
		}
		s.facts = append(s.facts, f)
	}
	return s, nil
}

func readLog(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open fact log: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(strings.ToValidUTF8(sc.Text(), ""))
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read fact log: %w", err)
	}
	return lines, nil
}

// Path returns the log file location.
func (s *FactStore) Path() string {
	return s.path
}

// Facts returns a copy of all facts in teaching order.
func (s *FactStore) Facts() []model.Fact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Fact, len(s.facts))
	copy(out, s.facts)
	return out
}

// Len returns the number of facts.
func (s *FactStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.facts)
}

// Append validates text, writes it to the log and fsyncs before the fact
// becomes visible in memory.
func (s *FactStore) Append(ctx context.Context, text string) (model.Fact, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Fact{}, ErrEmptyFact
	}
	if strings.ContainsAny(text, "\r\n") {
		return model.Fact{}, ErrMultilineFact
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		if dir := filepath.Dir(s.path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return model.Fact{}, fmt.Errorf("create fact dir: %w", err)
			}
		}
		f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return model.Fact{}, fmt.Errorf("open fact log: %w", err)
		}
		s.file = f
	}

	if _, err := s.file.WriteString(text + "\n"); err != nil {
		return model.Fact{}, fmt.Errorf("write fact: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return model.Fact{}, fmt.Errorf("sync fact log: %w", err)
	}

	fact := model.Fact{Seq: len(s.facts), Text: text}
	s.facts = append(s.facts, fact)
	if err := s.lex.insert(ctx, fact); err != nil {
		return fact, fmt.Errorf("index fact: %w", err)
	}
	return fact, nil
}

// Close closes the log file and the lexicon.
func (s *FactStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.file != nil {
		errs = append(errs, s.file.Close())
		s.file = nil
	}
	if s.lex != nil {
		errs = append(errs, s.lex.close())
		s.lex = nil
	}
	return errors.Join(errs...)
}
