// Package session keeps the short-term history of one conversation and
// appends each turn to a per-session log file.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/alphamind/internal/model"
)

const (
	// DefaultDepth is the number of recent turns rendered into prompts.
	DefaultDepth = 1
	// LogTimeFormat names session log files.
	LogTimeFormat = "2006-01-02_15-04-05"
)

// Session is one conversation. It is safe for concurrent use.
type Session struct {
	id      string
	depth   int
	started time.Time

	mu    sync.Mutex
	turns []model.Turn
	log   *os.File
	path  string
}

func newID(now time.Time) string {
	entropy := rand.New(rand.NewSource(now.UnixNano()))
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}

// New starts a session whose turns are appended to
// dir/chat_<timestamp>.txt. The directory is created if needed.
func New(dir string, depth int, now time.Time) (*Session, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chat dir: %w", err)
	}
	f, path, err := createLog(dir, now)
	if err != nil {
		return nil, err
	}
	s := Memory(depth)
	s.started = now
	s.id = newID(now)
	s.log = f
	s.path = path
	return s, nil
}

// createLog opens a fresh log file, adding a numeric suffix when another
// session already claimed the same second.
func createLog(dir string, now time.Time) (*os.File, string, error) {
	base := "chat_" + now.Format(LogTimeFormat)
	for i := 0; i < 1000; i++ {
		name := base + ".txt"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.txt", base, i)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("open chat log: %w", err)
		}
		return f, path, nil
	}
	return nil, "", fmt.Errorf("open chat log: too many sessions started at %s", now.Format(LogTimeFormat))
}

// Memory returns a session that is not backed by a log file.
func Memory(depth int) *Session {
	if depth <= 0 {
		depth = DefaultDepth
	}
	now := time.Now()
	return &Session{id: newID(now), depth: depth, started: now}
}

// ID returns the session's ULID.
func (s *Session) ID() string { return s.id }

// Depth returns how many turns FormatHistory renders.
func (s *Session) Depth() int { return s.depth }

// LogPath returns the log file path, empty for in-memory sessions.
func (s *Session) LogPath() string { return s.path }

// RecordTurn appends a turn to the history and the log. History is never
// trimmed, so antecedent lookups see the whole conversation. The turn is
// kept in memory even when the log write fails.
func (s *Session) RecordTurn(user, bot string) error {
	return s.recordTurnAt(user, bot, time.Now())
}

func (s *Session) recordTurnAt(user, bot string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = append(s.turns, model.Turn{User: user, Bot: bot, At: now})

	if s.log == nil {
		return nil
	}
	if _, err := fmt.Fprintf(s.log, "User: %s\nBot: %s\n\n", user, bot); err != nil {
		return fmt.Errorf("write chat log: %w", err)
	}
	return nil
}

// Turns returns a copy of the full history, oldest first.
func (s *Session) Turns() []model.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// FormatHistory renders the last Depth turns, oldest first.
func (s *Session) FormatHistory() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FormatTurns(s.turns, s.depth)
}

// FormatTurns renders the last depth turns as "User: ..\nBot: .." blocks
// joined by newlines.
func FormatTurns(turns []model.Turn, depth int) string {
	if depth < len(turns) {
		turns = turns[len(turns)-depth:]
	}
	blocks := make([]string, len(turns))
	for i, t := range turns {
		blocks[i] = "User: " + t.User + "\nBot: " + t.Bot
	}
	return strings.Join(blocks, "\n")
}

// Close closes the log file.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.log == nil {
		return nil
	}
	err := s.log.Close()
	s.log = nil
	return err
}
