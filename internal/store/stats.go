package store

import (
	"context"
	"fmt"
	"os"
)

// Stats holds fact memory statistics.
type Stats struct {
	LogPath      string `json:"log_path"`
	LogSizeBytes int64  `json:"log_size_bytes"`
	Facts        int    `json:"facts"`
	Tokens       int    `json:"distinct_tokens"`
}

// Stats returns fact memory statistics.
func (s *FactStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &Stats{LogPath: s.path}
	if info, err := os.Stat(s.path); err == nil {
		st.LogSizeBytes = info.Size()
	}
	if s.lex == nil {
		return st, fmt.Errorf("store closed")
	}

	facts, tokens, err := s.lex.counts(ctx)
	if err != nil {
		return st, fmt.Errorf("count facts: %w", err)
	}
	st.Facts = facts
	st.Tokens = tokens
	return st, nil
}
