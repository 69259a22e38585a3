package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/alphamind/internal/model"
)

// Tokens splits text on whitespace and lowercases each token. Duplicates are
// removed, first occurrence wins.
func Tokens(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	seen := make(map[string]bool, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// Overlap finds facts that share a whole token with query, compared
// case-insensitively, in teaching order.
func (s *FactStore) Overlap(ctx context.Context, query string) ([]model.Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lex == nil {
		return nil, fmt.Errorf("store closed")
	}

	facts, err := s.lex.matching(ctx, Tokens(query))
	if err != nil {
		return nil, fmt.Errorf("overlap query: %w", err)
	}
	return facts, nil
}
