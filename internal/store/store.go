// Package store provides the persistent fact memory: an append-only flat log
// mirrored into an in-memory SQLite lexicon for token lookups.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/alphamind/internal/model"
)

var (
	// ErrEmptyFact is returned when a fact is empty after trimming.
	ErrEmptyFact = errors.New("fact is empty")
	// ErrMultilineFact is returned when a fact spans more than one line.
	ErrMultilineFact = errors.New("fact must be a single line")
)

// Store defines the fact memory interface.
type Store interface {
	// Facts returns a snapshot of all facts in teaching order.
	Facts() []model.Fact

	// Append persists a new fact and returns it.
	Append(ctx context.Context, text string) (model.Fact, error)

	// Overlap returns facts sharing at least one token with query, in
	// teaching order.
	Overlap(ctx context.Context, query string) ([]model.Fact, error)

	// Stats reports fact, token and log size counts.
	Stats(ctx context.Context) (*Stats, error)

	// Export returns every fact for serialisation.
	Export(ctx context.Context) ([]model.Fact, error)

	// Import appends facts in order and returns how many were stored.
	Import(ctx context.Context, facts []model.Fact) (int, error)

	// Close releases the log handle and the lexicon.
	Close() error
}
