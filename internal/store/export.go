package store

import (
	"context"
	"fmt"

	"github.com/rcliao/alphamind/internal/model"
)

// Export returns all facts in teaching order.
func (s *FactStore) Export(ctx context.Context) ([]model.Fact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Facts(), nil
}

// Import appends facts from an export in the order given. Sequence numbers in
// the input are ignored; imported facts are numbered after existing ones.
func (s *FactStore) Import(ctx context.Context, facts []model.Fact) (int, error) {
	imported := 0
	for _, f := range facts {
		if err := ctx.Err(); err != nil {
			return imported, err
		}
		if _, err := s.Append(ctx, f.Text); err != nil {
			return imported, fmt.Errorf("import fact %d: %w", f.Seq, err)
		}
		imported++
	}
	return imported, nil
}
