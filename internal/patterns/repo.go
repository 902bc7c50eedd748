package patterns

import (
	"context"

	"github.com/vitalstack/vitals-engine/internal/models"
)

// StoreFunc adapts a function to the Store interface.
type StoreFunc func(ctx context.Context, patterns []models.IssuePattern) error

// StorePatterns implements Store.
func (f StoreFunc) StorePatterns(ctx context.Context, patterns []models.IssuePattern) error {
	return f(ctx, patterns)
}
