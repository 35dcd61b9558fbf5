package driving

import (
	"context"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
)

// ComparisonService compares two documents with a language model.
type ComparisonService interface {
	// Compare resolves both documents by id or display name and compares them.
	// Documents without content yield a pending result, not an error.
	Compare(ctx context.Context, doc1, doc2, ownerID string) (*domain.ComparisonResult, error)
}
