package driving

import (
	"context"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
)

// SourceSearchService fans a query out across an owner's sources.
type SourceSearchService interface {
	// Search queries every completed source of the owner and returns the
	// merged, deduplicated and ranked hits. A failing source is reported in
	// the outcome's Failures and never fails the search.
	Search(ctx context.Context, query, ownerID string, opts domain.SearchOptions) (*domain.SearchOutcome, error)
}
