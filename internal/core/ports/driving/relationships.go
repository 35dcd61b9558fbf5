package driving

import (
	"context"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
)

// RelationshipService discovers relationships between an owner's documents.
type RelationshipService interface {
	// Discover returns edges ordered by strength, strongest first.
	Discover(ctx context.Context, ownerID string, opts domain.DiscoveryOptions) ([]domain.RelationshipEdge, error)
}
