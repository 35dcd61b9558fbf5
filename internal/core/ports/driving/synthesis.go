package driving

import (
	"context"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
)

// SynthesisService answers a query from several sources at once.
type SynthesisService interface {
	Synthesize(ctx context.Context, query, ownerID string, opts domain.SynthesisOptions) (*domain.SynthesizedAnswer, error)
}
