package driving

import (
	"context"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driven"
)

// Completion is the reply of a routed chat call.
type Completion struct {
	Text string

	// Selection is the model that produced Text. When the first choice
	// failed and the other provider answered, it names the fallback.
	Selection domain.ModelSelection

	// FellBack is set when the reply came from the fallback provider.
	FellBack bool
}

// ModelRouter picks a live provider and model for a query.
type ModelRouter interface {
	// Select probes both providers and picks one by query complexity.
	Select(ctx context.Context, query string) (*domain.ModelSelection, error)

	// Complete selects a model, sends messages and falls back to the other
	// provider once on failure.
	Complete(ctx context.Context, query string, messages []driven.ChatMessage, opts driven.ChatOptions) (*Completion, error)
}

// QueryRouter decides which kinds of sources a query should search.
type QueryRouter interface {
	Classify(ctx context.Context, query, ownerID string) (*domain.RoutingDecision, error)
}
