package driven

import (
	"context"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
)

// SourceRegistry is the document registry. It is eventually consistent:
// a just-uploaded source may not yet report status completed.
type SourceRegistry interface {
	// ListSources returns every source of the owner in creation order.
	ListSources(ctx context.Context, ownerID string) ([]domain.Source, error)

	// GetSource resolves one source of the owner.
	// Returns nil and no error when the source does not exist.
	GetSource(ctx context.Context, id, ownerID string) (*domain.Source, error)
}

// TextStore gives raw text access for fallback paths.
type TextStore interface {
	// PreviewText returns a short leading excerpt of the source.
	PreviewText(ctx context.Context, sourceID string) (string, error)

	// FullText returns the whole extracted text of the source.
	FullText(ctx context.Context, sourceID string) (string, error)
}

// SourceWriter persists ingested sources and their chunks.
// Only the ingestion path writes; the query components read through
// SourceRegistry, TextStore and VectorSearcher.
type SourceWriter interface {
	// SaveSource stores or updates a source together with its extracted text.
	SaveSource(ctx context.Context, source domain.Source, content string) error

	// SaveChunks replaces the chunks of a source.
	SaveChunks(ctx context.Context, sourceID string, chunks []domain.Chunk) error

	// SetStatus updates the processing state of a source.
	SetStatus(ctx context.Context, id string, status domain.SourceStatus) error

	// DeleteSource removes a source of the owner and its chunks.
	// Returns domain.ErrNotFound when the source does not exist.
	DeleteSource(ctx context.Context, id, ownerID string) error
}
