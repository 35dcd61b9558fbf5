package driving

import (
	"context"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
)

// AddSourceRequest describes a text to ingest as a new source.
type AddSourceRequest struct {
	OwnerID string
	Name    string

	// Type is the file type; derived from Name when empty.
	Type string

	Kind    domain.SourceKind
	Content string
}

// SourceService manages the sources that queries run against.
type SourceService interface {
	// Add chunks, embeds and stores a new source. The source is registered
	// as pending first and marked completed or failed when indexing ends.
	Add(ctx context.Context, req AddSourceRequest) (*domain.Source, error)

	// List returns all sources of the owner.
	List(ctx context.Context, ownerID string) ([]domain.Source, error)

	// Remove deletes a source and its indexed data.
	Remove(ctx context.Context, id, ownerID string) error
}
