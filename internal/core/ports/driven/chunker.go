package driven

import (
	"context"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
)

// Chunker splits a source's text into indexed chunks at ingestion.
type Chunker interface {
	// Name returns the chunker identifier.
	Name() string

	// Process returns the chunks of content, numbered from 0.
	Process(ctx context.Context, sourceID, content string) ([]domain.Chunk, error)
}
