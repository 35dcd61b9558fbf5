// Package chunker splits source text into overlapping chunks at ingestion.
package chunker

import (
	"context"
	"unicode"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driven"
)

var _ driven.Chunker = (*Processor)(nil)

// Default sizes, in runes.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Processor cuts text into chunks of at most chunkSize runes, each
// repeating the last overlap runes of the one before. A cut is moved back
// to the nearest line break or space in the second half of the window, so
// words are only split when a window has no whitespace there.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures a Processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size; non-positive values are ignored.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap; negative values are ignored.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a Processor. An overlap not smaller than the chunk size is
// cut to a quarter of it.
func New(opts ...Option) *Processor {
	p := &Processor{chunkSize: DefaultChunkSize, overlap: DefaultChunkOverlap}
	for _, opt := range opts {
		opt(p)
	}
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process returns the chunks of content numbered from 0. The last chunk
// always ends at the end of content, and empty content has no chunks.
func (p *Processor) Process(ctx context.Context, sourceID, content string) ([]domain.Chunk, error) {
	if content == "" {
		return nil, nil
	}

	runes := []rune(content)
	var chunks []domain.Chunk
	for start := 0; ; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := p.cut(runes, start)
		chunks = append(chunks, domain.Chunk{
			ID:       uuid.New().String(),
			SourceID: sourceID,
			Index:    len(chunks),
			Content:  string(runes[start:end]),
		})
		if end == len(runes) {
			return chunks, nil
		}
		start = max(end-p.overlap, start+1)
	}
}

// cut returns the end of the chunk starting at start.
func (p *Processor) cut(runes []rune, start int) int {
	end := start + p.chunkSize
	if end >= len(runes) {
		return len(runes)
	}

	floor := start + p.chunkSize/2
	space := -1
	for i := end; i > floor; i-- {
		switch r := runes[i-1]; {
		case r == '\n':
			return i
		case space < 0 && unicode.IsSpace(r):
			space = i
		}
	}
	if space > 0 {
		return space
	}
	return end
}
