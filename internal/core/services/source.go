package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-synth/internal/logger"
	"github.com/custodia-labs/sercha-synth/internal/ratelimit"
)

// Ensure SourceService implements the interface.
var _ driving.SourceService = (*SourceService)(nil)

// embedBatchSize bounds the texts sent per embedding request.
const embedBatchSize = 32

var sourceLog = logger.Component("source")

// SourceService ingests texts as sources: register pending, chunk, embed,
// store, then mark completed. Search sees the source only once completed.
type SourceService struct {
	registry driven.SourceRegistry
	writer   driven.SourceWriter
	chunker  driven.Chunker
	embedder driven.EmbeddingService
	invoker  *ratelimit.Invoker

	// normalisers by file type.
	normalisers map[string]driven.Normaliser
}

// NewSourceService creates a new source service. embedder may be nil, in
// which case chunks are stored without vectors and ranked lexically.
func NewSourceService(
	registry driven.SourceRegistry,
	writer driven.SourceWriter,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	invokers *ratelimit.Registry,
) *SourceService {
	return &SourceService{
		registry: registry,
		writer:   writer,
		chunker:  chunker,
		embedder: embedder,
		invoker:  invokers.For(ratelimit.Embedding),
	}
}

// SetNormalisers registers normalisers by the file types they handle. Content
// of other types is indexed as given.
func (s *SourceService) SetNormalisers(normalisers ...driven.Normaliser) {
	if s.normalisers == nil {
		s.normalisers = make(map[string]driven.Normaliser)
	}
	for _, n := range normalisers {
		for _, ft := range n.FileTypes() {
			s.normalisers[ft] = n
		}
	}
}

// Add chunks, embeds and stores a new source.
func (s *SourceService) Add(ctx context.Context, req driving.AddSourceRequest) (*domain.Source, error) {
	if req.OwnerID == "" || strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: owner and name are required", domain.ErrInvalidInput)
	}
	if req.Kind != "" && !req.Kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown source kind %q", domain.ErrInvalidInput, req.Kind)
	}

	source := domain.Source{
		ID:        uuid.New().String(),
		OwnerID:   req.OwnerID,
		Name:      req.Name,
		Type:      req.Type,
		Kind:      req.Kind,
		Status:    domain.SourceStatusPending,
	}
	source.Kind = source.EffectiveKind()
	source.Type = source.FileType()

	content := req.Content
	if n, ok := s.normalisers[source.Type]; ok {
		normalised, err := n.Normalise(ctx, content)
		if err != nil {
			return nil, fmt.Errorf("%w: normalise %s: %v", domain.ErrInvalidInput, source.Name, err)
		}
		content = normalised
	}
	words := len(strings.Fields(content))
	source.WordCount = &words

	if err := s.writer.SaveSource(ctx, source, content); err != nil {
		return nil, fmt.Errorf("register source: %w", err)
	}
	sourceLog.Debug("registered %s (%s, %d words)", source.ID, source.Name, words)

	if err := s.index(ctx, source.ID, content); err != nil {
		sourceLog.Warn("indexing %s failed: %v", source.ID, err)
		// The context may be gone; record the failure regardless.
		if statusErr := s.writer.SetStatus(context.WithoutCancel(ctx), source.ID, domain.SourceStatusFailed); statusErr != nil {
			sourceLog.Error("marking %s failed: %v", source.ID, statusErr)
		}
		return nil, fmt.Errorf("index source %s: %w", source.Name, err)
	}

	if err := s.writer.SetStatus(ctx, source.ID, domain.SourceStatusCompleted); err != nil {
		return nil, fmt.Errorf("complete source: %w", err)
	}
	source.Status = domain.SourceStatusCompleted
	return &source, nil
}

// index chunks and embeds content and stores the chunks.
func (s *SourceService) index(ctx context.Context, sourceID, content string) error {
	chunks, err := s.chunker.Process(ctx, sourceID, content)
	if err != nil {
		return fmt.Errorf("chunk: %w", err)
	}

	if s.embedder != nil {
		for start := 0; start < len(chunks); start += embedBatchSize {
			batch := chunks[start:min(start+embedBatchSize, len(chunks))]
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Content
			}

			vectors, err := ratelimit.Invoke(ctx, s.invoker, func(ctx context.Context) ([][]float32, error) {
				return s.embedder.EmbedBatch(ctx, texts)
			})
			if err != nil {
				return fmt.Errorf("embed: %w", err)
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("embed: got %d vectors for %d chunks", len(vectors), len(batch))
			}
			for i := range batch {
				batch[i].Embedding = vectors[i]
			}
		}
	}

	if err := s.writer.SaveChunks(ctx, sourceID, chunks); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}
	sourceLog.Debug("indexed %s: %d chunks", sourceID, len(chunks))
	return nil
}

// List returns all sources of the owner.
func (s *SourceService) List(ctx context.Context, ownerID string) ([]domain.Source, error) {
	sources, err := s.registry.ListSources(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return sources, nil
}

// Remove deletes a source and its chunks.
func (s *SourceService) Remove(ctx context.Context, id, ownerID string) error {
	if err := s.writer.DeleteSource(ctx, id, ownerID); err != nil {
		return fmt.Errorf("remove source: %w", err)
	}
	return nil
}
