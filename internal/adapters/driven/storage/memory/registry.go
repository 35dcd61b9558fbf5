package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-synth/internal/adapters/driven/storage/rank"
	"github.com/custodia-labs/sercha-synth/internal/core/domain"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driven"
)

// Ensure Registry implements the interfaces.
var (
	_ driven.SourceRegistry = (*Registry)(nil)
	_ driven.TextStore      = (*Registry)(nil)
	_ driven.VectorSearcher = (*Registry)(nil)
	_ driven.ChunkSampler   = (*Registry)(nil)
	_ driven.SourceWriter   = (*Registry)(nil)
)

// previewRunes is the length of the excerpt returned by PreviewText.
const previewRunes = 4000

type entry struct {
	source  domain.Source
	content string
	chunks  []domain.Chunk
	seq     int
}

// Registry is an in-memory document registry. Queries are lexical unless
// an embedder is set, in which case chunks with vectors rank by cosine.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	seq      int
	embedder driven.EmbeddingService
}

// NewRegistry creates an empty registry. embedder may be nil.
func NewRegistry(embedder driven.EmbeddingService) *Registry {
	return &Registry{
		entries:  make(map[string]*entry),
		embedder: embedder,
	}
}

// ListSources returns every source of the owner in creation order.
func (r *Registry) ListSources(_ context.Context, ownerID string) ([]domain.Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owned := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.source.OwnerID == ownerID {
			owned = append(owned, e)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].seq < owned[j].seq })

	result := make([]domain.Source, len(owned))
	for i, e := range owned {
		result[i] = e.source
	}
	return result, nil
}

// GetSource resolves one source of the owner, or nil when absent.
func (r *Registry) GetSource(_ context.Context, id, ownerID string) (*domain.Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok || e.source.OwnerID != ownerID {
		return nil, nil
	}
	source := e.source
	return &source, nil
}

// PreviewText returns the leading excerpt of a source's text.
func (r *Registry) PreviewText(ctx context.Context, sourceID string) (string, error) {
	text, err := r.FullText(ctx, sourceID)
	if err != nil {
		return "", err
	}
	if runes := []rune(text); len(runes) > previewRunes {
		return string(runes[:previewRunes]), nil
	}
	return text, nil
}

// FullText returns the whole text of a source.
func (r *Registry) FullText(_ context.Context, sourceID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[sourceID]
	if !ok {
		return "", fmt.Errorf("source %s: %w", sourceID, domain.ErrNotFound)
	}
	return e.content, nil
}

// QuerySimilar ranks the chunks of one source of the owner against queryText.
func (r *Registry) QuerySimilar(
	ctx context.Context, queryText, ownerID, sourceID string, topK int,
) ([]driven.VectorHit, error) {
	var queryVec []float32
	if r.embedder != nil {
		vec, err := r.embedder.Embed(ctx, queryText)
		if err != nil {
			return nil, fmt.Errorf("embedding query: %w", err)
		}
		queryVec = vec
	}

	r.mu.RLock()
	e, ok := r.entries[sourceID]
	var chunks []domain.Chunk
	if ok && e.source.OwnerID == ownerID {
		chunks = e.chunks
	}
	r.mu.RUnlock()

	return rank.TopK(queryText, queryVec, chunks, topK), nil
}

// SampleChunks returns up to limit chunks spread over one source of the owner.
func (r *Registry) SampleChunks(_ context.Context, ownerID, sourceID string, limit int) ([]driven.VectorHit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[sourceID]
	if !ok || e.source.OwnerID != ownerID {
		return nil, nil
	}
	return rank.Spread(e.chunks, limit), nil
}

// SaveSource stores or updates a source together with its text.
func (r *Registry) SaveSource(_ context.Context, source domain.Source, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	source.UpdatedAt = now
	if existing, ok := r.entries[source.ID]; ok {
		source.CreatedAt = existing.source.CreatedAt
		existing.source = source
		existing.content = content
		return nil
	}
	if source.CreatedAt.IsZero() {
		source.CreatedAt = now
	}
	r.seq++
	r.entries[source.ID] = &entry{source: source, content: content, seq: r.seq}
	return nil
}

// SaveChunks replaces the chunks of a source.
func (r *Registry) SaveChunks(_ context.Context, sourceID string, chunks []domain.Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sourceID]
	if !ok {
		return fmt.Errorf("source %s: %w", sourceID, domain.ErrNotFound)
	}
	e.chunks = append([]domain.Chunk(nil), chunks...)
	sort.SliceStable(e.chunks, func(i, j int) bool { return e.chunks[i].Index < e.chunks[j].Index })
	return nil
}

// SetStatus updates the processing state of a source.
func (r *Registry) SetStatus(_ context.Context, id string, status domain.SourceStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("source %s: %w", id, domain.ErrNotFound)
	}
	e.source.Status = status
	e.source.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteSource removes a source of the owner and its chunks.
func (r *Registry) DeleteSource(_ context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.source.OwnerID != ownerID {
		return fmt.Errorf("source %s: %w", id, domain.ErrNotFound)
	}
	delete(r.entries, id)
	return nil
}
