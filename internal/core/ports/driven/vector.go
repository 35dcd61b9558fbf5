package driven

import "context"

// VectorSearcher runs similarity queries scoped to one source.
// Implementations may fail on quota or availability; callers handle
// failures per call.
type VectorSearcher interface {
	// QuerySimilar returns up to topK chunks of sourceID most similar to queryText.
	QuerySimilar(ctx context.Context, queryText, ownerID, sourceID string, topK int) ([]VectorHit, error)
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// Content is the chunk text.
	Content string

	// RelevanceScore is the similarity score (0-1).
	RelevanceScore float64

	// ChunkIndex is the ordinal position of the chunk within its source.
	ChunkIndex int
}

// ChunkSampler is implemented by searchers that can list a source's chunks
// without ranking them against a query.
type ChunkSampler interface {
	// SampleChunks returns up to limit chunks of sourceID spread evenly over
	// the source, ordered by chunk index. RelevanceScore is 0. A limit of
	// zero or less returns every chunk.
	SampleChunks(ctx context.Context, ownerID, sourceID string, limit int) ([]VectorHit, error)
}
