package domain

// Chunk is one indexed slice of a source's text.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string `json:"id"`

	// SourceID is the source the chunk was cut from.
	SourceID string `json:"source_id"`

	// Index is the ordinal position of the chunk within its source.
	Index int `json:"index"`

	// Content is the chunk text.
	Content string `json:"content"`

	// Embedding is the chunk's vector; empty when no embedding service is configured.
	Embedding []float32 `json:"-"`
}

// HasEmbedding reports whether the chunk carries a vector.
func (c *Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}
