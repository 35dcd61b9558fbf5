package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driving"
)

// mockWriter implements driven.SourceWriter for testing.
type mockWriter struct {
	saved    map[string]domain.Source
	content  map[string]string
	chunks   map[string][]domain.Chunk
	statuses []domain.SourceStatus
	saveErr  error
	chunkErr error
	deleted  []string
}

func newMockWriter() *mockWriter {
	return &mockWriter{
		saved:   make(map[string]domain.Source),
		content: make(map[string]string),
		chunks:  make(map[string][]domain.Chunk),
	}
}

func (m *mockWriter) SaveSource(_ context.Context, source domain.Source, content string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved[source.ID] = source
	m.content[source.ID] = content
	return nil
}

func (m *mockWriter) SaveChunks(_ context.Context, sourceID string, chunks []domain.Chunk) error {
	if m.chunkErr != nil {
		return m.chunkErr
	}
	m.chunks[sourceID] = chunks
	return nil
}

func (m *mockWriter) SetStatus(_ context.Context, _ string, status domain.SourceStatus) error {
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *mockWriter) DeleteSource(_ context.Context, id, _ string) error {
	if id == "missing" {
		return domain.ErrNotFound
	}
	m.deleted = append(m.deleted, id)
	return nil
}

// wordChunker emits one chunk per word.
type wordChunker struct{}

func (wordChunker) Name() string { return "words" }

func (wordChunker) Process(_ context.Context, sourceID, content string) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for i, w := range strings.Fields(content) {
		chunks = append(chunks, domain.Chunk{ID: fmt.Sprintf("%s-%d", sourceID, i), SourceID: sourceID, Index: i, Content: w})
	}
	return chunks, nil
}

// mockEmbedder implements driven.EmbeddingService for testing.
type mockEmbedder struct {
	batches [][]string
	errs    []error
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batches = append(m.batches, texts)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return 1 }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

func TestSourceService_Add_IndexesAndCompletes(t *testing.T) {
	writer := newMockWriter()
	embedder := &mockEmbedder{}
	svc := NewSourceService(&mockRegistry{}, writer, wordChunker{}, embedder, testInvokers())

	src, err := svc.Add(context.Background(), driving.AddSourceRequest{
		OwnerID: testOwner,
		Name:    "Notes.MD",
		Content: "alpha beta gamma",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, src.ID)
	assert.Equal(t, domain.SourceStatusCompleted, src.Status)
	assert.Equal(t, domain.SourceKindDocument, src.Kind, "empty kind defaults to document")
	assert.Equal(t, "md", src.Type, "type derives from the name")
	require.NotNil(t, src.WordCount)
	assert.Equal(t, 3, *src.WordCount)

	assert.Equal(t, domain.SourceStatusPending, writer.saved[src.ID].Status, "registered pending first")
	assert.Equal(t, []domain.SourceStatus{domain.SourceStatusCompleted}, writer.statuses)
	assert.Equal(t, "alpha beta gamma", writer.content[src.ID])

	chunks := writer.chunks[src.ID]
	require.Len(t, chunks, 3)
	assert.Equal(t, []float32{4}, chunks[1].Embedding)
	require.Len(t, embedder.batches, 1)
}

func TestSourceService_Add_BatchesEmbeddings(t *testing.T) {
	writer := newMockWriter()
	embedder := &mockEmbedder{}
	svc := NewSourceService(&mockRegistry{}, writer, wordChunker{}, embedder, testInvokers())

	words := make([]string, embedBatchSize+5)
	for i := range words {
		words[i] = "w"
	}
	_, err := svc.Add(context.Background(), driving.AddSourceRequest{
		OwnerID: testOwner, Name: "big.txt", Content: strings.Join(words, " "),
	})

	require.NoError(t, err)
	require.Len(t, embedder.batches, 2)
	assert.Len(t, embedder.batches[0], embedBatchSize)
	assert.Len(t, embedder.batches[1], 5)
}

func TestSourceService_Add_RetriesRateLimitedEmbedding(t *testing.T) {
	writer := newMockWriter()
	embedder := &mockEmbedder{errs: []error{fmt.Errorf("busy: %w", domain.ErrRateLimited)}}
	svc := NewSourceService(&mockRegistry{}, writer, wordChunker{}, embedder, testInvokers())

	_, err := svc.Add(context.Background(), driving.AddSourceRequest{
		OwnerID: testOwner, Name: "a.txt", Content: "one two",
	})

	require.NoError(t, err)
	assert.Len(t, embedder.batches, 2)
}

func TestSourceService_Add_WithoutEmbedder(t *testing.T) {
	writer := newMockWriter()
	svc := NewSourceService(&mockRegistry{}, writer, wordChunker{}, nil, testInvokers())

	src, err := svc.Add(context.Background(), driving.AddSourceRequest{
		OwnerID: testOwner, Name: "a.txt", Kind: domain.SourceKindKnowledgeBase, Content: "one two",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.SourceKindKnowledgeBase, src.Kind)
	for _, c := range writer.chunks[src.ID] {
		assert.False(t, c.HasEmbedding())
	}
}

func TestSourceService_Add_MarksFailedOnIndexError(t *testing.T) {
	writer := newMockWriter()
	writer.chunkErr = errors.New("disk full")
	svc := NewSourceService(&mockRegistry{}, writer, wordChunker{}, nil, testInvokers())

	_, err := svc.Add(context.Background(), driving.AddSourceRequest{
		OwnerID: testOwner, Name: "a.txt", Content: "one",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, []domain.SourceStatus{domain.SourceStatusFailed}, writer.statuses)
}

func TestSourceService_Add_ValidatesInput(t *testing.T) {
	svc := NewSourceService(&mockRegistry{}, newMockWriter(), wordChunker{}, nil, testInvokers())
	ctx := context.Background()

	_, err := svc.Add(ctx, driving.AddSourceRequest{OwnerID: testOwner, Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Add(ctx, driving.AddSourceRequest{Name: "a.txt"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Add(ctx, driving.AddSourceRequest{OwnerID: testOwner, Name: "a.txt", Kind: "wiki"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSourceService_ListAndRemove(t *testing.T) {
	registry := &mockRegistry{sources: []domain.Source{completedSource("s1", "a.md")}}
	writer := newMockWriter()
	svc := NewSourceService(registry, writer, wordChunker{}, nil, testInvokers())
	ctx := context.Background()

	sources, err := svc.List(ctx, testOwner)
	require.NoError(t, err)
	assert.Len(t, sources, 1)

	require.NoError(t, svc.Remove(ctx, "s1", testOwner))
	assert.Equal(t, []string{"s1"}, writer.deleted)
	assert.ErrorIs(t, svc.Remove(ctx, "missing", testOwner), domain.ErrNotFound)

	registry.listErr = errors.New("db down")
	_, err = svc.List(ctx, testOwner)
	assert.Error(t, err)
}

// upperNormaliser upper-cases text of type "up" and rejects "bad" content.
type upperNormaliser struct{}

func (upperNormaliser) FileTypes() []string { return []string{"up"} }

func (upperNormaliser) Normalise(_ context.Context, content string) (string, error) {
	if content == "bad" {
		return "", errors.New("unreadable")
	}
	return strings.ToUpper(content), nil
}

func TestSourceService_Add_Normalises(t *testing.T) {
	writer := newMockWriter()
	svc := NewSourceService(&mockRegistry{}, writer, wordChunker{}, nil, testInvokers())
	svc.SetNormalisers(upperNormaliser{})
	ctx := context.Background()

	src, err := svc.Add(ctx, driving.AddSourceRequest{OwnerID: testOwner, Name: "notes.up", Content: "one two three"})
	require.NoError(t, err)
	assert.Equal(t, "ONE TWO THREE", writer.content[src.ID])
	require.NotNil(t, src.WordCount)
	assert.Equal(t, 3, *src.WordCount)

	other, err := svc.Add(ctx, driving.AddSourceRequest{OwnerID: testOwner, Name: "notes.txt", Content: "as is"})
	require.NoError(t, err)
	assert.Equal(t, "as is", writer.content[other.ID])

	_, err = svc.Add(ctx, driving.AddSourceRequest{OwnerID: testOwner, Name: "broken.up", Content: "bad"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
