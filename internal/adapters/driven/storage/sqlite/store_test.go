package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

// saveSource stores a completed source with the given text.
func saveSource(t *testing.T, store *Store, id, owner, name, content string) domain.Source {
	t.Helper()
	src := domain.Source{
		ID:      id,
		OwnerID: owner,
		Name:    name,
		Kind:    domain.SourceKindDocument,
		Status:  domain.SourceStatusCompleted,
	}
	require.NoError(t, store.SaveSource(context.Background(), src, content))
	return src
}

type fakeEmbedder struct {
	vectors map[string][]float32
	calls   int
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors[text], nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int              { return 2 }
func (f *fakeEmbedder) ModelName() string            { return "fake" }
func (f *fakeEmbedder) Ping(_ context.Context) error { return nil }
func (f *fakeEmbedder) Close() error                 { return nil }

// ==================== Store Creation ====================

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, DatabaseFile), store.Path())
}

func TestNewStore_MigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()

	first, err := NewStore(dir)
	require.NoError(t, err)
	saveSource(t, first, "src-1", "alice", "notes.md", "hello")
	require.NoError(t, first.Close())

	second, err := NewStore(dir)
	require.NoError(t, err)
	defer second.Close()

	var versions int
	require.NoError(t, second.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	assert.Equal(t, 1, versions)

	sources, err := second.ListSources(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, sources, 1, "data survives reopening")
}

// ==================== Source Registry ====================

func TestListSources_ScopedToOwnerInCreationOrder(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	saveSource(t, store, "b", "alice", "second.md", "")
	time.Sleep(5 * time.Millisecond)
	saveSource(t, store, "a", "alice", "third.md", "")
	saveSource(t, store, "c", "bob", "other.md", "")

	sources, err := store.ListSources(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "b", sources[0].ID)
	assert.Equal(t, "a", sources[1].ID)
	assert.Equal(t, domain.SourceKindDocument, sources[0].Kind)
	assert.Equal(t, domain.SourceStatusCompleted, sources[0].Status)
}

func TestGetSource(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	words := 42
	src := domain.Source{
		ID:        "src-1",
		OwnerID:   "alice",
		Name:      "report.pdf",
		Type:      "pdf",
		Kind:      domain.SourceKindKnowledgeBase,
		Status:    domain.SourceStatusPending,
		WordCount: &words,
	}
	require.NoError(t, store.SaveSource(ctx, src, "body"))

	got, err := store.GetSource(ctx, "src-1", "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "report.pdf", got.Name)
	assert.Equal(t, "pdf", got.Type)
	assert.Equal(t, domain.SourceKindKnowledgeBase, got.Kind)
	require.NotNil(t, got.WordCount)
	assert.Equal(t, 42, *got.WordCount)
	assert.False(t, got.CreatedAt.IsZero())

	missing, err := store.GetSource(ctx, "src-1", "bob")
	require.NoError(t, err)
	assert.Nil(t, missing, "another owner's source is absent")

	missing, err = store.GetSource(ctx, "nope", "alice")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSaveSource_UpsertKeepsCreatedAt(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	saveSource(t, store, "src-1", "alice", "old.md", "v1")
	before, err := store.GetSource(ctx, "src-1", "alice")
	require.NoError(t, err)

	saveSource(t, store, "src-1", "alice", "new.md", "v2")
	after, err := store.GetSource(ctx, "src-1", "alice")
	require.NoError(t, err)

	assert.Equal(t, "new.md", after.Name)
	assert.True(t, before.CreatedAt.Equal(after.CreatedAt))

	text, err := store.FullText(ctx, "src-1")
	require.NoError(t, err)
	assert.Equal(t, "v2", text)
}

func TestSetStatus(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	saveSource(t, store, "src-1", "alice", "a.md", "")

	require.NoError(t, store.SetStatus(ctx, "src-1", domain.SourceStatusFailed))
	got, err := store.GetSource(ctx, "src-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceStatusFailed, got.Status)

	err = store.SetStatus(ctx, "missing", domain.SourceStatusCompleted)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteSource_CascadesChunks(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	saveSource(t, store, "src-1", "alice", "a.md", "alpha beta")
	require.NoError(t, store.SaveChunks(ctx, "src-1", []domain.Chunk{
		{ID: "c1", Index: 0, Content: "alpha beta"},
	}))

	assert.ErrorIs(t, store.DeleteSource(ctx, "src-1", "bob"), domain.ErrNotFound)
	require.NoError(t, store.DeleteSource(ctx, "src-1", "alice"))

	var chunks int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&chunks))
	assert.Zero(t, chunks)
}

// ==================== Text Store ====================

func TestPreviewText_Truncates(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	saveSource(t, store, "src-1", "alice", "long.md", strings.Repeat("é", previewRunes+10))

	preview, err := store.PreviewText(ctx, "src-1")
	require.NoError(t, err)
	assert.Equal(t, previewRunes, len([]rune(preview)))

	_, err = store.PreviewText(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ==================== Vector Searcher ====================

func TestQuerySimilar_LexicalWithoutEmbedder(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	saveSource(t, store, "src-1", "alice", "plan.md", "")
	require.NoError(t, store.SaveChunks(ctx, "src-1", []domain.Chunk{
		{ID: "c0", Index: 0, Content: "introduction"},
		{ID: "c1", Index: 1, Content: "the launch date is in March"},
		{ID: "c2", Index: 2, Content: "launch checklist"},
	}))

	hits, err := store.QuerySimilar(ctx, "launch date", "alice", "src-1", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 1, hits[0].ChunkIndex)
	assert.InDelta(t, 1.0, hits[0].RelevanceScore, 1e-9)
	assert.Equal(t, 2, hits[1].ChunkIndex)

	hits, err = store.QuerySimilar(ctx, "launch date", "bob", "src-1", 5)
	require.NoError(t, err)
	assert.Empty(t, hits, "chunks of another owner are invisible")
}

func TestSampleChunks_SpreadInPositionOrder(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	saveSource(t, store, "src-1", "alice", "plan.md", "")
	require.NoError(t, store.SaveChunks(ctx, "src-1", []domain.Chunk{
		{ID: "c0", Index: 0, Content: "introduction"},
		{ID: "c1", Index: 1, Content: "budget"},
		{ID: "c2", Index: 2, Content: "hiring"},
		{ID: "c3", Index: 3, Content: "summary"},
	}))

	hits, err := store.SampleChunks(ctx, "alice", "src-1", 0)
	require.NoError(t, err)
	require.Len(t, hits, 4, "chunks that match no query are still sampled")
	assert.Equal(t, "introduction", hits[0].Content)

	hits, err = store.SampleChunks(ctx, "alice", "src-1", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 0, hits[0].ChunkIndex)
	assert.Equal(t, 2, hits[1].ChunkIndex)

	hits, err = store.SampleChunks(ctx, "bob", "src-1", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestQuerySimilar_CosineWithEmbedder(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{"query": {1, 0}}}
	store := setupTestStore(t, WithEmbedder(embedder))
	ctx := context.Background()
	saveSource(t, store, "src-1", "alice", "a.md", "")
	saveSource(t, store, "src-2", "alice", "b.md", "")
	require.NoError(t, store.SaveChunks(ctx, "src-1", []domain.Chunk{
		{ID: "c0", Index: 0, Content: "x", Embedding: []float32{0.6, 0.8}},
		{ID: "c1", Index: 1, Content: "y", Embedding: []float32{1, 0}},
	}))
	require.NoError(t, store.SaveChunks(ctx, "src-2", []domain.Chunk{
		{ID: "d0", Index: 0, Content: "z", Embedding: []float32{1, 0}},
	}))

	hits, err := store.QuerySimilar(ctx, "query", "alice", "src-1", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].ChunkIndex)
	assert.InDelta(t, 1.0, hits[0].RelevanceScore, 1e-6)

	_, err = store.QuerySimilar(ctx, "query", "alice", "src-2", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.calls, "query embedding is cached across sources")
}

func TestQuerySimilar_EmbedderFailure(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("quota")}
	store := setupTestStore(t, WithEmbedder(embedder))
	saveSource(t, store, "src-1", "alice", "a.md", "")

	_, err := store.QuerySimilar(context.Background(), "q", "alice", "src-1", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota")
}

func TestSaveChunks_Replaces(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	saveSource(t, store, "src-1", "alice", "a.md", "")

	require.NoError(t, store.SaveChunks(ctx, "src-1", []domain.Chunk{
		{ID: "old", Index: 0, Content: "stale words"},
	}))
	require.NoError(t, store.SaveChunks(ctx, "src-1", []domain.Chunk{
		{ID: "new", Index: 0, Content: "fresh words"},
	}))

	hits, err := store.QuerySimilar(ctx, "stale", "alice", "src-1", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFloat32Conversion(t *testing.T) {
	in := []float32{0, 1.5, -2.25}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}
