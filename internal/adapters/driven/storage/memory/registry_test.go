package memory

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
)

func addSource(t *testing.T, r *Registry, id, owner, content string, chunks ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, r.SaveSource(ctx, domain.Source{
		ID:      id,
		OwnerID: owner,
		Name:    id + ".md",
		Status:  domain.SourceStatusCompleted,
	}, content))

	cs := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		cs[i] = domain.Chunk{ID: id + "-" + string(rune('a'+i)), SourceID: id, Index: i, Content: c}
	}
	require.NoError(t, r.SaveChunks(ctx, id, cs))
}

func TestRegistry_ListSourcesInInsertionOrder(t *testing.T) {
	r := NewRegistry(nil)
	addSource(t, r, "z", "alice", "")
	addSource(t, r, "a", "alice", "")
	addSource(t, r, "m", "bob", "")

	sources, err := r.ListSources(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "z", sources[0].ID)
	assert.Equal(t, "a", sources[1].ID)
}

func TestRegistry_GetSourceScopedToOwner(t *testing.T) {
	r := NewRegistry(nil)
	addSource(t, r, "src", "alice", "")
	ctx := context.Background()

	got, err := r.GetSource(ctx, "src", "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "src.md", got.Name)

	got, err = r.GetSource(ctx, "src", "bob")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRegistry_SaveSourceKeepsCreationOrderOnUpdate(t *testing.T) {
	r := NewRegistry(nil)
	addSource(t, r, "first", "alice", "v1")
	addSource(t, r, "second", "alice", "")
	addSource(t, r, "first", "alice", "v2")

	sources, err := r.ListSources(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "first", sources[0].ID)

	text, err := r.FullText(context.Background(), "first")
	require.NoError(t, err)
	assert.Equal(t, "v2", text)
}

func TestRegistry_Text(t *testing.T) {
	r := NewRegistry(nil)
	addSource(t, r, "long", "alice", strings.Repeat("ü", previewRunes+1))
	ctx := context.Background()

	preview, err := r.PreviewText(ctx, "long")
	require.NoError(t, err)
	assert.Len(t, []rune(preview), previewRunes)

	_, err = r.FullText(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistry_QuerySimilarLexical(t *testing.T) {
	r := NewRegistry(nil)
	addSource(t, r, "src", "alice", "", "budget review", "quarterly budget forecast", "team offsite")
	ctx := context.Background()

	hits, err := r.QuerySimilar(ctx, "quarterly budget", "alice", "src", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 1, hits[0].ChunkIndex)
	assert.InDelta(t, 1.0, hits[0].RelevanceScore, 1e-9)
	assert.InDelta(t, 0.5, hits[1].RelevanceScore, 1e-9)

	hits, err = r.QuerySimilar(ctx, "quarterly budget", "bob", "src", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRegistry_StatusAndDelete(t *testing.T) {
	r := NewRegistry(nil)
	addSource(t, r, "src", "alice", "")
	ctx := context.Background()

	require.NoError(t, r.SetStatus(ctx, "src", domain.SourceStatusFailed))
	got, err := r.GetSource(ctx, "src", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceStatusFailed, got.Status)

	assert.ErrorIs(t, r.SetStatus(ctx, "nope", domain.SourceStatusFailed), domain.ErrNotFound)
	assert.ErrorIs(t, r.DeleteSource(ctx, "src", "bob"), domain.ErrNotFound)
	require.NoError(t, r.DeleteSource(ctx, "src", "alice"))
	assert.ErrorIs(t, r.SaveChunks(ctx, "src", nil), domain.ErrNotFound)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry(nil)
	ctx := context.Background()
	var wg sync.WaitGroup

	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			id := string(rune('a' + i))
			_ = r.SaveSource(ctx, domain.Source{ID: id, OwnerID: "alice"}, "text")
		}()
		go func() {
			defer wg.Done()
			_, _ = r.ListSources(ctx, "alice")
		}()
	}
	wg.Wait()

	sources, err := r.ListSources(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, sources, 20)
}

func TestRegistry_SampleChunks(t *testing.T) {
	r := NewRegistry(nil)
	ctx := context.Background()
	require.NoError(t, r.SaveSource(ctx, domain.Source{ID: "src", OwnerID: "alice"}, ""))
	require.NoError(t, r.SaveChunks(ctx, "src", []domain.Chunk{
		{Index: 2, Content: "third"},
		{Index: 0, Content: "first"},
		{Index: 1, Content: "second"},
	}))

	hits, err := r.SampleChunks(ctx, "alice", "src", 0)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "first", hits[0].Content)
	assert.Equal(t, "third", hits[2].Content)

	hits, err = r.SampleChunks(ctx, "bob", "src", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
