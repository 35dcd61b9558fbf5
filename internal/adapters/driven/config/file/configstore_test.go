package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, ConfigFile), store.Path())
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("name", "hello"))
	require.NoError(t, store.Set("count", int64(3)))
	require.NoError(t, store.Set("ratio", 0.25))
	require.NoError(t, store.Set("enabled", true))
	require.NoError(t, store.Set("spacing", "250ms"))

	assert.Equal(t, "hello", store.GetString("name"))
	assert.Equal(t, 3, store.GetInt("count"))
	assert.InDelta(t, 0.25, store.GetFloat("ratio"), 1e-9)
	assert.InDelta(t, 3.0, store.GetFloat("count"), 1e-9, "integers widen to float")
	assert.True(t, store.GetBool("enabled"))
	assert.Equal(t, 250*time.Millisecond, store.GetDuration("spacing"))

	// Wrong types and missing keys yield zero values
	assert.Equal(t, "", store.GetString("count"))
	assert.Equal(t, 0, store.GetInt("name"))
	assert.False(t, store.GetBool("missing"))
	assert.Zero(t, store.GetDuration("name"))
	assert.Zero(t, store.GetDuration("missing"))
}

func TestConfigStore_PersistsNestedTables(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("invoker.max_attempts", int64(5)))
	require.NoError(t, store.Set("invoker.min_spacing", "50ms"))
	require.NoError(t, store.Set("llm.cloud.provider", "openai"))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[invoker]")
	assert.NotContains(t, string(data), "llm.cloud.provider", "dot keys are written as tables")

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, 5, reopened.GetInt("invoker.max_attempts"))
	assert.Equal(t, 50*time.Millisecond, reopened.GetDuration("invoker.min_spacing"))
	assert.Equal(t, "openai", reopened.GetString("llm.cloud.provider"))
}

func TestConfigStore_SetConflictingKey(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("router.local_model", "llama3.2"))
	assert.Error(t, store.Set("router", "flat"))
}

func TestConfigStore_LoadHandEditedFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[synthesis]
max_sources = 4
min_confidence = 0.5

[comparison]
probe = "summary"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, 4, store.GetInt("synthesis.max_sources"))
	assert.InDelta(t, 0.5, store.GetFloat("synthesis.min_confidence"), 1e-9)
	assert.Equal(t, "summary", store.GetString("comparison.probe"))
}

func TestConfigStore_LoadInvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte("not = [valid"), 0600))

	_, err := NewConfigStore(dir)
	assert.Error(t, err)
}

func TestFlattenUnflattenMap(t *testing.T) {
	nested := map[string]any{
		"a": map[string]any{"b": int64(1), "c": map[string]any{"d": "x"}},
		"e": true,
	}

	flat := flattenMap(nested, "")
	assert.Equal(t, map[string]any{"a.b": int64(1), "a.c.d": "x", "e": true}, flat)

	back, err := unflattenMap(flat)
	require.NoError(t, err)
	assert.Equal(t, nested, back)
}

func TestConfigStore_WatchReloads(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, 10*time.Millisecond, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// The watch may not be registered yet, so keep writing until it fires.
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(5 * time.Second)
	path := filepath.Join(dir, ConfigFile)
loop:
	for {
		select {
		case <-changed:
			break loop
		case <-ticker.C:
			require.NoError(t, os.WriteFile(path, []byte("[router]\nlocal_model = \"phi3\"\n"), 0600))
		case <-deadline:
			t.Fatal("watch did not report the change")
		}
	}

	assert.Equal(t, "phi3", store.GetString("router.local_model"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop on cancel")
	}
}
