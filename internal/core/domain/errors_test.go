package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrRateLimited", ErrRateLimited},
		{"ErrRateLimitExceeded", ErrRateLimitExceeded},
		{"ErrSourceUnavailable", ErrSourceUnavailable},
		{"ErrProvidersUnavailable", ErrProvidersUnavailable},
		{"ErrProviderFailure", ErrProviderFailure},
		{"ErrDocumentNotFound", ErrDocumentNotFound},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestRateLimitExceededError_IsAndUnwrap(t *testing.T) {
	last := fmt.Errorf("openai: %w", ErrRateLimited)
	err := fmt.Errorf("synthesize: %w", &RateLimitExceededError{Provider: "openai", Attempts: 3, Last: last})

	assert.True(t, errors.Is(err, ErrRateLimitExceeded))
	assert.True(t, errors.Is(err, ErrRateLimited), "last error should stay reachable")
	assert.Contains(t, err.Error(), "after 3 attempts")

	var rle *RateLimitExceededError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, "openai", rle.Provider)
}

func TestSourceFailure_IsSourceUnavailable(t *testing.T) {
	boom := errors.New("quota exhausted")
	f := NewSourceFailure(Source{ID: "src-1", Name: "notes.md"}, boom)

	assert.True(t, errors.Is(f, ErrSourceUnavailable))
	assert.True(t, errors.Is(f, boom))
	assert.Equal(t, "quota exhausted", f.Message)
	assert.Equal(t, "notes.md", f.SourceName)
}

func TestProviderFailureError_ListsBothProviders(t *testing.T) {
	local := errors.New("connection refused")
	cloud := fmt.Errorf("wrapped: %w", ErrRateLimited)
	err := &ProviderFailureError{Errors: map[string]error{"openai": cloud, "ollama": local}}

	assert.True(t, errors.Is(err, ErrProviderFailure))
	assert.True(t, errors.Is(err, local))
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.Equal(t,
		"language model providers failed (ollama: connection refused; openai: wrapped: rate limited)",
		err.Error())
}

func TestDocumentNotFoundError(t *testing.T) {
	err := fmt.Errorf("compare: %w", &DocumentNotFoundError{ID: "doc-9", OwnerID: "u1"})

	assert.True(t, errors.Is(err, ErrDocumentNotFound))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), `"doc-9"`)
}
