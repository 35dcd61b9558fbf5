package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited is the signal adapters return when an upstream service
	// rejects a call because of rate limiting (HTTP 429 or equivalent).
	// The invoker retries only errors matching this sentinel.
	ErrRateLimited = errors.New("rate limited")

	// ErrRateLimitExceeded indicates retries against one provider were exhausted.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrSourceUnavailable indicates a single source failed during fan-out.
	// It is recovered locally and never fails a whole search.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrProvidersUnavailable indicates no language-model provider is reachable.
	ErrProvidersUnavailable = errors.New("no language model provider available")

	// ErrProviderFailure indicates the selected provider and its fallback both failed.
	ErrProviderFailure = errors.New("language model providers failed")

	// ErrDocumentNotFound indicates a document could not be resolved by id
	// lookup nor by scanning the owner's sources.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// RateLimitExceededError carries the last underlying error after the invoker
// gave up on a provider, so callers can decide to swap providers.
type RateLimitExceededError struct {
	Provider string
	Attempts int
	Last     error
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("%s: %s after %d attempts: %v", e.Provider, ErrRateLimitExceeded, e.Attempts, e.Last)
}

// Is reports whether target is ErrRateLimitExceeded.
func (e *RateLimitExceededError) Is(target error) bool {
	return target == ErrRateLimitExceeded
}

// Unwrap returns the last underlying error.
func (e *RateLimitExceededError) Unwrap() error {
	return e.Last
}

// SourceFailure records one source that failed during a search fan-out.
type SourceFailure struct {
	SourceID   string `json:"source_id"`
	SourceName string `json:"source_name"`
	Err        error  `json:"-"`
	Message    string `json:"error"`
}

// NewSourceFailure builds a SourceFailure from the error returned for a source.
func NewSourceFailure(source Source, err error) SourceFailure {
	return SourceFailure{
		SourceID:   source.ID,
		SourceName: source.Name,
		Err:        err,
		Message:    err.Error(),
	}
}

func (f SourceFailure) Error() string {
	return fmt.Sprintf("%s %s: %v", ErrSourceUnavailable, f.SourceID, f.Err)
}

// Is reports whether target is ErrSourceUnavailable.
func (f SourceFailure) Is(target error) bool {
	return target == ErrSourceUnavailable
}

// Unwrap returns the underlying error.
func (f SourceFailure) Unwrap() error {
	return f.Err
}

// ProviderFailureError lists the error from every provider that was tried.
type ProviderFailureError struct {
	// Errors maps provider name to the error it returned.
	Errors map[string]error
}

func (e *ProviderFailureError) Error() string {
	names := make([]string, 0, len(e.Errors))
	for name := range e.Errors {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %v", name, e.Errors[name]))
	}
	return fmt.Sprintf("%s (%s)", ErrProviderFailure, strings.Join(parts, "; "))
}

// Is reports whether target is ErrProviderFailure.
func (e *ProviderFailureError) Is(target error) bool {
	return target == ErrProviderFailure
}

// Unwrap exposes every underlying provider error to errors.Is and errors.As.
func (e *ProviderFailureError) Unwrap() []error {
	errs := make([]error, 0, len(e.Errors))
	for _, err := range e.Errors {
		errs = append(errs, err)
	}
	return errs
}

// DocumentNotFoundError names the id that could not be resolved.
type DocumentNotFoundError struct {
	ID      string
	OwnerID string
}

func (e *DocumentNotFoundError) Error() string {
	return fmt.Sprintf("%s: %q", ErrDocumentNotFound, e.ID)
}

// Is reports whether target is ErrDocumentNotFound.
func (e *DocumentNotFoundError) Is(target error) bool {
	return target == ErrDocumentNotFound
}
