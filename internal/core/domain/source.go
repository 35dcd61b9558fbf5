package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// SourceStatus is the processing state of a source in the document registry.
type SourceStatus string

// Source statuses.
const (
	SourceStatusPending   SourceStatus = "pending"
	SourceStatusCompleted SourceStatus = "completed"
	SourceStatusFailed    SourceStatus = "failed"
)

// IsValid returns true if the status is recognised.
func (s SourceStatus) IsValid() bool {
	switch s {
	case SourceStatusPending, SourceStatusCompleted, SourceStatusFailed:
		return true
	default:
		return false
	}
}

// SourceKind distinguishes uploaded documents from ingested knowledge-base pages.
type SourceKind string

// Source kinds.
const (
	SourceKindDocument      SourceKind = "document"
	SourceKindKnowledgeBase SourceKind = "knowledge_base"
)

// IsValid returns true if the kind is recognised.
func (k SourceKind) IsValid() bool {
	return k == SourceKindDocument || k == SourceKindKnowledgeBase
}

// Source is a document or knowledge-base page available for retrieval.
// It is owned by the document registry; the core only reads it.
type Source struct {
	// ID is the unique identifier for the source.
	ID string `json:"id"`

	// OwnerID is the user that owns the source.
	OwnerID string `json:"owner_id"`

	// Name is the human-readable display name (usually the file name).
	Name string `json:"name"`

	// Type is the file type (e.g. "pdf", "md"). May be empty.
	Type string `json:"type,omitempty"`

	// Kind is document or knowledge_base.
	Kind SourceKind `json:"kind"`

	// Status is the processing state.
	Status SourceStatus `json:"status"`

	// WordCount is the number of words in the source, when known.
	WordCount *int `json:"word_count,omitempty"`

	// CreatedAt is when the source was registered.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the source was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsCompleted reports whether the source is ready for retrieval.
func (s *Source) IsCompleted() bool {
	return s.Status == SourceStatusCompleted
}

// EffectiveKind returns the kind, treating an unset kind as a document.
func (s *Source) EffectiveKind() SourceKind {
	if s.Kind == "" {
		return SourceKindDocument
	}
	return s.Kind
}

// FileType returns the declared type, or the display name's extension.
func (s *Source) FileType() string {
	if s.Type != "" {
		return strings.ToLower(strings.TrimPrefix(s.Type, "."))
	}
	ext := filepath.Ext(s.Name)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// SourceRef is the minimal id/name pair used in results.
type SourceRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Ref returns the id/name pair of the source.
func (s *Source) Ref() SourceRef {
	return SourceRef{ID: s.ID, Name: s.Name}
}
