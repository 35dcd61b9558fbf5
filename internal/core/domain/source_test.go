package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSource_FileType(t *testing.T) {
	tests := []struct {
		name   string
		source Source
		want   string
	}{
		{"declared type wins", Source{Name: "report.pdf", Type: "DOCX"}, "docx"},
		{"declared type with dot", Source{Name: "x", Type: ".md"}, "md"},
		{"extension fallback", Source{Name: "Quarterly Report.PDF"}, "pdf"},
		{"no type", Source{Name: "Wiki page"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.source.FileType())
		})
	}
}

func TestSource_IsCompleted(t *testing.T) {
	assert.True(t, (&Source{Status: SourceStatusCompleted}).IsCompleted())
	assert.False(t, (&Source{Status: SourceStatusPending}).IsCompleted())
	assert.False(t, (&Source{Status: SourceStatusFailed}).IsCompleted())
}

func TestSourceStatus_IsValid(t *testing.T) {
	assert.True(t, SourceStatusPending.IsValid())
	assert.True(t, SourceStatusCompleted.IsValid())
	assert.True(t, SourceStatusFailed.IsValid())
	assert.False(t, SourceStatus("processing").IsValid())
}

func TestSourceKind_IsValid(t *testing.T) {
	assert.True(t, SourceKindDocument.IsValid())
	assert.True(t, SourceKindKnowledgeBase.IsValid())
	assert.False(t, SourceKind("").IsValid())
}

func TestSource_Ref(t *testing.T) {
	s := Source{ID: "a", Name: "A.pdf", OwnerID: "u"}
	assert.Equal(t, SourceRef{ID: "a", Name: "A.pdf"}, s.Ref())
}
