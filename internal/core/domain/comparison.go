package domain

// Degradation marks a result that was produced by a fallback path.
// An empty value means the result is complete.
type Degradation string

// Degradation markers.
const (
	DegradationNone Degradation = ""

	// DegradationPending means content was not yet available for one side.
	DegradationPending Degradation = "pending"

	// DegradationParse means the model's structured output could not be parsed.
	DegradationParse Degradation = "parse_degraded"

	// DegradationNoResults means no source matched the query.
	DegradationNoResults Degradation = "no_results"
)

// Sentinel values shown verbatim to end users. They must stay stable.
const (
	PendingTheme      = "Content not yet processed"
	PendingUnique     = "Document content pending processing"
	PendingDifference = "Comparison unavailable until both documents are processed"

	FallbackTheme      = "General document content"
	FallbackUnique     = "Document-specific details"
	FallbackDifference = "Documents cover different specific content"
)

// Similarity floors used by the degraded comparison paths.
const (
	PendingSimilarity  = 0.3
	FallbackSimilarity = 0.5
)

// ComparisonResult is an on-demand comparison of two documents.
type ComparisonResult struct {
	Doc1           SourceRef   `json:"doc1"`
	Doc2           SourceRef   `json:"doc2"`
	Similarity     float64     `json:"similarity"`
	CommonThemes   []string    `json:"common_themes"`
	UniqueToDoc1   []string    `json:"unique_to_doc1"`
	UniqueToDoc2   []string    `json:"unique_to_doc2"`
	KeyDifferences []string    `json:"key_differences"`
	Degradation    Degradation `json:"degradation,omitempty"`
}

// PendingComparison is returned when either document has no content yet.
func PendingComparison(doc1, doc2 SourceRef) *ComparisonResult {
	return &ComparisonResult{
		Doc1:           doc1,
		Doc2:           doc2,
		Similarity:     PendingSimilarity,
		CommonThemes:   []string{PendingTheme},
		UniqueToDoc1:   []string{PendingUnique},
		UniqueToDoc2:   []string{PendingUnique},
		KeyDifferences: []string{PendingDifference},
		Degradation:    DegradationPending,
	}
}

// FallbackComparison is returned when the model's reply cannot be parsed.
func FallbackComparison(doc1, doc2 SourceRef) *ComparisonResult {
	return &ComparisonResult{
		Doc1:           doc1,
		Doc2:           doc2,
		Similarity:     FallbackSimilarity,
		CommonThemes:   []string{FallbackTheme},
		UniqueToDoc1:   []string{FallbackUnique},
		UniqueToDoc2:   []string{FallbackUnique},
		KeyDifferences: []string{FallbackDifference},
		Degradation:    DegradationParse,
	}
}
