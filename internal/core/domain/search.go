package domain

// SearchOptions configures a multi-source search.
type SearchOptions struct {
	// Limit is the maximum number of results (default 10).
	Limit int

	// MinRelevance drops hits scoring below this value.
	MinRelevance float64

	// ExcludeSourceIDs removes sources from the candidate set.
	ExcludeSourceIDs []string

	// IncludeSourceIDs, when non-empty, restricts the candidate set to these sources.
	IncludeSourceIDs []string

	// Kinds, when non-empty, restricts the candidate set to these source kinds.
	Kinds []SourceKind
}

// SourceReference is one ranked snippet produced by a query.
// It is an immutable value and is never persisted by the core.
type SourceReference struct {
	SourceID       string  `json:"source_id"`
	SourceName     string  `json:"source_name"`
	ChunkIndex     int     `json:"chunk_index"`
	Content        string  `json:"content"`
	RelevanceScore float64 `json:"relevance_score"`
}

// SearchOutcome is the merged, ranked result of a fan-out search.
type SearchOutcome struct {
	Query string `json:"query"`

	// TotalCandidates is the number of distinct hits returned by all sources
	// before relevance filtering and truncation.
	TotalCandidates int `json:"total_candidates"`

	// SourcesSearched is the number of candidate sources attempted.
	SourcesSearched int `json:"sources_searched"`

	// Results are ordered by relevance desc, then source id, then chunk index.
	Results []SourceReference `json:"results"`

	ElapsedMs int64 `json:"elapsed_ms"`

	// Failures lists sources that could not be searched.
	Failures []SourceFailure `json:"failures,omitempty"`
}

// ClampUnit clamps v to [0, 1].
func ClampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
