package domain

// SynthesisOptions configures answer synthesis.
type SynthesisOptions struct {
	// MaxSources caps the snippets given to the model (default 8).
	MaxSources int

	// IncludeConflicts keeps conflict annotations in the answer.
	IncludeConflicts bool

	// MinConfidence is used as the minimum relevance for retrieval (default 0.3).
	MinConfidence float64
}

// DefaultSynthesisOptions returns the documented defaults.
func DefaultSynthesisOptions() SynthesisOptions {
	return SynthesisOptions{
		MaxSources:       8,
		IncludeConflicts: true,
		MinConfidence:    0.3,
	}
}

// ConflictPosition is what one source says about a disputed topic.
type ConflictPosition struct {
	SourceName string `json:"source_name"`
	Position   string `json:"position"`
}

// Conflict is a topic on which sources disagree.
type Conflict struct {
	Topic     string             `json:"topic"`
	Positions []ConflictPosition `json:"positions"`
}

// SynthesizedAnswer is one answer consolidated from several sources.
type SynthesizedAnswer struct {
	Query              string            `json:"query"`
	ConsolidatedAnswer string            `json:"consolidated_answer"`
	Sources            []SourceReference `json:"sources"`
	Confidence         float64           `json:"confidence"`
	Conflicts          []Conflict        `json:"conflicts,omitempty"`
	Degradation        Degradation       `json:"degradation,omitempty"`
	Model              *ModelSelection   `json:"model,omitempty"`
	Routing            *RoutingDecision  `json:"routing,omitempty"`
}
