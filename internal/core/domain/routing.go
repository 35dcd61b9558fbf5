package domain

// RoutingTarget says which kind of sources a query should be answered from.
type RoutingTarget string

// Routing targets.
const (
	RouteDocumentsOnly      RoutingTarget = "documents_only"
	RouteKnowledgeBasesOnly RoutingTarget = "knowledge_bases_only"
	RouteBoth               RoutingTarget = "both"
	RouteGeneral            RoutingTarget = "general"
)

// Kinds returns the source kinds searched for this target.
// A nil result means no restriction.
func (t RoutingTarget) Kinds() []SourceKind {
	switch t {
	case RouteDocumentsOnly:
		return []SourceKind{SourceKindDocument}
	case RouteKnowledgeBasesOnly:
		return []SourceKind{SourceKindKnowledgeBase}
	default:
		return nil
	}
}

// RoutingDecision is the output of the routing-signal classifier.
type RoutingDecision struct {
	Target           RoutingTarget `json:"target"`
	Confidence       float64       `json:"confidence"`
	Reasoning        string        `json:"reasoning"`
	SuggestedSources []string      `json:"suggested_sources,omitempty"`
}

// ProviderKind tags a language-model provider as local or cloud.
type ProviderKind string

// Provider kinds.
const (
	ProviderLocal ProviderKind = "local"
	ProviderCloud ProviderKind = "cloud"
)

// Other returns the opposite provider kind.
func (k ProviderKind) Other() ProviderKind {
	if k == ProviderLocal {
		return ProviderCloud
	}
	return ProviderLocal
}

// Complexity is the estimated difficulty of a query.
type Complexity int

// Complexity levels.
const (
	ComplexitySimple Complexity = iota
	ComplexityMedium
	ComplexityComplex
)

// String returns the lowercase name of the level.
func (c Complexity) String() string {
	switch c {
	case ComplexitySimple:
		return "simple"
	case ComplexityMedium:
		return "medium"
	case ComplexityComplex:
		return "complex"
	default:
		return "unknown"
	}
}

// Escalate returns the next level up, saturating at complex.
func (c Complexity) Escalate() Complexity {
	if c >= ComplexityComplex {
		return ComplexityComplex
	}
	return c + 1
}

// MarshalText encodes the level by name.
func (c Complexity) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ModelSelection is the provider and model chosen for a query.
type ModelSelection struct {
	Provider     ProviderKind `json:"provider"`
	ProviderName string       `json:"provider_name"`
	ModelID      string       `json:"model_id"`
	Reason       string       `json:"reason"`
	Complexity   Complexity   `json:"complexity"`
}
