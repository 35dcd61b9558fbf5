package domain

// RelationshipKind classifies how strongly two sources are related.
type RelationshipKind string

// Relationship kinds, strongest first.
const (
	RelationshipSimilar     RelationshipKind = "similar"
	RelationshipSupplements RelationshipKind = "supplements"
	RelationshipReferences  RelationshipKind = "references"
)

// ClassifyRelationship maps a strength onto a kind.
func ClassifyRelationship(strength float64) RelationshipKind {
	switch {
	case strength > 0.8:
		return RelationshipSimilar
	case strength > 0.6:
		return RelationshipSupplements
	default:
		return RelationshipReferences
	}
}

// RelationshipEdge links two sources. It is undirected in meaning but always
// stored with SourceDocID < TargetDocID.
type RelationshipEdge struct {
	SourceDocID string           `json:"source_doc_id"`
	TargetDocID string           `json:"target_doc_id"`
	Kind        RelationshipKind `json:"kind"`
	Strength    float64          `json:"strength"`
	Evidence    []string         `json:"evidence"`
}

// NewRelationshipEdge builds an edge with canonical id ordering.
func NewRelationshipEdge(a, b string, strength float64, evidence []string) RelationshipEdge {
	if b < a {
		a, b = b, a
	}
	return RelationshipEdge{
		SourceDocID: a,
		TargetDocID: b,
		Kind:        ClassifyRelationship(strength),
		Strength:    strength,
		Evidence:    evidence,
	}
}

// DiscoveryOptions configures relationship discovery.
type DiscoveryOptions struct {
	// MinSimilarity is the minimum strength for an edge (default 0.4).
	MinSimilarity float64

	// MaxRelationships caps the number of edges returned (default 50).
	MaxRelationships int
}
