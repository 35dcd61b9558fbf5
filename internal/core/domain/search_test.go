package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampUnit(t *testing.T) {
	assert.Equal(t, 0.0, ClampUnit(-0.2))
	assert.Equal(t, 0.42, ClampUnit(0.42))
	assert.Equal(t, 1.0, ClampUnit(7))
}

func TestClassifyRelationship(t *testing.T) {
	assert.Equal(t, RelationshipSimilar, ClassifyRelationship(0.81))
	assert.Equal(t, RelationshipSupplements, ClassifyRelationship(0.8))
	assert.Equal(t, RelationshipSupplements, ClassifyRelationship(0.61))
	assert.Equal(t, RelationshipReferences, ClassifyRelationship(0.6))
	assert.Equal(t, RelationshipReferences, ClassifyRelationship(0.4))
}

func TestNewRelationshipEdge_CanonicalOrder(t *testing.T) {
	edge := NewRelationshipEdge("zeta", "alpha", 0.7, []string{"shared terms"})

	assert.Equal(t, "alpha", edge.SourceDocID)
	assert.Equal(t, "zeta", edge.TargetDocID)
	assert.Equal(t, RelationshipSupplements, edge.Kind)
	assert.Equal(t, []string{"shared terms"}, edge.Evidence)
}

func TestRoutingTarget_Kinds(t *testing.T) {
	assert.Equal(t, []SourceKind{SourceKindDocument}, RouteDocumentsOnly.Kinds())
	assert.Equal(t, []SourceKind{SourceKindKnowledgeBase}, RouteKnowledgeBasesOnly.Kinds())
	assert.Nil(t, RouteBoth.Kinds())
	assert.Nil(t, RouteGeneral.Kinds())
}

func TestComplexity_EscalateAndString(t *testing.T) {
	assert.Equal(t, ComplexityMedium, ComplexitySimple.Escalate())
	assert.Equal(t, ComplexityComplex, ComplexityMedium.Escalate())
	assert.Equal(t, ComplexityComplex, ComplexityComplex.Escalate())
	assert.Equal(t, "medium", ComplexityMedium.String())

	text, err := ComplexityComplex.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "complex", string(text))
}

func TestProviderKind_Other(t *testing.T) {
	assert.Equal(t, ProviderCloud, ProviderLocal.Other())
	assert.Equal(t, ProviderLocal, ProviderCloud.Other())
}

func TestDegradedComparisons_UseStableSentinels(t *testing.T) {
	a := SourceRef{ID: "a", Name: "A"}
	b := SourceRef{ID: "b", Name: "B"}

	pending := PendingComparison(a, b)
	assert.Equal(t, 0.3, pending.Similarity)
	assert.Equal(t, []string{"Content not yet processed"}, pending.CommonThemes)
	assert.Equal(t, []string{"Document content pending processing"}, pending.UniqueToDoc1)
	assert.Equal(t, DegradationPending, pending.Degradation)

	fallback := FallbackComparison(a, b)
	assert.Equal(t, 0.5, fallback.Similarity)
	assert.Equal(t, []string{FallbackTheme}, fallback.CommonThemes)
	assert.Equal(t, DegradationParse, fallback.Degradation)
}
