package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driven"
)

func refs(n int) []domain.SourceReference {
	out := make([]domain.SourceReference, n)
	for i := range out {
		out[i] = domain.SourceReference{
			SourceID:       "s" + string(rune('a'+i)),
			SourceName:     "source " + string(rune('A'+i)),
			Content:        "content " + string(rune('a'+i)),
			RelevanceScore: 0.9 - float64(i)*0.01,
		}
	}
	return out
}

func TestSynthesize_NoResults(t *testing.T) {
	search := &mockSearch{outcome: &domain.SearchOutcome{Results: []domain.SourceReference{}}}
	router := &mockRouter{err: errors.New("must not be called")}
	svc := NewSynthesisService(search, router, nil)

	ans, err := svc.Synthesize(context.Background(), "anything?", testOwner, domain.DefaultSynthesisOptions())

	require.NoError(t, err)
	assert.Equal(t, 0.0, ans.Confidence)
	assert.Empty(t, ans.Sources)
	assert.NotNil(t, ans.Sources)
	assert.Equal(t, NoResultsAnswer, ans.ConsolidatedAnswer)
	assert.Equal(t, domain.DegradationNoResults, ans.Degradation)
	assert.Empty(t, router.messages)
}

func TestSynthesize_OversamplesSearch(t *testing.T) {
	search := &mockSearch{outcome: &domain.SearchOutcome{}}
	svc := NewSynthesisService(search, &mockRouter{}, nil)

	_, err := svc.Synthesize(context.Background(), "q", testOwner, domain.DefaultSynthesisOptions())

	require.NoError(t, err)
	require.Len(t, search.opts, 1)
	assert.Equal(t, 16, search.opts[0].Limit)
	assert.Equal(t, 0.3, search.opts[0].MinRelevance)
}

func TestSynthesize_ParsesReply(t *testing.T) {
	search := &mockSearch{outcome: &domain.SearchOutcome{Results: refs(3)}}
	router := &mockRouter{reply: `Sure. {"answer": "The launch is in May [1].", "confidence": 0.82,
		"conflicts": [{"topic": "launch date", "positions": [
			{"source_name": "source A", "position": "May"},
			{"source_name": "source B", "position": "June"}]}]}`}
	svc := NewSynthesisService(search, router, nil)

	ans, err := svc.Synthesize(context.Background(), "When is the launch?", testOwner, domain.DefaultSynthesisOptions())

	require.NoError(t, err)
	assert.Equal(t, "The launch is in May [1].", ans.ConsolidatedAnswer)
	assert.Equal(t, 0.82, ans.Confidence)
	require.Len(t, ans.Conflicts, 1)
	assert.Equal(t, "launch date", ans.Conflicts[0].Topic)
	assert.Len(t, ans.Conflicts[0].Positions, 2)
	assert.Len(t, ans.Sources, 3)
	assert.Equal(t, domain.DegradationNone, ans.Degradation)
	require.NotNil(t, ans.Model)
	assert.Equal(t, "mock-model", ans.Model.ModelID)

	user := router.messages[0][1].Content
	assert.Contains(t, user, "[1] source A")
	assert.Contains(t, user, "[3] source C")
	assert.True(t, strings.HasSuffix(user, "Question: When is the launch?"))
}

func TestSynthesize_StripsConflicts(t *testing.T) {
	search := &mockSearch{outcome: &domain.SearchOutcome{Results: refs(2)}}
	router := &mockRouter{reply: `{"answer": "x", "confidence": 0.5, "conflicts": [{"topic": "t"}]}`}
	svc := NewSynthesisService(search, router, nil)
	opts := domain.DefaultSynthesisOptions()
	opts.IncludeConflicts = false

	ans, err := svc.Synthesize(context.Background(), "q", testOwner, opts)

	require.NoError(t, err)
	assert.Empty(t, ans.Conflicts)
}

func TestSynthesize_ClampsConfidence(t *testing.T) {
	search := &mockSearch{outcome: &domain.SearchOutcome{Results: refs(1)}}
	router := &mockRouter{reply: `{"answer": "x", "confidence": 7}`}
	svc := NewSynthesisService(search, router, nil)

	ans, err := svc.Synthesize(context.Background(), "q", testOwner, domain.DefaultSynthesisOptions())

	require.NoError(t, err)
	assert.Equal(t, 1.0, ans.Confidence)
}

func TestSynthesize_SkipsStrayObjectBeforeReply(t *testing.T) {
	search := &mockSearch{outcome: &domain.SearchOutcome{Results: refs(2)}}
	router := &mockRouter{reply: `Settings used: {}. Reply: {"answer": "It ships in May.", "confidence": 0.7}`}
	svc := NewSynthesisService(search, router, nil)

	ans, err := svc.Synthesize(context.Background(), "q", testOwner, domain.DefaultSynthesisOptions())

	require.NoError(t, err)
	assert.Equal(t, "It ships in May.", ans.ConsolidatedAnswer)
	assert.Equal(t, 0.7, ans.Confidence)
	assert.Equal(t, domain.DegradationNone, ans.Degradation)
}

func TestSynthesize_ParseFallback(t *testing.T) {
	tests := []struct {
		name    string
		results int
		want    float64
	}{
		{"few sources", 2, 2.0 / 8.0},
		{"many sources", 12, 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			search := &mockSearch{outcome: &domain.SearchOutcome{Results: refs(tt.results)}}
			router := &mockRouter{reply: "  The answer is plainly 42.  "}
			svc := NewSynthesisService(search, router, nil)

			ans, err := svc.Synthesize(context.Background(), "q", testOwner, domain.DefaultSynthesisOptions())

			require.NoError(t, err)
			assert.Equal(t, "The answer is plainly 42.", ans.ConsolidatedAnswer)
			assert.InDelta(t, tt.want, ans.Confidence, 1e-9)
			assert.Empty(t, ans.Conflicts)
			assert.Equal(t, domain.DegradationParse, ans.Degradation)
			assert.LessOrEqual(t, len(ans.Sources), 8)
		})
	}
}

func TestSynthesize_RoutingRestrictsKinds(t *testing.T) {
	search := &mockSearch{outcome: &domain.SearchOutcome{}}
	svc := NewSynthesisService(search, &mockRouter{}, nil)
	decision := &domain.RoutingDecision{Target: domain.RouteKnowledgeBasesOnly, Confidence: 0.8}
	svc.SetQueryRouter(&mockQueryRouter{decision: decision})

	ans, err := svc.Synthesize(context.Background(), "q", testOwner, domain.DefaultSynthesisOptions())

	require.NoError(t, err)
	assert.Equal(t, []domain.SourceKind{domain.SourceKindKnowledgeBase}, search.opts[0].Kinds)
	assert.Same(t, decision, ans.Routing)
}

func TestSynthesize_RoutingErrorIgnored(t *testing.T) {
	search := &mockSearch{outcome: &domain.SearchOutcome{}}
	svc := NewSynthesisService(search, &mockRouter{}, nil)
	svc.SetQueryRouter(&mockQueryRouter{err: errors.New("registry down")})

	ans, err := svc.Synthesize(context.Background(), "q", testOwner, domain.DefaultSynthesisOptions())

	require.NoError(t, err)
	assert.Nil(t, ans.Routing)
	assert.Nil(t, search.opts[0].Kinds)
}

func TestSynthesize_ProviderErrorsPropagate(t *testing.T) {
	search := &mockSearch{outcome: &domain.SearchOutcome{Results: refs(1)}}
	router := &mockRouter{err: &domain.ProviderFailureError{Errors: map[string]error{"a": errors.New("x")}}}
	svc := NewSynthesisService(search, router, nil)

	_, err := svc.Synthesize(context.Background(), "q", testOwner, domain.DefaultSynthesisOptions())

	assert.ErrorIs(t, err, domain.ErrProviderFailure)
}

func TestSynthesize_SearchErrorPropagates(t *testing.T) {
	svc := NewSynthesisService(&mockSearch{err: errors.New("registry down")}, &mockRouter{}, nil)

	_, err := svc.Synthesize(context.Background(), "q", testOwner, domain.DefaultSynthesisOptions())

	assert.Error(t, err)
}

func TestSynthesize_PromptFallsBackToDefault(t *testing.T) {
	search := &mockSearch{outcome: &domain.SearchOutcome{Results: refs(1)}}
	router := &mockRouter{reply: `{"answer": "x"}`}
	svc := NewSynthesisService(search, router, &mockPromptStore{err: errors.New("unreadable")})

	_, err := svc.Synthesize(context.Background(), "q", testOwner, domain.DefaultSynthesisOptions())

	require.NoError(t, err)
	assert.Equal(t, driven.DefaultPrompts[driven.PromptSynthesis], router.messages[0][0].Content)
}
