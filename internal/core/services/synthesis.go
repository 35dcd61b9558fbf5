package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-synth/internal/logger"
	"github.com/custodia-labs/sercha-synth/internal/metrics"
)

// Ensure SynthesisService implements the interface.
var _ driving.SynthesisService = (*SynthesisService)(nil)

// NoResultsAnswer is returned when no source matches a query.
const NoResultsAnswer = "No relevant information was found in your sources for this question."

// maxParseFallbackConfidence caps the confidence of an unparsed reply.
const maxParseFallbackConfidence = 0.8

// SynthesisService consolidates one answer from several sources.
type SynthesisService struct {
	search      driving.SourceSearchService
	router      driving.ModelRouter
	queryRouter driving.QueryRouter
	prompts     driven.PromptStore
}

// NewSynthesisService creates a new synthesis service.
// The prompts parameter is optional (can be nil).
func NewSynthesisService(
	search driving.SourceSearchService,
	router driving.ModelRouter,
	prompts driven.PromptStore,
) *SynthesisService {
	return &SynthesisService{
		search:  search,
		router:  router,
		prompts: prompts,
	}
}

// SetQueryRouter attaches a routing-signal classifier whose decision
// restricts the kinds of sources searched.
func (s *SynthesisService) SetQueryRouter(r driving.QueryRouter) {
	s.queryRouter = r
}

// synthesisReply is the structured output requested from the model.
type synthesisReply struct {
	Answer             string            `json:"answer"`
	ConsolidatedAnswer string            `json:"consolidated_answer"`
	Confidence         *float64          `json:"confidence"`
	Conflicts          []domain.Conflict `json:"conflicts"`
}

// text returns the answer under either of its accepted keys.
func (r *synthesisReply) text() string {
	if r.Answer != "" {
		return r.Answer
	}
	return r.ConsolidatedAnswer
}

// Synthesize searches, routes and answers query. Zero results and
// unparsable replies produce degraded answers, never errors.
func (s *SynthesisService) Synthesize(
	ctx context.Context, query, ownerID string, opts domain.SynthesisOptions,
) (*domain.SynthesizedAnswer, error) {
	logger.Section("Knowledge Synthesis")

	if opts.MaxSources <= 0 {
		opts.MaxSources = domain.DefaultSynthesisOptions().MaxSources
	}

	var routing *domain.RoutingDecision
	if s.queryRouter != nil {
		d, err := s.queryRouter.Classify(ctx, query, ownerID)
		if err != nil {
			logger.Warn("Routing signal unavailable, searching all sources: %v", err)
		} else {
			routing = d
		}
	}

	searchOpts := domain.SearchOptions{
		Limit:        opts.MaxSources * 2,
		MinRelevance: opts.MinConfidence,
	}
	if routing != nil {
		searchOpts.Kinds = routing.Target.Kinds()
	}

	outcome, err := s.search.Search(ctx, query, ownerID, searchOpts)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	if len(outcome.Results) == 0 {
		logger.Info("No relevant sources for %q", query)
		metrics.Default().IncDegraded("synthesize", string(domain.DegradationNoResults))
		return &domain.SynthesizedAnswer{
			Query:              query,
			ConsolidatedAnswer: NoResultsAnswer,
			Sources:            []domain.SourceReference{},
			Confidence:         0,
			Degradation:        domain.DegradationNoResults,
			Routing:            routing,
		}, nil
	}

	sources := outcome.Results
	if len(sources) > opts.MaxSources {
		sources = sources[:opts.MaxSources]
	}

	messages := []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: loadPrompt(s.prompts, driven.PromptSynthesis)},
		{Role: driven.RoleUser, Content: buildSourceContext(sources) + "\nQuestion: " + query},
	}
	completion, err := s.router.Complete(ctx, query, messages, driven.ChatOptions{Temperature: 0.3})
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	answer := &domain.SynthesizedAnswer{
		Query:   query,
		Sources: sources,
		Model:   &completion.Selection,
		Routing: routing,
	}

	reply, err := decodeModelJSON(completion.Text, func(r *synthesisReply) bool {
		return strings.TrimSpace(r.text()) != ""
	})
	if err != nil {
		logger.Warn("Synthesis reply could not be parsed, using raw text")
		metrics.Default().IncDegraded("synthesize", string(domain.DegradationParse))
		answer.ConsolidatedAnswer = strings.TrimSpace(completion.Text)
		answer.Confidence = math.Min(float64(len(sources))/float64(opts.MaxSources), maxParseFallbackConfidence)
		answer.Degradation = domain.DegradationParse
		return answer, nil
	}

	answer.ConsolidatedAnswer = reply.text()
	if reply.Confidence != nil {
		answer.Confidence = domain.ClampUnit(*reply.Confidence)
	} else {
		answer.Confidence = math.Min(float64(len(sources))/float64(opts.MaxSources), maxParseFallbackConfidence)
	}
	if opts.IncludeConflicts {
		answer.Conflicts = reply.Conflicts
	}

	logger.Info("Synthesized answer from %d sources (confidence %.2f)", len(sources), answer.Confidence)
	return answer, nil
}

// buildSourceContext numbers the sources for the prompt.
func buildSourceContext(sources []domain.SourceReference) string {
	var b strings.Builder
	b.WriteString("Sources:\n")
	for i, src := range sources {
		fmt.Fprintf(&b, "[%d] %s (relevance %.2f)\n%s\n\n", i+1, src.SourceName, src.RelevanceScore,
			strings.TrimSpace(src.Content))
	}
	return b.String()
}
