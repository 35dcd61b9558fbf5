package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.SourceSearchService.
type mockSearchService struct {
	outcome   *domain.SearchOutcome
	err       error
	lastOwner string
	lastOpts  domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context, query, ownerID string, opts domain.SearchOptions,
) (*domain.SearchOutcome, error) {
	m.lastOwner = ownerID
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.outcome == nil {
		return &domain.SearchOutcome{Query: query}, nil
	}
	return m.outcome, nil
}

// mockSynthesisService is a mock implementation of driving.SynthesisService.
type mockSynthesisService struct {
	answer   *domain.SynthesizedAnswer
	err      error
	lastOpts domain.SynthesisOptions
}

func (m *mockSynthesisService) Synthesize(
	_ context.Context, _, _ string, opts domain.SynthesisOptions,
) (*domain.SynthesizedAnswer, error) {
	m.lastOpts = opts
	return m.answer, m.err
}

// mockComparisonService is a mock implementation of driving.ComparisonService.
type mockComparisonService struct {
	result *domain.ComparisonResult
	err    error
}

func (m *mockComparisonService) Compare(_ context.Context, _, _, _ string) (*domain.ComparisonResult, error) {
	return m.result, m.err
}

// mockRelationshipService is a mock implementation of driving.RelationshipService.
type mockRelationshipService struct {
	edges    []domain.RelationshipEdge
	err      error
	lastOpts domain.DiscoveryOptions
}

func (m *mockRelationshipService) Discover(
	_ context.Context, _ string, opts domain.DiscoveryOptions,
) ([]domain.RelationshipEdge, error) {
	m.lastOpts = opts
	return m.edges, m.err
}

// mockModelRouter is a mock implementation of driving.ModelRouter.
type mockModelRouter struct {
	selection *domain.ModelSelection
	err       error
}

func (m *mockModelRouter) Select(_ context.Context, _ string) (*domain.ModelSelection, error) {
	return m.selection, m.err
}

func (m *mockModelRouter) Complete(
	_ context.Context, _ string, _ []driven.ChatMessage, _ driven.ChatOptions,
) (*driving.Completion, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &driving.Completion{Selection: *m.selection}, nil
}

// mockQueryRouter is a mock implementation of driving.QueryRouter.
type mockQueryRouter struct {
	decision *domain.RoutingDecision
	err      error
}

func (m *mockQueryRouter) Classify(_ context.Context, _, _ string) (*domain.RoutingDecision, error) {
	return m.decision, m.err
}

// mockSourceService is a mock implementation of driving.SourceService.
type mockSourceService struct {
	sources []domain.Source
	err     error
}

func (m *mockSourceService) Add(_ context.Context, _ driving.AddSourceRequest) (*domain.Source, error) {
	return nil, m.err
}

func (m *mockSourceService) List(_ context.Context, _ string) ([]domain.Source, error) {
	return m.sources, m.err
}

func (m *mockSourceService) Remove(_ context.Context, _, _ string) error {
	return m.err
}
