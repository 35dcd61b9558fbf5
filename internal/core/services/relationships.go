package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-synth/internal/logger"
	"github.com/custodia-labs/sercha-synth/internal/ratelimit"
)

// Ensure RelationshipService implements the interface.
var _ driving.RelationshipService = (*RelationshipService)(nil)

// RelationshipService builds a relationship graph between an owner's
// documents from the similarity heuristic.
type RelationshipService struct {
	registry driven.SourceRegistry
	texts    driven.TextStore
	invoker  *ratelimit.Invoker

	mu       sync.RWMutex
	settings domain.DiscoverySettings
}

// NewRelationshipService creates a new relationship service. Preview text is
// loaded through the registry's "storage" invoker.
func NewRelationshipService(
	registry driven.SourceRegistry,
	texts driven.TextStore,
	invokers *ratelimit.Registry,
	settings domain.DiscoverySettings,
) *RelationshipService {
	return &RelationshipService{
		registry: registry,
		texts:    texts,
		invoker:  invokers.For(ratelimit.Storage),
		settings: settings,
	}
}

// SetSettings replaces the discovery defaults and caps.
func (s *RelationshipService) SetSettings(settings domain.DiscoverySettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

func (s *RelationshipService) current() domain.DiscoverySettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Discover scores every pair among the owner's first MaxCandidates
// completed sources. Non-positive options fall back to the configured
// defaults.
func (s *RelationshipService) Discover(
	ctx context.Context, ownerID string, opts domain.DiscoveryOptions,
) ([]domain.RelationshipEdge, error) {
	logger.Section("Relationship Discovery")

	cfg := s.current()
	if opts.MinSimilarity <= 0 {
		opts.MinSimilarity = cfg.MinSimilarity
	}
	if opts.MaxRelationships <= 0 {
		opts.MaxRelationships = cfg.MaxRelationships
	}

	sources, err := s.registry.ListSources(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	candidates := filterCandidates(sources, domain.SearchOptions{})
	if len(candidates) < 2 {
		logger.Debug("Fewer than 2 completed sources, nothing to relate")
		return []domain.RelationshipEdge{}, nil
	}
	if limit := cfg.MaxCandidates; limit > 0 && len(candidates) > limit {
		logger.Debug("Capping candidates from %d to %d", len(candidates), limit)
		candidates = candidates[:limit]
	}

	samples := make([]SourceSample, len(candidates))
	failed := make(map[int]error)
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := candidates[i].ID
		preview, err := ratelimit.Invoke(ctx, s.invoker, func(ctx context.Context) (string, error) {
			return s.texts.PreviewText(ctx, id)
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warn("Preview of %s unavailable, skipping its pairs: %v", id, err)
			failed[i] = err
		}
		samples[i] = SourceSample{Source: candidates[i], Preview: preview}
	}

	edges := make([]domain.RelationshipEdge, 0)
pairs:
	for i := 0; i < len(samples); i++ {
		if _, ok := failed[i]; ok {
			continue
		}
		for j := i + 1; j < len(samples); j++ {
			if _, ok := failed[j]; ok {
				continue
			}
			b := ExplainSimilarity(samples[i], samples[j])
			if b.Score < opts.MinSimilarity {
				continue
			}
			edges = append(edges, domain.NewRelationshipEdge(
				samples[i].Source.ID, samples[j].Source.ID, b.Score, b.Evidence()))
			if len(edges) >= opts.MaxRelationships {
				logger.Debug("Reached %d relationships, stopping early", len(edges))
				break pairs
			}
		}
	}

	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].Strength != edges[j].Strength {
			return edges[i].Strength > edges[j].Strength
		}
		if edges[i].SourceDocID != edges[j].SourceDocID {
			return edges[i].SourceDocID < edges[j].SourceDocID
		}
		return edges[i].TargetDocID < edges[j].TargetDocID
	})
	if len(edges) > opts.MaxRelationships {
		edges = edges[:opts.MaxRelationships]
	}

	logger.Info("Discovered %d relationships among %d sources", len(edges), len(candidates))
	return edges, nil
}
