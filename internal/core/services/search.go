package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-synth/internal/logger"
	"github.com/custodia-labs/sercha-synth/internal/metrics"
	"github.com/custodia-labs/sercha-synth/internal/ratelimit"
)

// Ensure SourceSearchService implements the interface.
var _ driving.SourceSearchService = (*SourceSearchService)(nil)

// DefaultSearchLimit is used when SearchOptions.Limit is not positive.
const DefaultSearchLimit = 10

// extraHitsPerSource is requested from every source on top of its even
// share of the limit, so uneven recall does not starve the merge.
const extraHitsPerSource = 2

// SourceSearchService fans a query out across an owner's sources.
type SourceSearchService struct {
	registry driven.SourceRegistry
	vectors  driven.VectorSearcher
	invoker  *ratelimit.Invoker
}

// NewSourceSearchService creates a new search service. Vector queries go
// through the registry's "vector" invoker.
func NewSourceSearchService(
	registry driven.SourceRegistry,
	vectors driven.VectorSearcher,
	invokers *ratelimit.Registry,
) *SourceSearchService {
	return &SourceSearchService{
		registry: registry,
		vectors:  vectors,
		invoker:  invokers.For(ratelimit.Vector),
	}
}

// sourceHits is the result of querying one source.
type sourceHits struct {
	hits []driven.VectorHit
	err  error
}

// Search queries every completed candidate source and merges the hits.
func (s *SourceSearchService) Search(
	ctx context.Context, query, ownerID string, opts domain.SearchOptions,
) (*domain.SearchOutcome, error) {
	logger.Section("Source Search")
	logger.Debug("Query: %q, owner: %s", query, ownerID)
	start := time.Now()

	outcome := &domain.SearchOutcome{
		Query:   query,
		Results: []domain.SourceReference{},
	}

	if strings.TrimSpace(query) == "" {
		logger.Debug("Empty query, returning no results")
		return outcome, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	sources, err := s.registry.ListSources(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	candidates := filterCandidates(sources, opts)
	outcome.SourcesSearched = len(candidates)
	logger.Debug("Candidates: %d of %d sources", len(candidates), len(sources))
	if len(candidates) == 0 {
		outcome.ElapsedMs = time.Since(start).Milliseconds()
		return outcome, nil
	}

	topK := (limit+len(candidates)-1)/len(candidates) + extraHitsPerSource
	logger.Debug("Limit: %d, per-source topK: %d", limit, topK)

	// Every task records its own outcome and returns nil, so one failing
	// source never cancels the others.
	perSource := make([]sourceHits, len(candidates))
	var g errgroup.Group
	for i := range candidates {
		src := candidates[i]
		g.Go(func() error {
			hits, err := ratelimit.Invoke(ctx, s.invoker, func(ctx context.Context) ([]driven.VectorHit, error) {
				return s.vectors.QuerySimilar(ctx, query, ownerID, src.ID, topK)
			})
			perSource[i] = sourceHits{hits: hits, err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var merged []domain.SourceReference
	for i, res := range perSource {
		src := candidates[i]
		if res.err != nil {
			logger.Warn("Source %s (%s) unavailable: %v", src.Name, src.ID, res.err)
			metrics.Default().IncSourceFailure("search")
			outcome.Failures = append(outcome.Failures, domain.NewSourceFailure(src, res.err))
			continue
		}
		logger.Debug("Source %s: %d hits", src.Name, len(res.hits))
		for _, h := range res.hits {
			merged = append(merged, domain.SourceReference{
				SourceID:       src.ID,
				SourceName:     src.Name,
				ChunkIndex:     h.ChunkIndex,
				Content:        h.Content,
				RelevanceScore: domain.ClampUnit(h.RelevanceScore),
			})
		}
	}

	merged = dedupeReferences(merged)
	outcome.TotalCandidates = len(merged)

	results := make([]domain.SourceReference, 0, len(merged))
	for _, r := range merged {
		if r.RelevanceScore >= opts.MinRelevance {
			results = append(results, r)
		}
	}
	if len(results) > limit {
		results = results[:limit]
	}
	outcome.Results = results
	outcome.ElapsedMs = time.Since(start).Milliseconds()

	logger.Info("Search: %d results from %d sources (%d failed) in %dms",
		len(results), len(candidates), len(outcome.Failures), outcome.ElapsedMs)
	return outcome, nil
}

// filterCandidates keeps completed sources matching the options, in
// registry order.
func filterCandidates(sources []domain.Source, opts domain.SearchOptions) []domain.Source {
	include := toSet(opts.IncludeSourceIDs)
	exclude := toSet(opts.ExcludeSourceIDs)

	var out []domain.Source
	for i := range sources {
		src := sources[i]
		if !src.IsCompleted() {
			continue
		}
		if len(include) > 0 {
			if _, ok := include[src.ID]; !ok {
				continue
			}
		}
		if _, ok := exclude[src.ID]; ok {
			continue
		}
		if len(opts.Kinds) > 0 && !containsKind(opts.Kinds, src.EffectiveKind()) {
			continue
		}
		out = append(out, src)
	}
	return out
}

// dedupeReferences orders references by relevance desc, then source id,
// then chunk index, and drops repeats of the same chunk or of identical
// content. The first, highest-scored occurrence wins.
func dedupeReferences(refs []domain.SourceReference) []domain.SourceReference {
	sort.SliceStable(refs, func(i, j int) bool {
		return lessReference(refs[i], refs[j])
	})

	type chunkKey struct {
		sourceID string
		index    int
	}
	seenChunk := make(map[chunkKey]struct{}, len(refs))
	seenContent := make(map[string]struct{}, len(refs))

	out := make([]domain.SourceReference, 0, len(refs))
	for _, r := range refs {
		ck := chunkKey{r.SourceID, r.ChunkIndex}
		if _, ok := seenChunk[ck]; ok {
			continue
		}
		content := normaliseContent(r.Content)
		if content != "" {
			if _, ok := seenContent[content]; ok {
				continue
			}
			seenContent[content] = struct{}{}
		}
		seenChunk[ck] = struct{}{}
		out = append(out, r)
	}
	return out
}

func lessReference(a, b domain.SourceReference) bool {
	if a.RelevanceScore != b.RelevanceScore {
		return a.RelevanceScore > b.RelevanceScore
	}
	if a.SourceID != b.SourceID {
		return a.SourceID < b.SourceID
	}
	return a.ChunkIndex < b.ChunkIndex
}

func normaliseContent(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func containsKind(kinds []domain.SourceKind, k domain.SourceKind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}
