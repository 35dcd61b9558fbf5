package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-synth/internal/logger"
	"github.com/custodia-labs/sercha-synth/internal/metrics"
	"github.com/custodia-labs/sercha-synth/internal/ratelimit"
)

// Ensure ComparisonService implements the interface.
var _ driving.ComparisonService = (*ComparisonService)(nil)

// ComparisonService compares two documents with the routed language model.
type ComparisonService struct {
	registry driven.SourceRegistry
	vectors  driven.VectorSearcher
	texts    driven.TextStore
	router   driving.ModelRouter
	prompts  driven.PromptStore
	vector   *ratelimit.Invoker
	storage  *ratelimit.Invoker

	mu       sync.RWMutex
	settings domain.ComparisonSettings
}

// NewComparisonService creates a new comparison service.
// The texts and prompts parameters are optional (can be nil).
func NewComparisonService(
	registry driven.SourceRegistry,
	vectors driven.VectorSearcher,
	texts driven.TextStore,
	router driving.ModelRouter,
	prompts driven.PromptStore,
	invokers *ratelimit.Registry,
	settings domain.ComparisonSettings,
) *ComparisonService {
	return &ComparisonService{
		registry: registry,
		vectors:  vectors,
		texts:    texts,
		router:   router,
		prompts:  prompts,
		vector:   invokers.For(ratelimit.Vector),
		storage:  invokers.For(ratelimit.Storage),
		settings: settings,
	}
}

// SetSettings replaces the probe and the content caps.
func (s *ComparisonService) SetSettings(settings domain.ComparisonSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

func (s *ComparisonService) current() domain.ComparisonSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// comparisonReply is the structured output requested from the model.
type comparisonReply struct {
	Similarity     *float64 `json:"similarity"`
	CommonThemes   []string `json:"common_themes"`
	UniqueToDoc1   []string `json:"unique_to_doc1"`
	UniqueToDoc2   []string `json:"unique_to_doc2"`
	KeyDifferences []string `json:"key_differences"`
}

// Compare resolves both documents and compares their content.
func (s *ComparisonService) Compare(
	ctx context.Context, doc1, doc2, ownerID string,
) (*domain.ComparisonResult, error) {
	logger.Section("Document Comparison")

	src1, err := s.resolve(ctx, doc1, ownerID)
	if err != nil {
		return nil, err
	}
	src2, err := s.resolve(ctx, doc2, ownerID)
	if err != nil {
		return nil, err
	}
	logger.Debug("Comparing %s (%s) with %s (%s)", src1.Name, src1.ID, src2.Name, src2.ID)

	content1, err := s.content(ctx, src1, ownerID)
	if err != nil {
		return nil, err
	}
	content2, err := s.content(ctx, src2, ownerID)
	if err != nil {
		return nil, err
	}
	if content1 == "" || content2 == "" {
		logger.Info("Comparison pending: content not available for both documents")
		metrics.Default().IncDegraded("compare", string(domain.DegradationPending))
		return domain.PendingComparison(src1.Ref(), src2.Ref()), nil
	}

	messages := []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: loadPrompt(s.prompts, driven.PromptComparison)},
		{Role: driven.RoleUser, Content: fmt.Sprintf("Document 1: %s\n%s\n\nDocument 2: %s\n%s",
			src1.Name, content1, src2.Name, content2)},
	}
	completion, err := s.router.Complete(ctx, "Compare "+src1.Name+" and "+src2.Name, messages,
		driven.ChatOptions{Temperature: 0.2})
	if err != nil {
		return nil, fmt.Errorf("compare documents: %w", err)
	}

	reply, err := decodeModelJSON(completion.Text, func(r *comparisonReply) bool { return r.Similarity != nil })
	if err != nil {
		logger.Warn("Comparison reply could not be parsed, using fallback result")
		metrics.Default().IncDegraded("compare", string(domain.DegradationParse))
		return domain.FallbackComparison(src1.Ref(), src2.Ref()), nil
	}

	return &domain.ComparisonResult{
		Doc1:           src1.Ref(),
		Doc2:           src2.Ref(),
		Similarity:     domain.ClampUnit(*reply.Similarity),
		CommonThemes:   nonNil(reply.CommonThemes),
		UniqueToDoc1:   nonNil(reply.UniqueToDoc1),
		UniqueToDoc2:   nonNil(reply.UniqueToDoc2),
		KeyDifferences: nonNil(reply.KeyDifferences),
	}, nil
}

// resolve finds a source by id, then by scanning the owner's sources for a
// matching id or display name.
func (s *ComparisonService) resolve(ctx context.Context, ref, ownerID string) (*domain.Source, error) {
	src, err := s.registry.GetSource(ctx, ref, ownerID)
	if err != nil {
		logger.Debug("Direct lookup of %q failed: %v", ref, err)
	}
	if src != nil {
		return src, nil
	}

	sources, err := s.registry.ListSources(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", ref, err)
	}
	for i := range sources {
		if sources[i].ID == ref || strings.EqualFold(sources[i].Name, ref) {
			return &sources[i], nil
		}
	}
	return nil, &domain.DocumentNotFoundError{ID: ref, OwnerID: ownerID}
}

// content returns up to MaxChars of representative text for a source:
// probe hits topped up with sampled chunks in document order, else the
// stored preview, else the full text. An empty string means nothing is
// available yet.
func (s *ComparisonService) content(ctx context.Context, src *domain.Source, ownerID string) (string, error) {
	cfg := s.current()
	hits, err := ratelimit.Invoke(ctx, s.vector, func(ctx context.Context) ([]driven.VectorHit, error) {
		return s.vectors.QuerySimilar(ctx, cfg.Probe, ownerID, src.ID, cfg.MaxChunks)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		logger.Warn("Chunk retrieval for %s failed: %v", src.ID, err)
	}
	if len(hits) > cfg.MaxChunks && cfg.MaxChunks > 0 {
		hits = hits[:cfg.MaxChunks]
	}
	hits, err = s.fill(ctx, src.ID, ownerID, hits, cfg.MaxChunks)
	if err != nil {
		return "", err
	}
	if len(hits) > 0 {
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].ChunkIndex < hits[j].ChunkIndex })
		parts := make([]string, 0, len(hits))
		for _, h := range hits {
			if t := strings.TrimSpace(h.Content); t != "" {
				parts = append(parts, t)
			}
		}
		if text := strings.Join(parts, "\n\n"); text != "" {
			return truncateRunes(text, cfg.MaxChars), nil
		}
	}

	if s.texts == nil {
		return "", nil
	}
	for _, load := range []func(context.Context, string) (string, error){s.texts.PreviewText, s.texts.FullText} {
		text, err := ratelimit.Invoke(ctx, s.storage, func(ctx context.Context) (string, error) {
			return load(ctx, src.ID)
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			logger.Debug("Stored text for %s unavailable: %v", src.ID, err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			return truncateRunes(text, cfg.MaxChars), nil
		}
	}
	return "", nil
}

// fill tops hits up to MaxChunks with chunks sampled across the source,
// so chunks that share no words with the probe still reach the model.
func (s *ComparisonService) fill(
	ctx context.Context, sourceID, ownerID string, hits []driven.VectorHit, limit int,
) ([]driven.VectorHit, error) {
	sampler, ok := s.vectors.(driven.ChunkSampler)
	if !ok || (limit > 0 && len(hits) >= limit) {
		return hits, nil
	}
	sample, err := ratelimit.Invoke(ctx, s.vector, func(ctx context.Context) ([]driven.VectorHit, error) {
		return sampler.SampleChunks(ctx, ownerID, sourceID, limit)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn("Chunk sampling for %s failed: %v", sourceID, err)
		return hits, nil
	}

	seen := make(map[int]struct{}, len(hits))
	for _, h := range hits {
		seen[h.ChunkIndex] = struct{}{}
	}
	for _, h := range sample {
		if limit > 0 && len(hits) >= limit {
			break
		}
		if _, dup := seen[h.ChunkIndex]; dup {
			continue
		}
		seen[h.ChunkIndex] = struct{}{}
		hits = append(hits, h)
	}
	return hits, nil
}

// truncateRunes caps text to n characters.
func truncateRunes(text string, n int) string {
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n])
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
