package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-synth/internal/logger"
)

// Ensure QueryRouter implements the interface.
var _ driving.QueryRouter = (*QueryRouter)(nil)

var smallTalk = map[string]bool{
	"hi": true, "hello": true, "hey": true, "thanks": true, "thank you": true,
	"good morning": true, "good afternoon": true, "good evening": true,
	"how are you": true, "who are you": true, "what can you do": true,
	"bye": true, "goodbye": true, "ok": true, "okay": true,
}

var documentWords = []string{
	"document", "my file", "the file", "pdf", "upload", "attachment",
	"report", "paper", "spreadsheet", "slides", "contract",
}

var knowledgeBaseWords = []string{
	"knowledge base", "knowledge-base", "kb", "wiki", "article", "faq",
	"handbook", "playbook", "documentation", "docs",
}

// Minimum length of a source name stem to count as mentioned in a query.
const minMentionLen = 3

// QueryRouter decides whether a query should be answered from documents,
// knowledge bases, both, or neither.
type QueryRouter struct {
	registry driven.SourceRegistry
}

// NewQueryRouter creates a routing-signal classifier.
func NewQueryRouter(registry driven.SourceRegistry) *QueryRouter {
	return &QueryRouter{registry: registry}
}

// Classify returns the routing decision for query.
func (r *QueryRouter) Classify(ctx context.Context, query, ownerID string) (*domain.RoutingDecision, error) {
	q := normaliseQuery(query)
	if q == "" || smallTalk[q] {
		return &domain.RoutingDecision{
			Target:     domain.RouteGeneral,
			Confidence: 0.9,
			Reasoning:  "greeting or small talk",
		}, nil
	}

	sources, err := r.registry.ListSources(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	completed := filterCandidates(sources, domain.SearchOptions{})
	if len(completed) == 0 {
		return &domain.RoutingDecision{
			Target:     domain.RouteGeneral,
			Confidence: 0.6,
			Reasoning:  "no processed sources",
		}, nil
	}

	var docs, kbs int
	var suggested []string
	mentioned := map[domain.SourceKind]int{}
	for i := range completed {
		src := &completed[i]
		if src.EffectiveKind() == domain.SourceKindKnowledgeBase {
			kbs++
		} else {
			docs++
		}
		if mentionsSource(q, src.Name) {
			suggested = append(suggested, src.Name)
			mentioned[src.EffectiveKind()]++
		}
	}

	wantsDocs := containsAny(q, documentWords)
	wantsKBs := containsAny(q, knowledgeBaseWords)

	d := &domain.RoutingDecision{SuggestedSources: suggested}
	switch {
	case len(suggested) > 0 && mentioned[domain.SourceKindKnowledgeBase] == 0:
		d.Target, d.Confidence, d.Reasoning = domain.RouteDocumentsOnly, 0.85, "query names documents"
	case len(suggested) > 0 && mentioned[domain.SourceKindDocument] == 0:
		d.Target, d.Confidence, d.Reasoning = domain.RouteKnowledgeBasesOnly, 0.85, "query names knowledge bases"
	case wantsDocs && !wantsKBs && docs > 0:
		d.Target, d.Confidence, d.Reasoning = domain.RouteDocumentsOnly, 0.8, "query refers to documents"
	case wantsKBs && !wantsDocs && kbs > 0:
		d.Target, d.Confidence, d.Reasoning = domain.RouteKnowledgeBasesOnly, 0.8, "query refers to knowledge bases"
	case kbs == 0:
		d.Target, d.Confidence, d.Reasoning = domain.RouteDocumentsOnly, 0.7, "owner has only documents"
	case docs == 0:
		d.Target, d.Confidence, d.Reasoning = domain.RouteKnowledgeBasesOnly, 0.7, "owner has only knowledge bases"
	default:
		d.Target, d.Confidence, d.Reasoning = domain.RouteBoth, 0.6, "no clear preference"
	}
	if len(suggested) > 0 && d.Confidence < 0.95 {
		d.Confidence = clamp(d.Confidence+0.05, 0, 0.95)
	}

	logger.Debug("Routing %q: %s (%.2f, %s)", query, d.Target, d.Confidence, d.Reasoning)
	return d, nil
}

// normaliseQuery lower-cases the query and trims trailing punctuation.
func normaliseQuery(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	q = strings.TrimRight(q, "!?.,; ")
	return strings.Join(strings.Fields(q), " ")
}

// mentionsSource reports whether the query names the source, with or
// without its extension.
func mentionsSource(q, name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if len(stem) < minMentionLen {
		return false
	}
	return strings.Contains(q, name) || containsWord(q, stem)
}

func containsAny(q string, words []string) bool {
	for _, w := range words {
		if containsWord(q, w) {
			return true
		}
	}
	return false
}

// containsWord reports whether w, or its plural, occurs in q on word
// boundaries.
func containsWord(q, w string) bool {
	for i := 0; ; {
		j := strings.Index(q[i:], w)
		if j < 0 {
			return false
		}
		start := i + j
		end := start + len(w)
		if end < len(q) && q[end] == 's' {
			end++
		}
		if (start == 0 || !isWordByte(q[start-1])) && (end == len(q) || !isWordByte(q[end])) {
			return true
		}
		i = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '_'
}
