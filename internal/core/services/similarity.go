package services

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
)

// PreviewBudget is the number of preview bytes the heuristic looks at.
// Longer previews are truncated so cost does not grow with document size.
const PreviewBudget = 4000

// Heuristic weights.
const (
	contentWeight  = 0.7
	metadataWeight = 0.3

	typeWeight      = 0.3
	wordCountWeight = 0.2
	nameWeight      = 0.3

	emptyPreviewScore = 0.1
	maxHeuristicScore = 0.95

	minTermRunes   = 4
	maxSharedTerms = 5
)

// SourceSample is a source together with a preview of its text.
type SourceSample struct {
	Source  domain.Source
	Preview string
}

// SimilarityBreakdown explains a heuristic score.
type SimilarityBreakdown struct {
	Score   float64
	Content float64

	// Metadata is the renormalised metadata score; HasMetadata is false when
	// no metadata input was present on both sides.
	Metadata    float64
	HasMetadata bool

	SharedTerms []string

	// SameType is nil when either file type is unknown.
	SameType *bool
	FileType string

	// LengthRatio is min/max of the word counts, or -1 when unknown.
	LengthRatio float64

	// NameSimilarity is the character Jaccard of the display names, or -1
	// when either name is empty.
	NameSimilarity float64

	// EmptyPreview is set when either preview was empty.
	EmptyPreview bool
}

// Evidence renders the breakdown as short human-readable strings.
func (b SimilarityBreakdown) Evidence() []string {
	if b.EmptyPreview {
		return []string{"content not available for comparison"}
	}
	var ev []string
	if len(b.SharedTerms) > 0 {
		ev = append(ev, "shared terms: "+strings.Join(b.SharedTerms, ", "))
	}
	ev = append(ev, fmt.Sprintf("content overlap %.2f", b.Content))
	if b.SameType != nil && *b.SameType {
		ev = append(ev, "same file type: "+b.FileType)
	}
	if b.LengthRatio >= 0 {
		ev = append(ev, fmt.Sprintf("length ratio %.2f", b.LengthRatio))
	}
	if b.NameSimilarity >= 0.5 {
		ev = append(ev, fmt.Sprintf("similar names %.2f", b.NameSimilarity))
	}
	return ev
}

// EstimateSimilarity returns a cheap relatedness estimate in [0, 0.95].
// It never performs I/O and is symmetric in its arguments.
func EstimateSimilarity(a, b SourceSample) float64 {
	return ExplainSimilarity(a, b).Score
}

// ExplainSimilarity computes the heuristic score with its breakdown.
func ExplainSimilarity(a, b SourceSample) SimilarityBreakdown {
	out := SimilarityBreakdown{LengthRatio: -1, NameSimilarity: -1}

	pa := truncatePreview(a.Preview)
	pb := truncatePreview(b.Preview)
	if strings.TrimSpace(pa) == "" || strings.TrimSpace(pb) == "" {
		out.EmptyPreview = true
		out.Score = emptyPreviewScore
		return out
	}

	wa, wb := termSet(pa), termSet(pb)
	out.Content = jaccard(wa, wb)
	out.SharedTerms = sharedTerms(wa, wb, maxSharedTerms)

	var weighted, total float64
	if ta, tb := a.Source.FileType(), b.Source.FileType(); ta != "" && tb != "" {
		same := ta == tb
		out.SameType = &same
		out.FileType = ta
		if same {
			weighted += typeWeight
		}
		total += typeWeight
	}
	if a.Source.WordCount != nil && b.Source.WordCount != nil {
		lo, hi := *a.Source.WordCount, *b.Source.WordCount
		if lo > hi {
			lo, hi = hi, lo
		}
		if hi > 0 && lo >= 0 {
			out.LengthRatio = float64(lo) / float64(hi)
			weighted += wordCountWeight * out.LengthRatio
			total += wordCountWeight
		}
	}
	if a.Source.Name != "" && b.Source.Name != "" {
		out.NameSimilarity = jaccard(charSet(a.Source.Name), charSet(b.Source.Name))
		weighted += nameWeight * out.NameSimilarity
		total += nameWeight
	}

	score := out.Content
	if total > 0 {
		out.HasMetadata = true
		out.Metadata = weighted / total
		score = contentWeight*out.Content + metadataWeight*out.Metadata
	}
	out.Score = clamp(score, 0, maxHeuristicScore)
	return out
}

// truncatePreview cuts text to PreviewBudget bytes on a rune boundary.
func truncatePreview(text string) string {
	if len(text) <= PreviewBudget {
		return text
	}
	cut := PreviewBudget
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// termSet returns the lower-cased words of text longer than three runes.
func termSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(strings.ToLower(text), isWordSeparator) {
		if utf8.RuneCountInString(w) >= minTermRunes {
			set[w] = struct{}{}
		}
	}
	return set
}

func isWordSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// charSet returns the set of non-space runes of a display name.
func charSet(name string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, r := range strings.ToLower(name) {
		if !unicode.IsSpace(r) {
			set[string(r)] = struct{}{}
		}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for k := range small {
		if _, ok := large[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// sharedTerms returns up to n common terms, longest first.
func sharedTerms(a, b map[string]struct{}, n int) []string {
	var common []string
	for k := range a {
		if _, ok := b[k]; ok {
			common = append(common, k)
		}
	}
	sort.Slice(common, func(i, j int) bool {
		if len(common[i]) != len(common[j]) {
			return len(common[i]) > len(common[j])
		}
		return common[i] < common[j]
	})
	if len(common) > n {
		common = common[:n]
	}
	return common
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
