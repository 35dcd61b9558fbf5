// Package rank scores stored chunks against a query for the storage adapters.
package rank

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driven"
)

// Cosine returns the cosine similarity of a and b clamped to [0, 1].
// Vectors of different length or zero norm score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return domain.ClampUnit(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// Lexical returns the share of distinct query terms present in content.
func Lexical(query, content string) float64 {
	terms := Terms(query)
	if len(terms) == 0 {
		return 0
	}
	have := make(map[string]struct{})
	for _, t := range Terms(content) {
		have[t] = struct{}{}
	}
	seen := make(map[string]struct{}, len(terms))
	var matched int
	for _, t := range terms {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := have[t]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(seen))
}

// Terms splits text into lowercased letter/digit runs of two or more runes.
func Terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			out = append(out, f)
		}
	}
	return out
}

// Score rates one chunk: cosine when both vectors exist, lexical otherwise.
func Score(query string, queryVec []float32, chunk domain.Chunk) float64 {
	if len(queryVec) > 0 && chunk.HasEmbedding() {
		return Cosine(queryVec, chunk.Embedding)
	}
	return Lexical(query, chunk.Content)
}

// TopK scores chunks, drops zero scores and returns the best topK hits
// ordered by score desc then chunk index.
func TopK(query string, queryVec []float32, chunks []domain.Chunk, topK int) []driven.VectorHit {
	hits := make([]driven.VectorHit, 0, len(chunks))
	for _, c := range chunks {
		score := Score(query, queryVec, c)
		if score <= 0 {
			continue
		}
		hits = append(hits, driven.VectorHit{
			Content:        c.Content,
			RelevanceScore: score,
			ChunkIndex:     c.Index,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].RelevanceScore != hits[j].RelevanceScore {
			return hits[i].RelevanceScore > hits[j].RelevanceScore
		}
		return hits[i].ChunkIndex < hits[j].ChunkIndex
	})
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// Spread picks up to limit chunks evenly spaced across chunks, which must be
// in position order, and returns them as unscored hits.
func Spread(chunks []domain.Chunk, limit int) []driven.VectorHit {
	n := len(chunks)
	if limit <= 0 || limit > n {
		limit = n
	}
	hits := make([]driven.VectorHit, limit)
	for i := range hits {
		c := chunks[i*n/limit]
		hits[i] = driven.VectorHit{Content: c.Content, ChunkIndex: c.Index}
	}
	return hits
}
