package services

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNoJSONObject = errors.New("no JSON object in model reply")

// decodeModelJSON decodes the first JSON object in a free-form model reply
// that valid accepts. Code fences, surrounding prose and stray objects that
// lack the expected fields are skipped. A nil valid accepts any object.
func decodeModelJSON[T any](reply string, valid func(*T) bool) (*T, error) {
	for _, candidate := range jsonObjectCandidates(reply) {
		var v T
		if err := json.Unmarshal([]byte(candidate), &v); err != nil {
			continue
		}
		if valid == nil || valid(&v) {
			return &v, nil
		}
	}
	return nil, errNoJSONObject
}

// jsonObjectCandidates returns every balanced {...} span of text, in order
// of their opening brace.
func jsonObjectCandidates(text string) []string {
	var out []string
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end := matchBrace(text, start); end > start {
			out = append(out, text[start:end+1])
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return out
}

// matchBrace returns the index of the brace closing the one at start,
// or -1. Braces inside JSON strings are skipped.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
