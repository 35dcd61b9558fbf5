// Package plaintext provides the Normaliser for plain text and source code.
package plaintext

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-synth/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// FileTypes returns the file types this normaliser handles.
func (n *Normaliser) FileTypes() []string {
	return []string{
		"txt", "text", "log", "csv", "tsv",
		"json", "yaml", "yml", "toml", "xml",
		"go", "py", "rs", "java", "c", "h", "cpp", "rb", "sh", "sql",
		"js", "jsx", "ts", "tsx", "css",
	}
}

// Normalise unifies line endings, drops a byte-order mark and control
// characters, and trims trailing whitespace. Invalid UTF-8 is replaced.
func (n *Normaliser) Normalise(_ context.Context, content string) (string, error) {
	content = strings.TrimPrefix(content, "\uFEFF")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, "\uFFFD")
	}

	content = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			return r
		}
		return -1
	}, content)

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}
