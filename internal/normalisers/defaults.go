package normalisers

import (
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-synth/internal/normalisers/html"
	"github.com/custodia-labs/sercha-synth/internal/normalisers/markdown"
	"github.com/custodia-labs/sercha-synth/internal/normalisers/plaintext"
)

// Defaults returns the built-in normalisers.
func Defaults() []driven.Normaliser {
	return []driven.Normaliser{
		plaintext.New(),
		markdown.New(),
		html.New(),
	}
}
