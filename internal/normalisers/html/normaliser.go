package html

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-synth/internal/core/ports/driven"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser reduces an HTML page to its visible text, one block per line.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// FileTypes returns the file types this normaliser handles.
func (n *Normaliser) FileTypes() []string {
	return []string{"html", "htm", "xhtml"}
}

// Normalise returns the visible text of a page. The title becomes the
// first line unless the body already opens with it. List items are
// prefixed with "- ".
func (n *Normaliser) Normalise(_ context.Context, content string) (string, error) {
	title := ""
	if m := titleTag.FindStringSubmatch(content); m != nil {
		title = collapse(html.UnescapeString(m[1]))
	}

	text := visibleText(content)
	if title != "" && !strings.HasPrefix(text, title) {
		text = strings.TrimSpace(title + "\n" + text)
	}
	return text, nil
}

var (
	titleTag = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	comment  = regexp.MustCompile(`(?s)<!--.*?-->`)
	listItem = regexp.MustCompile(`(?i)<li\b[^>]*>`)
	lineTag  = regexp.MustCompile(`(?i)</?(p|div|br|hr|h[1-6]|ul|ol|li|dt|dd|tr|blockquote|pre|table|section|article|main|header)\b[^>]*>`)
	cellTag  = regexp.MustCompile(`(?i)</(td|th)>`)
	anyTag   = regexp.MustCompile(`<[^>]+>`)
	blanks   = regexp.MustCompile(`[ \t\f\v\r\x{a0}]+`)

	// hidden lists elements dropped with their content. Go's regexp has
	// no backreferences, so each gets its own pattern.
	hidden = func() []*regexp.Regexp {
		var res []*regexp.Regexp
		for _, tag := range []string{"head", "title", "script", "style", "noscript", "template", "svg", "nav", "footer"} {
			res = append(res, regexp.MustCompile(`(?is)<`+tag+`\b[^>]*>.*?</`+tag+`>`))
		}
		return res
	}()
)

func visibleText(content string) string {
	content = comment.ReplaceAllString(content, "")
	for _, re := range hidden {
		content = re.ReplaceAllString(content, "")
	}

	content = listItem.ReplaceAllString(content, "\n- ")
	content = lineTag.ReplaceAllString(content, "\n")
	content = cellTag.ReplaceAllString(content, " ")
	content = anyTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)

	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if line = collapse(line); line != "" && line != "-" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// collapse trims s and squeezes runs of horizontal space.
func collapse(s string) string {
	return strings.TrimSpace(blanks.ReplaceAllString(s, " "))
}
