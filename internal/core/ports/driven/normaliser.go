package driven

import "context"

// Normaliser converts the raw content of a file into plain text before it
// is chunked.
type Normaliser interface {
	// FileTypes returns the file types handled, lowercase without a dot.
	FileTypes() []string

	// Normalise returns the readable text of content.
	Normalise(ctx context.Context, content string) (string, error)
}
