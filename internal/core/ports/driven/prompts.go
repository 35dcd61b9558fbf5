package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptSynthesis is the system prompt for answer synthesis.
	// It has no format placeholders; the numbered sources and the question
	// are sent as the user message.
	PromptSynthesis = "synthesis"

	// PromptComparison is the system prompt for two-document comparison.
	// It has no format placeholders.
	PromptComparison = "comparison"
)

// DefaultPrompts holds the built-in prompt templates. They seed the
// user-editable prompt files and are used when a template cannot be loaded.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var DefaultPrompts = map[string]string{
	PromptSynthesis: `You answer questions using only the numbered sources provided by the user.

Instructions:
1. Combine what the sources say into one consolidated answer.
2. Refer to sources by their number, e.g. [1], [2].
3. If sources disagree, describe each position and name the source that holds it.
4. If the sources do not contain the answer, say so plainly.
5. Estimate how well the sources support your answer as a confidence between 0 and 1.

Respond with a single JSON object and nothing else:
{"answer": "...", "confidence": 0.0, "conflicts": [{"topic": "...", "positions": [{"source_name": "...", "position": "..."}]}]}`,

	PromptComparison: `You compare two documents provided by the user.

Identify the themes they share, what is unique to each, and the key differences between them.
Estimate their overall similarity between 0 and 1.

Respond with a single JSON object and nothing else:
{"similarity": 0.0, "common_themes": ["..."], "unique_to_doc1": ["..."], "unique_to_doc2": ["..."], "key_differences": ["..."]}`,
}
