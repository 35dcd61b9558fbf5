package driven

import (
	"context"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
)

// LLMProvider is an interchangeable chat-completion backend.
// The core assumes nothing beyond liveness and completion.
//
// Implementations include:
//   - Ollama (local models)
//   - OpenAI (and compatible endpoints)
//   - Anthropic (Claude)
type LLMProvider interface {
	// Chat conducts a multi-turn conversation and returns the reply text.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// Ping validates the service is reachable by making a lightweight request.
	Ping(ctx context.Context) error

	// Name returns the provider identifier (e.g. "ollama"). It also keys
	// the provider's invoker, so it must be stable.
	Name() string

	// Kind reports whether the provider is local or cloud.
	Kind() domain.ProviderKind

	// ModelName returns the default model.
	ModelName() string

	// Close releases resources.
	Close() error
}

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// Model overrides the provider's default model when set.
	Model string

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}
