package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or chat.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API (or a compatible endpoint).
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// Kind returns whether the provider runs locally or in the cloud.
func (p AIProvider) Kind() ProviderKind {
	if p == AIProviderOllama {
		return ProviderLocal
	}
	return ProviderCloud
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
// Anthropic offers no embedding API.
func (e EmbeddingSettings) IsConfigured() bool {
	switch e.Provider {
	case AIProviderOllama:
		return true
	case AIProviderOpenAI:
		return e.APIKey != ""
	default:
		return false
	}
}

// LLMSettings holds the configuration of one chat provider slot.
type LLMSettings struct {
	// Provider is the chat service provider.
	Provider AIProvider

	// Model is the default model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// InvokerSettings is the retry and admission policy applied to external calls.
type InvokerSettings struct {
	MaxInFlight    int
	MinSpacing     time.Duration
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	MaxAttempts    int
	AttemptTimeout time.Duration
}

// DiscoverySettings bounds relationship discovery.
type DiscoverySettings struct {
	// MaxCandidates caps the sources entering the pairwise loop.
	// The loop is quadratic, so this trades recall for latency.
	MaxCandidates int

	MinSimilarity    float64
	MaxRelationships int
}

// ComparisonSettings bounds the content sent to the comparison model.
type ComparisonSettings struct {
	// MaxChunks is the number of representative chunks fetched per document.
	MaxChunks int

	// MaxChars caps each side's concatenated content.
	MaxChars int

	// Probe is the fixed query used for representative sampling.
	Probe string
}

// ChunkingSettings sizes the chunks written at ingestion, in characters.
type ChunkingSettings struct {
	Size    int
	Overlap int
}

// RouterSettings names the models used per complexity level.
type RouterSettings struct {
	LocalModel      string
	CloudSmallModel string
	CloudLargeModel string
	ProbeTimeout    time.Duration
}

// EngineSettings holds every tunable of the query engine.
type EngineSettings struct {
	Invoker    InvokerSettings
	Discovery  DiscoverySettings
	Comparison ComparisonSettings
	Synthesis  SynthesisOptions
	Router     RouterSettings
	Chunking   ChunkingSettings

	// Local and Cloud are the two chat provider slots.
	Local LLMSettings
	Cloud LLMSettings

	Embedding EmbeddingSettings
}

// DefaultEngineSettings returns settings with the documented defaults.
func DefaultEngineSettings() EngineSettings {
	return EngineSettings{
		Invoker: InvokerSettings{
			MaxInFlight:    2,
			MinSpacing:     100 * time.Millisecond,
			BaseDelay:      time.Second,
			MaxDelay:       5 * time.Second,
			MaxAttempts:    3,
			AttemptTimeout: 60 * time.Second,
		},
		Discovery: DiscoverySettings{
			MaxCandidates:    10,
			MinSimilarity:    0.4,
			MaxRelationships: 50,
		},
		Comparison: ComparisonSettings{
			MaxChunks: 50,
			MaxChars:  2000,
			Probe:     "content summary main points",
		},
		Synthesis: DefaultSynthesisOptions(),
		Router: RouterSettings{
			LocalModel:      "llama3.2",
			CloudSmallModel: "gpt-4o-mini",
			CloudLargeModel: "gpt-4o",
			ProbeTimeout:    5 * time.Second,
		},
		Chunking: ChunkingSettings{
			Size:    1000,
			Overlap: 200,
		},
		Local: LLMSettings{
			Provider: AIProviderOllama,
			Model:    "llama3.2",
			BaseURL:  "http://localhost:11434",
		},
		Cloud: LLMSettings{
			Provider: AIProviderOpenAI,
			Model:    "gpt-4o-mini",
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
		},
	}
}

// Validate checks the settings for values that would break the engine.
func (s EngineSettings) Validate() error {
	switch {
	case s.Invoker.MaxInFlight <= 0:
		return fmt.Errorf("%w: invoker.max_in_flight must be positive", ErrInvalidInput)
	case s.Invoker.MaxAttempts <= 0:
		return fmt.Errorf("%w: invoker.max_attempts must be positive", ErrInvalidInput)
	case s.Invoker.MaxDelay < s.Invoker.BaseDelay:
		return fmt.Errorf("%w: invoker.max_delay is below invoker.base_delay", ErrInvalidInput)
	case s.Discovery.MaxCandidates < 2:
		return fmt.Errorf("%w: discovery.max_candidates must be at least 2", ErrInvalidInput)
	case s.Comparison.MaxChunks <= 0 || s.Comparison.MaxChars <= 0:
		return fmt.Errorf("%w: comparison limits must be positive", ErrInvalidInput)
	case s.Synthesis.MaxSources <= 0:
		return fmt.Errorf("%w: synthesis.max_sources must be positive", ErrInvalidInput)
	case s.Chunking.Size <= 0 || s.Chunking.Overlap < 0 || s.Chunking.Overlap >= s.Chunking.Size:
		return fmt.Errorf("%w: chunking.overlap must be below a positive chunking.size", ErrInvalidInput)
	case s.Local.Provider != "" && s.Local.Provider.Kind() != ProviderLocal:
		return fmt.Errorf("%w: local provider %q is not a local provider", ErrInvalidInput, s.Local.Provider)
	case s.Cloud.Provider != "" && s.Cloud.Provider.Kind() != ProviderCloud:
		return fmt.Errorf("%w: cloud provider %q is not a cloud provider", ErrInvalidInput, s.Cloud.Provider)
	}
	return nil
}

// EmbeddingDimensions returns the known vector sizes by embedding model.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
