package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for engine settings.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyInvokerMaxInFlight    = "invoker.max_in_flight"
	keyInvokerMinSpacing     = "invoker.min_spacing"
	keyInvokerBaseDelay      = "invoker.base_delay"
	keyInvokerMaxDelay       = "invoker.max_delay"
	keyInvokerMaxAttempts    = "invoker.max_attempts"
	keyInvokerAttemptTimeout = "invoker.attempt_timeout"

	keyDiscoveryMaxCandidates    = "discovery.max_candidates"
	keyDiscoveryMinSimilarity    = "discovery.min_similarity"
	keyDiscoveryMaxRelationships = "discovery.max_relationships"

	keyComparisonMaxChunks = "comparison.max_chunks"
	keyComparisonMaxChars  = "comparison.max_chars"
	keyComparisonProbe     = "comparison.probe"

	keySynthesisMaxSources       = "synthesis.max_sources"
	keySynthesisIncludeConflicts = "synthesis.include_conflicts"
	keySynthesisMinConfidence    = "synthesis.min_confidence"

	keyRouterLocalModel      = "router.local_model"
	keyRouterCloudSmallModel = "router.cloud_small_model"
	keyRouterCloudLargeModel = "router.cloud_large_model"
	keyRouterProbeTimeout    = "router.probe_timeout"

	keyChunkingSize    = "chunking.size"
	keyChunkingOverlap = "chunking.overlap"

	keyLocalProvider = "llm.local.provider"
	keyLocalModel    = "llm.local.model"
	keyLocalBaseURL  = "llm.local.base_url"
	keyCloudProvider = "llm.cloud.provider"
	keyCloudModel    = "llm.cloud.model"
	keyCloudBaseURL  = "llm.cloud.base_url"
	keyCloudAPIKey   = "llm.cloud.api_key"

	keyEmbedProvider = "embedding.provider"
	keyEmbedModel    = "embedding.model"
	keyEmbedBaseURL  = "embedding.base_url"
)

// API key environment variables, consulted when the config has no key.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
var apiKeyEnv = map[domain.AIProvider]string{
	domain.AIProviderOpenAI:    "OPENAI_API_KEY",
	domain.AIProviderAnthropic: "ANTHROPIC_API_KEY",
}

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
	kindBool
	kindDuration
	kindProvider
)

// settingKeys lists every recognised key with its value type.
var settingKeys = map[string]keyKind{
	keyInvokerMaxInFlight:        kindInt,
	keyInvokerMinSpacing:         kindDuration,
	keyInvokerBaseDelay:          kindDuration,
	keyInvokerMaxDelay:           kindDuration,
	keyInvokerMaxAttempts:        kindInt,
	keyInvokerAttemptTimeout:     kindDuration,
	keyDiscoveryMaxCandidates:    kindInt,
	keyDiscoveryMinSimilarity:    kindFloat,
	keyDiscoveryMaxRelationships: kindInt,
	keyComparisonMaxChunks:       kindInt,
	keyComparisonMaxChars:        kindInt,
	keyComparisonProbe:           kindString,
	keySynthesisMaxSources:       kindInt,
	keySynthesisIncludeConflicts: kindBool,
	keySynthesisMinConfidence:    kindFloat,
	keyRouterLocalModel:          kindString,
	keyRouterCloudSmallModel:     kindString,
	keyRouterCloudLargeModel:     kindString,
	keyRouterProbeTimeout:        kindDuration,
	keyChunkingSize:              kindInt,
	keyChunkingOverlap:           kindInt,
	keyLocalProvider:             kindProvider,
	keyLocalModel:                kindString,
	keyLocalBaseURL:              kindString,
	keyCloudProvider:             kindProvider,
	keyCloudModel:                kindString,
	keyCloudBaseURL:              kindString,
	keyCloudAPIKey:               kindString,
	keyEmbedProvider:             kindProvider,
	keyEmbedModel:                kindString,
	keyEmbedBaseURL:              kindString,
}

// SettingsService maps the config store onto engine settings.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// Get returns the engine settings: configured values over defaults.
func (s *SettingsService) Get() (domain.EngineSettings, error) {
	d := domain.DefaultEngineSettings()

	settings := domain.EngineSettings{
		Invoker: domain.InvokerSettings{
			MaxInFlight:    s.getInt(keyInvokerMaxInFlight, d.Invoker.MaxInFlight),
			MinSpacing:     s.getDuration(keyInvokerMinSpacing, d.Invoker.MinSpacing),
			BaseDelay:      s.getDuration(keyInvokerBaseDelay, d.Invoker.BaseDelay),
			MaxDelay:       s.getDuration(keyInvokerMaxDelay, d.Invoker.MaxDelay),
			MaxAttempts:    s.getInt(keyInvokerMaxAttempts, d.Invoker.MaxAttempts),
			AttemptTimeout: s.getDuration(keyInvokerAttemptTimeout, d.Invoker.AttemptTimeout),
		},
		Discovery: domain.DiscoverySettings{
			MaxCandidates:    s.getInt(keyDiscoveryMaxCandidates, d.Discovery.MaxCandidates),
			MinSimilarity:    s.getFloat(keyDiscoveryMinSimilarity, d.Discovery.MinSimilarity),
			MaxRelationships: s.getInt(keyDiscoveryMaxRelationships, d.Discovery.MaxRelationships),
		},
		Comparison: domain.ComparisonSettings{
			MaxChunks: s.getInt(keyComparisonMaxChunks, d.Comparison.MaxChunks),
			MaxChars:  s.getInt(keyComparisonMaxChars, d.Comparison.MaxChars),
			Probe:     s.getString(keyComparisonProbe, d.Comparison.Probe),
		},
		Synthesis: domain.SynthesisOptions{
			MaxSources:       s.getInt(keySynthesisMaxSources, d.Synthesis.MaxSources),
			IncludeConflicts: s.getBool(keySynthesisIncludeConflicts, d.Synthesis.IncludeConflicts),
			MinConfidence:    s.getFloat(keySynthesisMinConfidence, d.Synthesis.MinConfidence),
		},
		Router: domain.RouterSettings{
			LocalModel:      s.getString(keyRouterLocalModel, d.Router.LocalModel),
			CloudSmallModel: s.getString(keyRouterCloudSmallModel, d.Router.CloudSmallModel),
			CloudLargeModel: s.getString(keyRouterCloudLargeModel, d.Router.CloudLargeModel),
			ProbeTimeout:    s.getDuration(keyRouterProbeTimeout, d.Router.ProbeTimeout),
		},
		Chunking: domain.ChunkingSettings{
			Size:    s.getInt(keyChunkingSize, d.Chunking.Size),
			Overlap: s.getInt(keyChunkingOverlap, d.Chunking.Overlap),
		},
		Local: domain.LLMSettings{
			Provider: s.getProvider(keyLocalProvider, d.Local.Provider),
			Model:    s.getString(keyLocalModel, d.Local.Model),
			BaseURL:  s.getString(keyLocalBaseURL, d.Local.BaseURL),
		},
		Cloud: domain.LLMSettings{
			Provider: s.getProvider(keyCloudProvider, d.Cloud.Provider),
			Model:    s.getString(keyCloudModel, d.Cloud.Model),
			BaseURL:  s.configStore.GetString(keyCloudBaseURL), // No default - empty means the vendor endpoint
			APIKey:   s.configStore.GetString(keyCloudAPIKey),
		},
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:  s.getString(keyEmbedBaseURL, d.Embedding.BaseURL),
		},
	}

	if settings.Cloud.APIKey == "" {
		if env, ok := apiKeyEnv[settings.Cloud.Provider]; ok {
			settings.Cloud.APIKey = s.getenv(env)
		}
	}
	if settings.Embedding.Provider == settings.Cloud.Provider {
		settings.Embedding.APIKey = settings.Cloud.APIKey
	} else if env, ok := apiKeyEnv[settings.Embedding.Provider]; ok {
		settings.Embedding.APIKey = s.getenv(env)
	}

	if err := settings.Validate(); err != nil {
		return settings, err
	}
	return settings, nil
}

// Set parses value according to the key's type and persists it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	var parsed any
	var err error
	switch kind {
	case kindInt:
		var n int
		n, err = strconv.Atoi(value)
		parsed = int64(n)
	case kindFloat:
		parsed, err = strconv.ParseFloat(value, 64)
	case kindBool:
		parsed, err = strconv.ParseBool(value)
	case kindDuration:
		_, err = time.ParseDuration(value)
		parsed = value
	case kindProvider:
		if !domain.AIProvider(value).IsValid() {
			err = fmt.Errorf("unknown provider %q", value)
		}
		parsed = value
	default:
		parsed = value
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys returns the recognised setting keys in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKeys))
	for k := range settingKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); exists {
		return s.configStore.GetInt(key)
	}
	return defaultVal
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); exists {
		return s.configStore.GetFloat(key)
	}
	return defaultVal
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); exists {
		return s.configStore.GetBool(key)
	}
	return defaultVal
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	str := s.configStore.GetString(key)
	if str == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(str)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
