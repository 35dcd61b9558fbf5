package driving

import "github.com/custodia-labs/sercha-synth/internal/core/domain"

// SettingsService reads and changes the engine settings.
type SettingsService interface {
	// Get returns the configured settings over the defaults, validated.
	Get() (domain.EngineSettings, error)

	// Set parses value for key and persists it.
	Set(key, value string) error

	// Keys returns the recognised setting keys, sorted.
	Keys() []string
}
