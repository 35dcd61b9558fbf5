// Package app assembles the engine from configuration: config and prompt
// stores, provider adapters, the document store and the core services.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-synth/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-synth/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-synth/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-synth/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-synth/internal/core/domain"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-synth/internal/core/services"
	"github.com/custodia-labs/sercha-synth/internal/logger"
	"github.com/custodia-labs/sercha-synth/internal/normalisers"
	"github.com/custodia-labs/sercha-synth/internal/postprocessors/chunker"
	"github.com/custodia-labs/sercha-synth/internal/ratelimit"
)

// MemoryDataDir selects the in-process store instead of SQLite. As a
// ConfigDir it selects built-in settings and prompts held only in memory.
const MemoryDataDir = ":memory:"

// ConfigSource is a settings store that can report its own changes.
type ConfigSource interface {
	driven.ConfigStore
	Watch(ctx context.Context, debounce time.Duration, onChange func()) error
}

// Store is everything the engine needs from the document store.
type Store interface {
	driven.SourceRegistry
	driven.TextStore
	driven.VectorSearcher
	driven.SourceWriter
}

// Options locates configuration and data on disk.
type Options struct {
	// ConfigDir holds config.toml and prompts/. Empty means ~/.sercha-synth,
	// MemoryDataDir keeps settings in memory.
	ConfigDir string

	// DataDir holds the SQLite database. Empty means ~/.sercha-synth/data,
	// MemoryDataDir keeps everything in memory.
	DataDir string
}

// Deps are the collaborators the services are built from.
// Any provider may be nil.
type Deps struct {
	Store    Store
	Local    driven.LLMProvider
	Cloud    driven.LLMProvider
	Embedder driven.EmbeddingService
	Prompts  driven.PromptStore
}

// App holds the assembled services.
type App struct {
	Engine   domain.EngineSettings
	Invokers *ratelimit.Registry

	Sources       driving.SourceService
	Search        driving.SourceSearchService
	Relationships driving.RelationshipService
	Comparison    driving.ComparisonService
	Synthesis     driving.SynthesisService
	Router        driving.ModelRouter
	QueryRouter   driving.QueryRouter

	// Settings and Config are nil when the app was assembled directly.
	Settings *services.SettingsService
	Config   ConfigSource
	Prompts  driven.PromptStore

	// Warnings are non-fatal problems found while starting.
	Warnings []string

	mu            sync.RWMutex
	router        *services.ModelRouter
	relationships *services.RelationshipService
	comparison    *services.ComparisonService
	closers       []func() error
}

// New loads configuration, connects the providers and opens the store.
func New(ctx context.Context, opts Options) (*App, error) {
	configStore, prompts, err := openConfig(opts.ConfigDir)
	if err != nil {
		return nil, err
	}
	settingsService := services.NewSettingsService(configStore)
	engine, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings from %s: %w", configStore.Path(), err)
	}

	providers := ai.Init(ctx, engine)

	var store Store
	var closeStore func() error
	if opts.DataDir == MemoryDataDir {
		store = memory.NewRegistry(providers.EmbeddingService)
	} else {
		sqliteStore, err := sqlite.NewStore(opts.DataDir, sqlite.WithEmbedder(providers.EmbeddingService))
		if err != nil {
			providers.Close()
			return nil, fmt.Errorf("open store: %w", err)
		}
		store = sqliteStore
		closeStore = sqliteStore.Close
	}

	a := Assemble(engine, Deps{
		Store:    store,
		Local:    providers.Local,
		Cloud:    providers.Cloud,
		Embedder: providers.EmbeddingService,
		Prompts:  prompts,
	})
	a.Settings = settingsService
	a.Config = configStore
	a.Warnings = providers.Warnings
	a.closers = append(a.closers, func() error {
		providers.Close()
		return nil
	})
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}
	return a, nil
}

// openConfig opens the settings and prompt stores under dir. In memory the
// prompt store is nil and the services use the built-in prompts.
func openConfig(dir string) (ConfigSource, driven.PromptStore, error) {
	if dir == MemoryDataDir {
		return memory.NewConfigStore(), nil, nil
	}

	configStore, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("open config: %w", err)
	}
	promptDir := ""
	if dir != "" {
		promptDir = filepath.Join(dir, "prompts")
	}
	prompts, err := file.NewPromptStore(promptDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open prompts: %w", err)
	}
	return configStore, prompts, nil
}

// Assemble wires the core services over deps.
func Assemble(engine domain.EngineSettings, deps Deps) *App {
	invokers := ratelimit.NewRegistry(ratelimit.PolicyFromSettings(engine.Invoker))

	router := services.NewModelRouter(deps.Local, deps.Cloud, invokers, engine.Router)
	queryRouter := services.NewQueryRouter(deps.Store)
	search := services.NewSourceSearchService(deps.Store, deps.Store, invokers)

	synthesis := services.NewSynthesisService(search, router, deps.Prompts)
	synthesis.SetQueryRouter(queryRouter)

	chunks := chunker.New(chunker.WithChunkSize(engine.Chunking.Size), chunker.WithOverlap(engine.Chunking.Overlap))
	sources := services.NewSourceService(deps.Store, deps.Store, chunks, deps.Embedder, invokers)
	sources.SetNormalisers(normalisers.Defaults()...)
	relationships := services.NewRelationshipService(deps.Store, deps.Store, invokers, engine.Discovery)
	comparison := services.NewComparisonService(
		deps.Store, deps.Store, deps.Store, router, deps.Prompts, invokers, engine.Comparison,
	)

	return &App{
		router:        router,
		relationships: relationships,
		comparison:    comparison,
		Engine:        engine,
		Invokers:      invokers,
		Sources:       sources,
		Search:        search,
		Relationships: relationships,
		Comparison:    comparison,
		Synthesis:     synthesis,
		Router:        router,
		QueryRouter:   queryRouter,
		Prompts:       deps.Prompts,
	}
}

// Reload re-reads the configuration and prompt templates. Router,
// discovery, comparison and synthesis settings apply to the next call.
// Provider, invoker and chunking settings are fixed for the life of the app;
// a change to them is reported and applied on the next start.
func (a *App) Reload() {
	if a.Prompts != nil {
		a.Prompts.Reload()
	}
	if a.Settings == nil {
		return
	}
	engine, err := a.Settings.Get()
	if err != nil {
		logger.Warn("config reload: %v", err)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.router != nil {
		a.router.SetSettings(engine.Router)
	}
	if a.relationships != nil {
		a.relationships.SetSettings(engine.Discovery)
	}
	if a.comparison != nil {
		a.comparison.SetSettings(engine.Comparison)
	}
	a.Engine.Router = engine.Router
	a.Engine.Discovery = engine.Discovery
	a.Engine.Comparison = engine.Comparison
	a.Engine.Synthesis = engine.Synthesis

	if fixed := restartRequired(a.Engine, engine); len(fixed) > 0 {
		logger.Warn("%s settings changed, restart to apply them", strings.Join(fixed, ", "))
	}
}

// restartRequired names the setting groups that differ and cannot be
// applied to a running app.
func restartRequired(running, loaded domain.EngineSettings) []string {
	var fixed []string
	if running.Invoker != loaded.Invoker {
		fixed = append(fixed, "invoker")
	}
	if running.Chunking != loaded.Chunking {
		fixed = append(fixed, "chunking")
	}
	if running.Local != loaded.Local || running.Cloud != loaded.Cloud {
		fixed = append(fixed, "llm")
	}
	if running.Embedding != loaded.Embedding {
		fixed = append(fixed, "embedding")
	}
	return fixed
}

// SynthesisDefaults returns the configured synthesis options.
func (a *App) SynthesisDefaults() domain.SynthesisOptions {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.Engine.Synthesis
}

// Close releases the store and the providers.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
