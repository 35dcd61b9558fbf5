// Package cli provides the sercha-synth command line interface.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-synth/internal/app"
	"github.com/custodia-labs/sercha-synth/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=v1.2.3".
var version = "dev"

// DefaultOwner is the owner id used when --owner is not given.
const DefaultOwner = "local"

// skipAppAnnotation marks commands that run without the engine.
const skipAppAnnotation = "sercha-synth/skip-app"

var (
	verbose   bool
	configDir string
	dataDir   string
	envFile   string
	ownerID   string
	jsonOut   bool
)

// engine is the assembled application. Tests install one with SetApp.
var (
	engine      *app.App
	engineOwned bool
)

var rootCmd = &cobra.Command{
	Use:   "sercha-synth",
	Short: "Multi-source query and model-routing engine",
	Long: `sercha-synth searches many documents and knowledge bases at once,
discovers how they relate, compares them, and synthesises one answer
from sources that overlap or disagree.

Answers are produced by a local (Ollama) or cloud (OpenAI, Anthropic)
model chosen per query. Rate-limited providers are retried with backoff
and a failing provider falls back to the other one.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return teardown()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "print debug logs to stderr")
	flags.StringVar(&configDir, "config-dir", "", `configuration directory (default ~/.sercha-synth, ":memory:" for built-in settings)`)
	flags.StringVar(&dataDir, "data-dir", "", `data directory (default ~/.sercha-synth/data, ":memory:" for no persistence)`)
	flags.StringVar(&envFile, "env-file", ".env", "file with provider API keys")
	flags.StringVar(&ownerID, "owner", DefaultOwner, "owner whose sources are used")
	flags.BoolVar(&jsonOut, "json", false, "output JSON (default when stdout is not a terminal)")
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	// PersistentPostRunE is skipped when a command fails.
	return errors.Join(err, teardown())
}

// SetApp installs a prebuilt application. The CLI does not close it.
func SetApp(a *app.App) {
	engine = a
	engineOwned = false
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("loading %s: %v", envFile, err)
	}

	if engine != nil || cmd.Annotations[skipAppAnnotation] == "true" {
		return nil
	}

	a, err := app.New(cmd.Context(), app.Options{ConfigDir: configDir, DataDir: dataDir})
	if err != nil {
		return err
	}
	for _, w := range a.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	engine = a
	engineOwned = true
	return nil
}

func teardown() error {
	if engine == nil || !engineOwned {
		return nil
	}
	err := engine.Close()
	engine = nil
	engineOwned = false
	return err
}

// requireApp returns the engine or an error when it was not assembled.
func requireApp() (*app.App, error) {
	if engine == nil {
		return nil, errors.New("engine not configured")
	}
	return engine, nil
}
