package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-synth/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-synth/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage engine settings",
	Long: `View and change the engine settings stored in config.toml.

Settings cover the retry policy of provider calls, the caps of relationship
discovery and comparison, synthesis defaults, the router's models and the
local, cloud and embedding providers.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change one setting",
	Long: `Change one setting and save it to config.toml.

API keys may be omitted from the command line; they are then read from the
terminal without echo.

Examples:
  sercha-synth config set invoker.max_attempts 5
  sercha-synth config set router.cloud_large_model gpt-4o
  sercha-synth config set llm.cloud.api_key`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConfigSet,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the recognised setting keys",
	Args:  cobra.NoArgs,
	RunE:  runConfigKeys,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the configured providers are reachable",
	Args:  cobra.NoArgs,
	RunE:  runConfigCheck,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configKeysCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	s := a.Engine

	if a.Config != nil {
		cmd.Printf("Config file: %s\n\n", a.Config.Path())
	}

	cmd.Println("[Invoker]")
	cmd.Printf("  Max in flight:   %d\n", s.Invoker.MaxInFlight)
	cmd.Printf("  Min spacing:     %s\n", s.Invoker.MinSpacing)
	cmd.Printf("  Backoff:         %s .. %s\n", s.Invoker.BaseDelay, s.Invoker.MaxDelay)
	cmd.Printf("  Max attempts:    %d\n", s.Invoker.MaxAttempts)
	cmd.Printf("  Attempt timeout: %s\n", s.Invoker.AttemptTimeout)
	cmd.Println()

	cmd.Println("[Discovery]")
	cmd.Printf("  Max candidates:    %d\n", s.Discovery.MaxCandidates)
	cmd.Printf("  Min similarity:    %.2f\n", s.Discovery.MinSimilarity)
	cmd.Printf("  Max relationships: %d\n", s.Discovery.MaxRelationships)
	cmd.Println()

	cmd.Println("[Comparison]")
	cmd.Printf("  Max chunks: %d\n", s.Comparison.MaxChunks)
	cmd.Printf("  Max chars:  %d\n", s.Comparison.MaxChars)
	cmd.Printf("  Probe:      %q\n", s.Comparison.Probe)
	cmd.Println()

	cmd.Println("[Synthesis]")
	cmd.Printf("  Max sources:       %d\n", s.Synthesis.MaxSources)
	cmd.Printf("  Include conflicts: %t\n", s.Synthesis.IncludeConflicts)
	cmd.Printf("  Min confidence:    %.2f\n", s.Synthesis.MinConfidence)
	cmd.Println()

	cmd.Println("[Router]")
	cmd.Printf("  Local model:       %s\n", s.Router.LocalModel)
	cmd.Printf("  Cloud small model: %s\n", s.Router.CloudSmallModel)
	cmd.Printf("  Cloud large model: %s\n", s.Router.CloudLargeModel)
	cmd.Printf("  Probe timeout:     %s\n", s.Router.ProbeTimeout)
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Size:    %d\n", s.Chunking.Size)
	cmd.Printf("  Overlap: %d\n", s.Chunking.Overlap)
	cmd.Println()

	printLLM(cmd, "Local LLM", s.Local)
	printLLM(cmd, "Cloud LLM", s.Cloud)

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", s.Embedding.Provider.Description())
	cmd.Printf("  Model:    %s\n", s.Embedding.Model)
	if s.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", s.Embedding.BaseURL)
	}
	cmd.Printf("  Status:   %s\n", configuredStatus(s.Embedding.IsConfigured()))
	return nil
}

func printLLM(cmd *cobra.Command, title string, l domain.LLMSettings) {
	cmd.Printf("[%s]\n", title)
	cmd.Printf("  Provider: %s\n", l.Provider.Description())
	cmd.Printf("  Model:    %s\n", l.Model)
	if l.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", l.BaseURL)
	}
	if l.Provider.RequiresAPIKey() {
		if l.APIKey != "" {
			cmd.Printf("  API Key:  %s\n", maskAPIKey(l.APIKey))
		} else {
			cmd.Printf("  API Key:  (not set)\n")
		}
	}
	cmd.Printf("  Status:   %s\n", configuredStatus(l.IsConfigured()))
	cmd.Println()
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	if a.Settings == nil {
		return errors.New("settings service not configured")
	}

	key := args[0]
	var value string
	switch {
	case len(args) == 2:
		value = args[1]
	case strings.HasSuffix(key, "api_key"):
		cmd.Print("Enter API key: ")
		value = readPassword(cmd.InOrStdin())
		cmd.Println()
		if value == "" {
			return errors.New("API key is required")
		}
	default:
		return fmt.Errorf("a value is required for %s", key)
	}

	if err := a.Settings.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	if strings.HasSuffix(key, "api_key") {
		value = maskAPIKey(value)
	}
	cmd.Printf("%s = %s\n", key, value)
	return nil
}

func runConfigKeys(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	if a.Settings == nil {
		return errors.New("settings service not configured")
	}
	for _, k := range a.Settings.Keys() {
		cmd.Println(k)
	}
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	s := a.Engine
	ctx := cmd.Context()

	var failed bool
	check := func(name string, configured bool, err error) {
		switch {
		case !configured:
			cmd.Printf("  %-10s not configured\n", name)
		case err != nil:
			failed = true
			cmd.Printf("  %-10s FAILED: %v\n", name, err)
		default:
			cmd.Printf("  %-10s OK\n", name)
		}
	}

	check("local", s.Local.IsConfigured(), ai.ValidateLLMConfig(ctx, &s.Local))
	check("cloud", s.Cloud.IsConfigured(), ai.ValidateLLMConfig(ctx, &s.Cloud))
	check("embedding", s.Embedding.IsConfigured(), ai.ValidateEmbeddingConfig(ctx, &s.Embedding))

	if failed {
		return errors.New("one or more providers are unreachable")
	}
	return nil
}

// readPassword reads a line without echo when in is a terminal.
//
//nolint:errcheck // CLI helper, error ignored for UX
func readPassword(in io.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	input, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(input)
}
