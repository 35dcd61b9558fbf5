package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driving"
)

var (
	sourceName string
	sourceKind string
	sourceType string
)

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage documents and knowledge bases",
	Long: `Add, list and remove the sources that queries are answered from.

Adding a source splits its text into overlapping chunks, embeds them when
an embedding provider is configured, and stores them for search.`,
}

var sourceAddCmd = &cobra.Command{
	Use:   "add [file]",
	Short: "Add a text file as a source",
	Long: `Add a plain-text file as a source. Use "-" to read from stdin.

Examples:
  sercha-synth source add notes/launch-plan.md
  sercha-synth source add --kind knowledge_base --name "Onboarding wiki" wiki.txt
  cat report.txt | sercha-synth source add --name report.txt -`,
	Args: cobra.ExactArgs(1),
	RunE: runSourceAdd,
}

var sourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sources",
	Args:  cobra.NoArgs,
	RunE:  runSourceList,
}

var sourceRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a source and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourceRemove,
}

func init() {
	sourceAddCmd.Flags().StringVar(&sourceName, "name", "", "display name (default: file name)")
	sourceAddCmd.Flags().StringVar(&sourceKind, "kind", string(domain.SourceKindDocument),
		"source kind: document or knowledge_base")
	sourceAddCmd.Flags().StringVar(&sourceType, "type", "", "file type (default: from the name's extension)")

	sourceCmd.AddCommand(sourceAddCmd)
	sourceCmd.AddCommand(sourceListCmd)
	sourceCmd.AddCommand(sourceRemoveCmd)
	rootCmd.AddCommand(sourceCmd)
}

func runSourceAdd(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}

	path := args[0]
	var content []byte
	if path == "-" {
		content, err = io.ReadAll(cmd.InOrStdin())
	} else {
		content, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	name := sourceName
	if name == "" {
		if path == "-" {
			return fmt.Errorf("--name is required when reading from stdin")
		}
		name = filepath.Base(path)
	}

	src, err := a.Sources.Add(cmd.Context(), driving.AddSourceRequest{
		OwnerID: ownerID,
		Name:    name,
		Type:    sourceType,
		Kind:    domain.SourceKind(sourceKind),
		Content: string(content),
	})
	if err != nil {
		return fmt.Errorf("failed to add source: %w", err)
	}

	if wantJSON(cmd) {
		return writeJSON(cmd, src)
	}
	cmd.Printf("Added %s (%s)\n", src.Name, src.ID)
	return nil
}

func runSourceList(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}

	sources, err := a.Sources.List(cmd.Context(), ownerID)
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}

	if wantJSON(cmd) {
		return writeJSON(cmd, sources)
	}
	if len(sources) == 0 {
		cmd.Println("No sources. Add one with 'sercha-synth source add <file>'.")
		return nil
	}
	for i := range sources {
		src := &sources[i]
		words := "-"
		if src.WordCount != nil {
			words = fmt.Sprintf("%d", *src.WordCount)
		}
		cmd.Printf("  %s  %-30s %-14s %-9s %6s words\n",
			src.ID, snippet(src.Name, 30), src.EffectiveKind(), src.Status, words)
	}
	return nil
}

func runSourceRemove(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}

	if err := a.Sources.Remove(cmd.Context(), args[0], ownerID); err != nil {
		return fmt.Errorf("failed to remove source: %w", err)
	}
	if wantJSON(cmd) {
		return writeJSON(cmd, map[string]string{"removed": args[0]})
	}
	cmd.Printf("Removed %s\n", args[0])
	return nil
}
