package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
)

var (
	relateMinSimilarity float64
	relateMax           int
)

var compareCmd = &cobra.Command{
	Use:   "compare [doc1] [doc2]",
	Short: "Compare two documents",
	Long: `Compares two documents with a language model: shared themes, what is
unique to each, and the key differences. Documents are given by id or by
display name.`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

var relateCmd = &cobra.Command{
	Use:   "relate",
	Short: "Discover relationships between sources",
	Long: `Scores every pair of processed sources by shared vocabulary and metadata
and lists the related pairs, strongest first.

Kinds: similar (> 0.8), supplements (> 0.6), references (otherwise).`,
	Args: cobra.NoArgs,
	RunE: runRelate,
}

var routeCmd = &cobra.Command{
	Use:   "route [query]",
	Short: "Show how a query would be routed",
	Long: `Shows which kinds of sources a query would be answered from and which
model would answer it. Both providers are probed.`,
	Args: cobra.ExactArgs(1),
	RunE: runRoute,
}

func init() {
	relateCmd.Flags().Float64Var(&relateMinSimilarity, "min-similarity", 0,
		"minimum strength of a relationship (default discovery.min_similarity)")
	relateCmd.Flags().IntVar(&relateMax, "max", 0, "maximum relationships (default discovery.max_relationships)")

	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(relateCmd)
	rootCmd.AddCommand(routeCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}

	result, err := a.Comparison.Compare(cmd.Context(), args[0], args[1], ownerID)
	if err != nil {
		return fmt.Errorf("compare failed: %w", err)
	}

	if wantJSON(cmd) {
		return writeJSON(cmd, result)
	}

	cmd.Printf("%s vs %s: similarity %.2f\n", result.Doc1.Name, result.Doc2.Name, result.Similarity)
	if result.Degradation != domain.DegradationNone {
		cmd.Printf("(degraded: %s)\n", result.Degradation)
	}
	printList(cmd, "Common themes", result.CommonThemes)
	printList(cmd, "Only in "+result.Doc1.Name, result.UniqueToDoc1)
	printList(cmd, "Only in "+result.Doc2.Name, result.UniqueToDoc2)
	printList(cmd, "Key differences", result.KeyDifferences)
	return nil
}

func printList(cmd *cobra.Command, title string, items []string) {
	if len(items) == 0 {
		return
	}
	cmd.Println()
	cmd.Printf("%s:\n", title)
	for _, item := range items {
		cmd.Printf("  - %s\n", item)
	}
}

func runRelate(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}

	edges, err := a.Relationships.Discover(cmd.Context(), ownerID, domain.DiscoveryOptions{
		MinSimilarity:    relateMinSimilarity,
		MaxRelationships: relateMax,
	})
	if err != nil {
		return fmt.Errorf("relate failed: %w", err)
	}

	if wantJSON(cmd) {
		return writeJSON(cmd, edges)
	}
	if len(edges) == 0 {
		cmd.Println("No relationships found.")
		return nil
	}

	names := map[string]string{}
	if sources, err := a.Sources.List(cmd.Context(), ownerID); err == nil {
		for i := range sources {
			names[sources[i].ID] = sources[i].Name
		}
	}
	label := func(id string) string {
		if name, ok := names[id]; ok {
			return name
		}
		return id
	}

	for _, e := range edges {
		cmd.Printf("  %s <-> %s  %s (%.2f)\n", label(e.SourceDocID), label(e.TargetDocID), e.Kind, e.Strength)
		if len(e.Evidence) > 0 {
			cmd.Printf("      %s\n", strings.Join(e.Evidence, "; "))
		}
	}
	return nil
}

// routeOutput is the JSON form of the route command.
type routeOutput struct {
	Routing *domain.RoutingDecision `json:"routing"`
	Model   *domain.ModelSelection  `json:"model,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

func runRoute(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}

	decision, err := a.QueryRouter.Classify(cmd.Context(), args[0], ownerID)
	if err != nil {
		return fmt.Errorf("route failed: %w", err)
	}
	out := routeOutput{Routing: decision}

	sel, err := a.Router.Select(cmd.Context(), args[0])
	switch {
	case errors.Is(err, domain.ErrProvidersUnavailable):
		out.Error = err.Error()
	case err != nil:
		return fmt.Errorf("route failed: %w", err)
	default:
		out.Model = sel
	}

	if wantJSON(cmd) {
		return writeJSON(cmd, out)
	}

	cmd.Printf("Sources:  %s (%.2f, %s)\n", decision.Target, decision.Confidence, decision.Reasoning)
	if len(decision.SuggestedSources) > 0 {
		cmd.Printf("Mentions: %s\n", strings.Join(decision.SuggestedSources, ", "))
	}
	if out.Model != nil {
		cmd.Printf("Model:    %s/%s (%s, %s)\n", sel.ProviderName, sel.ModelID, sel.Complexity, sel.Reason)
	} else {
		cmd.Printf("Model:    none (%s)\n", out.Error)
	}
	return nil
}
