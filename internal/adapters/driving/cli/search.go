package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
)

var (
	searchLimit        int
	searchMinRelevance float64
	searchInclude      []string
	searchExclude      []string

	askMaxSources    int
	askMinConfidence float64
	askNoConflicts   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search all sources at once",
	Long: `Searches every processed source concurrently and merges the hits.

Duplicate passages are removed and results are ranked by relevance.
Sources that cannot be searched are reported but never fail the search.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from several sources",
	Long: `Searches the sources relevant to the question and asks a language model
to combine them into one answer, citing sources by number and reporting
where they disagree.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().Float64Var(&searchMinRelevance, "min-relevance", 0, "drop results scoring below this value")
	searchCmd.Flags().StringSliceVar(&searchInclude, "include", nil, "only search these source ids")
	searchCmd.Flags().StringSliceVar(&searchExclude, "exclude", nil, "skip these source ids")
	rootCmd.AddCommand(searchCmd)

	defaults := domain.DefaultSynthesisOptions()
	askCmd.Flags().IntVar(&askMaxSources, "max-sources", 0,
		fmt.Sprintf("maximum sources given to the model (default %d, or synthesis.max_sources)", defaults.MaxSources))
	askCmd.Flags().Float64Var(&askMinConfidence, "min-confidence", 0,
		fmt.Sprintf("minimum relevance of a source (default %.1f, or synthesis.min_confidence)", defaults.MinConfidence))
	askCmd.Flags().BoolVar(&askNoConflicts, "no-conflicts", false, "omit disagreements between sources")
	rootCmd.AddCommand(askCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}

	outcome, err := a.Search.Search(cmd.Context(), args[0], ownerID, domain.SearchOptions{
		Limit:            searchLimit,
		MinRelevance:     searchMinRelevance,
		IncludeSourceIDs: searchInclude,
		ExcludeSourceIDs: searchExclude,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if wantJSON(cmd) {
		return writeJSON(cmd, outcome)
	}
	return outputSearchTable(cmd, outcome)
}

func outputSearchTable(cmd *cobra.Command, outcome *domain.SearchOutcome) error {
	if len(outcome.Results) == 0 {
		cmd.Println("No results found.")
	} else {
		cmd.Println("Results:")
		cmd.Println()
		for i := range outcome.Results {
			r := &outcome.Results[i]
			cmd.Printf("  [%d] %s #%d (%.2f)\n", i+1, r.SourceName, r.ChunkIndex, r.RelevanceScore)
			cmd.Printf("      %s\n", snippet(r.Content, 160))
			cmd.Println()
		}
	}

	cmd.Printf("%d sources searched, %d candidates, %dms\n",
		outcome.SourcesSearched, outcome.TotalCandidates, outcome.ElapsedMs)
	for _, f := range outcome.Failures {
		cmd.Printf("  unavailable: %s (%s)\n", f.SourceName, f.Message)
	}
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}

	opts := a.Engine.Synthesis
	if askMaxSources > 0 {
		opts.MaxSources = askMaxSources
	}
	if askMinConfidence > 0 {
		opts.MinConfidence = askMinConfidence
	}
	if askNoConflicts {
		opts.IncludeConflicts = false
	}

	answer, err := a.Synthesis.Synthesize(cmd.Context(), args[0], ownerID, opts)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if wantJSON(cmd) {
		return writeJSON(cmd, answer)
	}
	return outputAnswer(cmd, answer)
}

func outputAnswer(cmd *cobra.Command, answer *domain.SynthesizedAnswer) error {
	cmd.Println(answer.ConsolidatedAnswer)
	cmd.Println()

	if len(answer.Sources) > 0 {
		cmd.Println("Sources:")
		for i := range answer.Sources {
			s := &answer.Sources[i]
			cmd.Printf("  [%d] %s #%d (%.2f)\n", i+1, s.SourceName, s.ChunkIndex, s.RelevanceScore)
		}
		cmd.Println()
	}

	for _, c := range answer.Conflicts {
		cmd.Printf("Conflict: %s\n", c.Topic)
		for _, p := range c.Positions {
			cmd.Printf("  - %s: %s\n", p.SourceName, p.Position)
		}
	}

	details := []string{fmt.Sprintf("confidence %.2f", answer.Confidence)}
	if answer.Model != nil {
		details = append(details, fmt.Sprintf("model %s/%s", answer.Model.ProviderName, answer.Model.ModelID))
	}
	if answer.Routing != nil {
		details = append(details, "route "+string(answer.Routing.Target))
	}
	if answer.Degradation != domain.DegradationNone {
		details = append(details, "degraded: "+string(answer.Degradation))
	}
	cmd.Printf("(%s)\n", strings.Join(details, ", "))
	return nil
}
