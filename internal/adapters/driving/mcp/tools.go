package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query        string  `json:"query" jsonschema:"the search query"`
	Limit        int     `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	MinRelevance float64 `json:"min_relevance,omitempty" jsonschema:"drop results scoring below this value (0 to 1)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results         []domain.SourceReference `json:"results"`
	Count           int                      `json:"count"`
	SourcesSearched int                      `json:"sources_searched"`
	Unavailable     []string                 `json:"unavailable,omitempty"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question         string `json:"question" jsonschema:"the question to answer from the user's sources"`
	MaxSources       int    `json:"max_sources,omitempty" jsonschema:"maximum number of sources to consult (default 8)"`
	IncludeConflicts *bool  `json:"include_conflicts,omitempty" jsonschema:"report where sources disagree (default true)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer      string                   `json:"answer"`
	Confidence  float64                  `json:"confidence"`
	Sources     []domain.SourceReference `json:"sources"`
	Conflicts   []domain.Conflict        `json:"conflicts,omitempty"`
	Degradation string                   `json:"degradation,omitempty"`
	Model       string                   `json:"model,omitempty"`
	Route       string                   `json:"route,omitempty"`
}

// CompareInput is the input schema for the compare tool.
type CompareInput struct {
	Doc1 string `json:"doc1" jsonschema:"id or display name of the first document"`
	Doc2 string `json:"doc2" jsonschema:"id or display name of the second document"`
}

// CompareOutput is the output schema for the compare tool.
type CompareOutput struct {
	Doc1           string   `json:"doc1"`
	Doc2           string   `json:"doc2"`
	Similarity     float64  `json:"similarity"`
	CommonThemes   []string `json:"common_themes"`
	UniqueToDoc1   []string `json:"unique_to_doc1"`
	UniqueToDoc2   []string `json:"unique_to_doc2"`
	KeyDifferences []string `json:"key_differences"`
	Degradation    string   `json:"degradation,omitempty"`
}

// RelateInput is the input schema for the relate tool.
type RelateInput struct {
	MinSimilarity    float64 `json:"min_similarity,omitempty" jsonschema:"minimum relationship strength (default 0.4)"`
	MaxRelationships int     `json:"max_relationships,omitempty" jsonschema:"maximum relationships to return (default 50)"`
}

// RelateOutput is the output schema for the relate tool.
type RelateOutput struct {
	Relationships []domain.RelationshipEdge `json:"relationships"`
	Count         int                       `json:"count"`
}

// RouteInput is the input schema for the route tool.
type RouteInput struct {
	Query string `json:"query" jsonschema:"the query to route"`
}

// RouteOutput is the output schema for the route tool.
type RouteOutput struct {
	Target           string   `json:"target"`
	Confidence       float64  `json:"confidence"`
	Reasoning        string   `json:"reasoning"`
	SuggestedSources []string `json:"suggested_sources,omitempty"`
	Provider         string   `json:"provider,omitempty"`
	Model            string   `json:"model,omitempty"`
	Complexity       string   `json:"complexity,omitempty"`
	ModelError       string   `json:"model_error,omitempty"`
}

var toolDescriptions = map[string]string{
	"search":  "Search all of the user's documents and knowledge bases at once",
	"ask":     "Answer a question from several sources, citing them and reporting conflicts",
	"compare": "Compare two documents: shared themes, unique points and key differences",
	"relate":  "Discover which of the user's documents are related",
	"route":   "Show which sources and which model would answer a query",
}

// registerTools registers search and every tool whose port is set.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, s.tool("search"), s.handleSearch)
	if s.ports.Synthesis != nil {
		mcp.AddTool(s.server, s.tool("ask"), s.handleAsk)
	}
	if s.ports.Comparison != nil {
		mcp.AddTool(s.server, s.tool("compare"), s.handleCompare)
	}
	if s.ports.Relationships != nil {
		mcp.AddTool(s.server, s.tool("relate"), s.handleRelate)
	}
	if s.ports.QueryRouter != nil && s.ports.Router != nil {
		mcp.AddTool(s.server, s.tool("route"), s.handleRoute)
	}
}

// tool records name as registered and returns its definition.
func (s *Server) tool(name string) *mcp.Tool {
	s.tools = append(s.tools, name)
	return &mcp.Tool{Name: name, Description: toolDescriptions[name]}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	outcome, err := s.ports.Search.Search(ctx, input.Query, s.ownerID, domain.SearchOptions{
		Limit:        limit,
		MinRelevance: input.MinRelevance,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results:         outcome.Results,
		Count:           len(outcome.Results),
		SourcesSearched: outcome.SourcesSearched,
	}
	if output.Results == nil {
		output.Results = []domain.SourceReference{}
	}
	for _, f := range outcome.Failures {
		output.Unavailable = append(output.Unavailable, f.SourceName)
	}
	return nil, output, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if s.ports.Synthesis == nil {
		return nil, AskOutput{}, errNotAvailable
	}

	opts := domain.DefaultSynthesisOptions()
	if s.ports.SynthesisDefaults != nil {
		opts = s.ports.SynthesisDefaults()
	}
	if input.MaxSources > 0 {
		opts.MaxSources = input.MaxSources
	}
	if input.IncludeConflicts != nil {
		opts.IncludeConflicts = *input.IncludeConflicts
	}

	answer, err := s.ports.Synthesis.Synthesize(ctx, input.Question, s.ownerID, opts)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:      answer.ConsolidatedAnswer,
		Confidence:  answer.Confidence,
		Sources:     answer.Sources,
		Conflicts:   answer.Conflicts,
		Degradation: string(answer.Degradation),
	}
	if answer.Model != nil {
		output.Model = answer.Model.ProviderName + "/" + answer.Model.ModelID
	}
	if answer.Routing != nil {
		output.Route = string(answer.Routing.Target)
	}
	return nil, output, nil
}

// handleCompare handles the compare tool invocation.
func (s *Server) handleCompare(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CompareInput,
) (*mcp.CallToolResult, CompareOutput, error) {
	if s.ports.Comparison == nil {
		return nil, CompareOutput{}, errNotAvailable
	}

	result, err := s.ports.Comparison.Compare(ctx, input.Doc1, input.Doc2, s.ownerID)
	if err != nil {
		return nil, CompareOutput{}, err
	}

	return nil, CompareOutput{
		Doc1:           result.Doc1.Name,
		Doc2:           result.Doc2.Name,
		Similarity:     result.Similarity,
		CommonThemes:   result.CommonThemes,
		UniqueToDoc1:   result.UniqueToDoc1,
		UniqueToDoc2:   result.UniqueToDoc2,
		KeyDifferences: result.KeyDifferences,
		Degradation:    string(result.Degradation),
	}, nil
}

// handleRelate handles the relate tool invocation.
func (s *Server) handleRelate(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RelateInput,
) (*mcp.CallToolResult, RelateOutput, error) {
	if s.ports.Relationships == nil {
		return nil, RelateOutput{}, errNotAvailable
	}

	edges, err := s.ports.Relationships.Discover(ctx, s.ownerID, domain.DiscoveryOptions{
		MinSimilarity:    input.MinSimilarity,
		MaxRelationships: input.MaxRelationships,
	})
	if err != nil {
		return nil, RelateOutput{}, err
	}
	if edges == nil {
		edges = []domain.RelationshipEdge{}
	}
	return nil, RelateOutput{Relationships: edges, Count: len(edges)}, nil
}

// handleRoute handles the route tool invocation. Unavailable providers are
// reported in the output rather than failing the call.
func (s *Server) handleRoute(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RouteInput,
) (*mcp.CallToolResult, RouteOutput, error) {
	if s.ports.QueryRouter == nil || s.ports.Router == nil {
		return nil, RouteOutput{}, errNotAvailable
	}

	decision, err := s.ports.QueryRouter.Classify(ctx, input.Query, s.ownerID)
	if err != nil {
		return nil, RouteOutput{}, err
	}
	output := RouteOutput{
		Target:           string(decision.Target),
		Confidence:       decision.Confidence,
		Reasoning:        decision.Reasoning,
		SuggestedSources: decision.SuggestedSources,
	}

	sel, err := s.ports.Router.Select(ctx, input.Query)
	switch {
	case errors.Is(err, domain.ErrProvidersUnavailable):
		output.ModelError = err.Error()
	case err != nil:
		return nil, RouteOutput{}, err
	default:
		output.Provider = sel.ProviderName
		output.Model = sel.ModelID
		output.Complexity = sel.Complexity.String()
	}
	return nil, output, nil
}
