package mcp

import (
	"github.com/custodia-labs/sercha-synth/internal/core/domain"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driving"
)

// Ports holds the services behind the MCP tools. Only Search is required;
// a tool whose service is nil is left out of the server.
type Ports struct {
	// Search provides multi-source search. Required.
	Search driving.SourceSearchService

	// Synthesis answers questions from several sources.
	Synthesis driving.SynthesisService

	// SynthesisDefaults returns the options the ask tool starts from.
	// When nil the built-in defaults are used.
	SynthesisDefaults func() domain.SynthesisOptions

	// Comparison compares two documents.
	Comparison driving.ComparisonService

	// Relationships discovers related documents.
	Relationships driving.RelationshipService

	// Router and QueryRouter explain how a query would be answered.
	Router      driving.ModelRouter
	QueryRouter driving.QueryRouter

	// Sources lists the owner's sources for the sources resource.
	Sources driving.SourceService
}

// Validate reports a missing search service.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
