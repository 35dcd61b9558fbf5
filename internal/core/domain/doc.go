// Package domain defines the core business entities for sercha-synth.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Source: A document or knowledge-base page owned by a user
//   - Chunk: An indexed slice of a source's text
//   - SourceReference / SearchOutcome: Ranked snippets produced by a query
//   - RelationshipEdge: A scored link between two of a user's sources
//   - ComparisonResult: A side-by-side comparison of two sources
//   - SynthesizedAnswer: One answer consolidated from many snippets
//   - RoutingDecision / ModelSelection: Where a query is sent
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
