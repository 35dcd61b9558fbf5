// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the engine to function:
//
//   - SourceRegistry: Lists and resolves a user's sources
//   - VectorSearcher: Per-source vector similarity search
//   - LLMProvider: Chat completion plus liveness (two slots: local and cloud)
//
// # Optional Interfaces
//
// These can be nil - the engine degrades gracefully:
//
//   - TextStore: Raw preview/full text, used only by degraded comparison paths
//     and by relationship discovery previews.
//   - PromptStore: User-customisable prompt templates. Embedded defaults apply without it.
//   - EmbeddingService: Used by vector searcher adapters, never by core services.
//
// # Failure Contract
//
// Adapters must wrap upstream rate limiting in domain.ErrRateLimited so the
// invoker can tell it apart from other failures.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
