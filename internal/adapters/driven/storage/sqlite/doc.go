// Package sqlite provides the SQLite-backed document registry.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. A single Store implements:
//
//   - SourceRegistry: source listing and lookup per owner
//   - TextStore: preview and full text of a source
//   - VectorSearcher: per-source chunk ranking (cosine over stored embeddings,
//     lexical overlap when either side has no vector)
//   - SourceWriter: ingestion of sources and chunks
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-synth/data/registry.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
