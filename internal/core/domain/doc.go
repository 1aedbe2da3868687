// Package domain defines the core business entities for mnemo.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Collection, Document, Chunk: stored knowledge
//   - OperatorState, LastRun: the persisted selection basket and run record
//   - Query, SearchPage: catalog lookups
//   - Source, ContextChunk, Prompt: the prompt assembly pipeline
//   - ModelError, RunError: the model failure taxonomy
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
