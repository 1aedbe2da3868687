// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. It implements two store interfaces through a single database connection:
//
//   - DocumentStore: collections, documents, chunks and tags
//   - OperatorStore: per-operator selection record and run guard
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.mnemo/data/mnemo.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. The run guard is taken with a
// single conditional UPDATE, so concurrent BeginRun calls have one winner.
package sqlite
