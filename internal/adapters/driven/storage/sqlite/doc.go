// Package sqlite provides a SQLite-based implementation of the record store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. One database holds:
//
//   - connectors: connector rows, including the opaque checkpoint blob
//   - documents: landed document records, unique per (connector, remote id)
//   - outbox: landed events committed with their checkpoint, awaiting relay
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-ingest/data/ingest.db
//
// # Thread Safety
//
// The store uses a single connection, so transactions are serialised and
// never contend for SQLite's write lock.
package sqlite
