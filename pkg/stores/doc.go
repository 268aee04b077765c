// Package stores provides the persistence layer for browse-helper: the
// execution history (summary rows plus per-step ledger rows), the
// append-only event log, and token accounting, all backed by SQLite with
// embedded migrations.
//
// The Store interface is the contract; SQLiteStore is the implementation,
// using modernc.org/sqlite (pure Go, no cgo) with WAL mode and foreign keys
// enabled. Schema changes ship as embedded golang-migrate migrations and are
// applied by Migrate.
//
// Recorder adapts a Store to the engine's persistence interfaces so the
// coordinator never imports this package's row types.
package stores
