// Package storage persists reminder records.
//
// Drivers:
//   - "sqlite":   pure-Go SQLite (modernc.org/sqlite), the default
//   - "sqlite3":  native SQLite via cgo (mattn/go-sqlite3), build tag cgo_sqlite
//   - "postgres": PostgreSQL through gorm
//   - "memory":   process-local map, for tests and dry runs
//
// Every mutation touches a single record by key, so row-level atomicity of the
// engine is all the scheduler and the command handlers rely on.
package storage
