// Package store provides durable state persistence for the console.
//
// # Architecture
//
// Every backend implements StateStore, a small key/value interface over opaque
// byte blobs:
//
//   - GetState(ctx, key): read the blob saved under key (ErrNotFound if none)
//   - SaveState(ctx, key, state): replace the blob saved under key
//   - DeleteState(ctx, key): remove the key
//
// The conversation snapshot is one such blob. The session package owns its
// encoding; this package never looks inside.
//
// # Backends
//
//   - SQLiteStore: modernc.org/sqlite, one row per key in client_state
//   - FileStore: one <key>.json file per key, written via temp file + rename
//   - MockStore: in-memory, with injectable load/save errors for tests
//
// Open(driver, path) picks a backend from the storage.driver config value
// ("sqlite", "file", "memory").
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode:
//
//	PRAGMA journal_mode=WAL;
//
// Default database location: ~/.local/share/coven/console.db
//
// # Testing
//
// Use NewMockStore() for unit tests, or NewSQLiteStore with a path under
// t.TempDir() for integration tests with real SQLite.
package store
