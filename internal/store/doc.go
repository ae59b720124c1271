// Package store owns the journal's single SQLite database.
//
// It provides connection lifecycle (Open/Close), the raw *sql.DB handle for
// the repository layer, and the schema manager that creates the three core
// tables at startup:
//   - entries: journal records (title, audio path, duration, transcript, timestamps)
//   - tags: named labels, UNIQUE(name)
//   - entry_tags: (entry_id, tag_id) association, cascading on both sides
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity (required for cascades)
//
// The connection pool is capped at one connection. SQLite serializes writers
// anyway.
//
// Connections are opened through the "sqlite3_journal" driver. Its connect
// hook sets the per-connection pragmas (everything above except WAL) and
// registers a casefold(text) SQL function for Unicode case-insensitive
// matching, so a connection the pool replaces is configured like the first.
package store
