// Package store provides SQLite-backed persistence for records.
//
// Records are grouped by collection. Types created with Extend share their
// base's collection, so every row also carries the name of the type it was
// written as. Bodies are stored as canonical JSON.
//
// # Ordering
//
// Every write takes the next value of a per-database logical clock (seq).
// List results are ordered by seq ASC, id ASC COLLATE BINARY, never by wall time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
