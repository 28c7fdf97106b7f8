// Package store provides SQLite-backed durable key-value storage for the
// proof ledger.
//
// Each ledger scope is a single row in kv_entries, keyed by the scope key
// ("<namespace>:<userID>") and holding the scope's JSON record array.
// Writes are upserts; the ledger itself enforces hash uniqueness and the
// retention bound inside the value.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - Single open connection: one writer per device
package store
