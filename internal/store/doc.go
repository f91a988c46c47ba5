// Package store provides SQLite-backed durable storage for contract state
// and the call log.
//
// The database holds:
//   - Contract data: one row per (contract, durability, key), the backing
//     of every ledger.Scope
//   - Invocations: every call the host accepted, successful or not
//   - Receipts: how each invocation ended
//
// # Transactions
//
// A host call runs in exactly one Tx. Contract writes and the call's log
// rows commit together; a call that fails is rolled back and its log rows
// are written in a fresh Tx, so failed calls never leave state behind.
//
// # Ordering
//
// All log reads order by seq (the host's logical clock), never by ledger
// time or rowid, so replay sees calls in the order they executed.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Ledger times are uint64 but SQLite integers are signed: they are stored
// as the int64 with the same bit pattern and converted back on read.
package store
