// Package engine is the ledger host: it runs contract calls one at a time,
// each inside its own storage transaction, and keeps the call log.
//
// ARCHITECTURE:
//
// Single Writer:
// Every call, whether made directly through Execute or submitted to the
// Run loop, holds the engine lock for its whole duration. Calls never
// interleave, so a contract needs no synchronization of its own.
//
// Call Processing:
//  1. Reject reused flow tokens
//  2. Stamp the call with the next seq and the ledger time
//  3. Verify auth entries against the call's auth payload
//  4. Dispatch to the faucet or asset contract inside one transaction
//  5. Success: contract writes, invocation and receipt commit together
//  6. Failure: the transaction rolls back, then the invocation and a
//     failure receipt are logged on their own
//
// Time:
// seq is the logical clock and orders the log. Ledger time is the coarse
// wall time contracts see; it never decreases, even across restarts.
//
// Replay:
// The log holds every input a call consumed (args, auth, seq, ledger
// time), so re-running it against an empty store must reproduce every
// receipt and the final contract state byte for byte.
package engine
