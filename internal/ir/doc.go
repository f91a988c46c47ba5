// Package ir holds the canonical data types shared by every tapgame package:
// the constrained value model used for call arguments and results, ledger
// addresses, 128-bit amounts, and the call/receipt records written to the log.
//
// ir imports nothing internal. All other internal packages may import it.
//
// Constraints:
//   - No float types. Numbers that do not fit int64 travel as decimal strings.
//   - Call records are content addressed (SHA-256 over RFC 8785 canonical JSON
//     with domain separation), so a replayed log reproduces identical IDs.
//   - JSON tags use snake_case.
package ir
