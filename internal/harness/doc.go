// Package harness runs conformance scenarios against the tap faucet.
//
// Each scenario executes on a fresh in-memory store through the real
// engine: calls are signed with deterministic keys, ledger time is set per
// step and receipts come from the contract, not from the scenario.
//
// # Scenario Format
//
//	name: cooldown_basic
//	description: "Two taps one cooldown apart"
//	flow_token: cooldown        # optional flow token prefix
//	signers: [admin, alice]
//	setup:
//	  - call: mint
//	    args: { to: "@contract", amount: "1000" }
//	flow:
//	  - at: 0
//	    call: initialize
//	    as: admin
//	    args: { admin: "@admin", asset: "@asset", reward: "100", cooldown: 3600 }
//	  - at: 1800
//	    call: tap
//	    as: alice
//	    args: { user: "@alice" }
//	    expect:
//	      outcome: CooldownActive
//	assertions:
//	  - type: balance
//	    holder: alice
//	    amount: "100"
//
// String arguments starting with "@" name an address: a signer, or one of
// the reserved names @contract (the faucet) and @asset (its asset).
// Signer keys are derived from their names, so addresses are stable across
// runs.
//
// # Assertion Types
//
//   - last_tap: the user's registry entry equals at
//   - no_last_tap: the user never tapped successfully
//   - balance: the holder's asset balance equals amount
//   - outcome_count: exactly count receipts carry outcome (optionally for one call)
//   - replay: re-executing the call log reproduces every receipt and the final state
//
// # Golden Traces
//
// The trace of a run lists every call with its arguments, outcome and
// result, addresses written back as their @names. RunWithGolden compares it
// against testdata/golden/<name>.golden.
package harness
