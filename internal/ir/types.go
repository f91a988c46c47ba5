package ir

import "github.com/holiman/uint256"

// Contract functions understood by the host.
const (
	FuncInitialize = "initialize"
	FuncTap        = "tap"

	// FuncMint credits an asset balance. It is a host funding operation on
	// an asset contract, not part of the faucet surface.
	FuncMint = "mint"
)

// OutcomeSuccess is the receipt outcome of a call that committed.
// Failed calls carry their error code as the outcome.
const OutcomeSuccess = "Success"

// Config is the faucet configuration bound by initialize.
type Config struct {
	Admin    Address      `json:"admin"`
	Asset    Address      `json:"asset"`
	Reward   *uint256.Int `json:"reward"`
	Cooldown uint64       `json:"cooldown"`
}

// Invocation is one logged call against a contract.
type Invocation struct {
	ID            string      `json:"id"` // Content-addressed hash
	FlowToken     string      `json:"flow_token"`
	Contract      Address     `json:"contract"`
	Function      string      `json:"function"`
	Args          IRObject    `json:"args"`
	Auth          []AuthEntry `json:"auth"`
	Seq           int64       `json:"seq"`         // Logical clock
	LedgerTime    uint64      `json:"ledger_time"` // Seconds
	EngineVersion string      `json:"engine_version"`
	IRVersion     string      `json:"ir_version"`
}

// AuthEntry is a signature by an account over a call's AuthPayload.
type AuthEntry struct {
	Address   Address `json:"address"`
	PublicKey string  `json:"public_key"` // hex, compressed secp256k1
	Signature string  `json:"signature"`  // hex, DER
}

// Receipt records how an invocation ended.
type Receipt struct {
	ID           string   `json:"id"` // Content-addressed hash
	InvocationID string   `json:"invocation_id"`
	Outcome      string   `json:"outcome"`
	Result       IRObject `json:"result"`
	Seq          int64    `json:"seq"`
}

// Succeeded reports whether the receipt belongs to a committed call.
func (r Receipt) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}
