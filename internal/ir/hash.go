package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix leaves
// room for algorithm migration.
const (
	DomainInvocation = "tapgame/invocation/v1"
	DomainReceipt    = "tapgame/receipt/v1"
	DomainAuth       = "tapgame/auth/v1"
	DomainContract   = "tapgame/contract/v1"
)

// digestWithDomain computes SHA256(domain || 0x00 || data).
func digestWithDomain(domain string, data []byte) []byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return h.Sum(nil)
}

func hashWithDomain(domain string, data []byte) string {
	return hex.EncodeToString(digestWithDomain(domain, data))
}

// InvocationID computes the content-addressed ID of a call.
//
// Auth entries are excluded: the ID names what was called, when and with
// which arguments. Signatures are stored alongside for verification.
func InvocationID(flowToken string, contract Address, function string, args IRObject, seq int64, ledgerTime uint64) (string, error) {
	if args == nil {
		args = IRObject{}
	}
	obj := map[string]any{
		"flow_token":  flowToken,
		"contract":    string(contract),
		"function":    function,
		"args":        args,
		"seq":         seq,
		"ledger_time": ledgerTime,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("InvocationID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainInvocation, canonical), nil
}

// ReceiptID computes the content-addressed ID of a receipt.
func ReceiptID(invocationID, outcome string, result IRObject, seq int64) (string, error) {
	if result == nil {
		result = IRObject{}
	}
	obj := map[string]any{
		"invocation_id": invocationID,
		"outcome":       outcome,
		"result":        result,
		"seq":           seq,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ReceiptID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainReceipt, canonical), nil
}

// AuthPayload is the 32-byte digest an account signs to authorize a call.
// The flow token acts as a nonce: the host accepts each flow token once.
func AuthPayload(flowToken string, contract Address, function string, args IRObject) ([]byte, error) {
	if args == nil {
		args = IRObject{}
	}
	obj := map[string]any{
		"flow_token": flowToken,
		"contract":   string(contract),
		"function":   function,
		"args":       args,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return nil, fmt.Errorf("AuthPayload: failed to marshal: %w", err)
	}
	return digestWithDomain(DomainAuth, canonical), nil
}
