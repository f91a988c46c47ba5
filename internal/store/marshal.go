package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/tapgame/internal/ir"
)

// marshalObject converts an IRObject to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalObject(obj ir.IRObject) (string, error) {
	if obj == nil {
		obj = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// unmarshalObject parses canonical JSON TEXT to IRObject.
// Uses ir.IRObject.UnmarshalJSON which handles large integers via json.Number
// to avoid float64 precision loss for values > 2^53.
func unmarshalObject(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// marshalAuth converts auth entries to JSON TEXT.
// AuthEntry is a struct (not IRValue); field order is fixed by the struct,
// which keeps the stored text stable.
func marshalAuth(entries []ir.AuthEntry) (string, error) {
	if entries == nil {
		entries = []ir.AuthEntry{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entries); err != nil {
		return "", fmt.Errorf("marshal auth: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalAuth parses JSON TEXT to auth entries.
func unmarshalAuth(data string) ([]ir.AuthEntry, error) {
	entries := []ir.AuthEntry{}
	if data == "" || data == "[]" {
		return entries, nil
	}
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		return nil, fmt.Errorf("unmarshal auth: %w", err)
	}
	return entries, nil
}

// SQLite integers are signed 64-bit; ledger times keep their bit pattern.
func ledgerTimeToSQL(t uint64) int64 {
	return int64(t)
}

func ledgerTimeFromSQL(v int64) uint64 {
	return uint64(v)
}
