package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/tapgame/internal/ir"
	"github.com/roach88/tapgame/internal/ledger"
)

// ErrDuplicateFlowToken is returned when an invocation reuses a flow token.
var ErrDuplicateFlowToken = errors.New("duplicate flow token")

// querier is the subset shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx is one host call's view of the store.
//
// The store has a single connection: while a Tx is open, use only the Tx.
// Calling Store methods that query the database would block until the Tx
// ends.
type Tx struct {
	tx   *sql.Tx
	done bool
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Commit makes the transaction's writes durable.
func (t *Tx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback discards the transaction's writes. Safe to call after Commit.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback()
}

// Scope returns the storage partition of contract with the given durability.
func (t *Tx) Scope(contract ir.Address, durability ledger.Durability) ledger.Scope {
	return &scope{q: t.tx, contract: string(contract), durability: string(durability)}
}

// WriteInvocation inserts an invocation record.
//
// Unlike the receipt, a second invocation with the same flow token is an
// error: flow tokens are single use.
func (t *Tx) WriteInvocation(ctx context.Context, inv ir.Invocation) error {
	return writeInvocation(ctx, t.tx, inv)
}

// WriteReceipt inserts the receipt of an invocation written in this or an
// earlier transaction.
func (t *Tx) WriteReceipt(ctx context.Context, rcpt ir.Receipt) error {
	return writeReceipt(ctx, t.tx, rcpt)
}

// HasFlowToken reports whether an invocation already used flowToken.
func (t *Tx) HasFlowToken(ctx context.Context, flowToken string) (bool, error) {
	return hasFlowToken(ctx, t.tx, flowToken)
}

// ContractData returns every stored entry, for state comparison.
func (t *Tx) ContractData(ctx context.Context) ([]Entry, error) {
	return readContractData(ctx, t.tx)
}

// scope implements ledger.Scope over contract_data.
type scope struct {
	q          querier
	contract   string
	durability string
}

func (s *scope) Has(ctx context.Context, key []byte) (bool, error) {
	var one int
	err := s.q.QueryRowContext(ctx, `
		SELECT 1 FROM contract_data
		WHERE contract = ? AND durability = ? AND data_key = ?
	`, s.contract, s.durability, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has %s/%s/%q: %w", s.contract, s.durability, key, err)
	}
	return true, nil
}

func (s *scope) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	var value []byte
	err := s.q.QueryRowContext(ctx, `
		SELECT data_value FROM contract_data
		WHERE contract = ? AND durability = ? AND data_key = ?
	`, s.contract, s.durability, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s/%s/%q: %w", s.contract, s.durability, key, err)
	}
	return value, true, nil
}

func (s *scope) Set(ctx context.Context, key, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO contract_data (contract, durability, data_key, data_value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(contract, durability, data_key) DO UPDATE SET data_value = excluded.data_value
	`, s.contract, s.durability, key, value)
	if err != nil {
		return fmt.Errorf("set %s/%s/%q: %w", s.contract, s.durability, key, err)
	}
	return nil
}
