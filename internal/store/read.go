package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/tapgame/internal/ir"
)

// Call is one logged invocation with its receipt.
type Call struct {
	Invocation ir.Invocation
	Receipt    ir.Receipt
}

// Entry is one row of contract storage.
type Entry struct {
	Contract   string
	Durability string
	Key        []byte
	Value      []byte
}

// Equal reports whether two entries are identical.
func (e Entry) Equal(o Entry) bool {
	return e.Contract == o.Contract &&
		e.Durability == o.Durability &&
		bytes.Equal(e.Key, o.Key) &&
		bytes.Equal(e.Value, o.Value)
}

const selectCalls = `
	SELECT i.id, i.flow_token, i.contract, i.function, i.args, i.auth, i.seq, i.ledger_time,
	       i.engine_version, i.ir_version,
	       r.id, r.outcome, r.result, r.seq
	FROM invocations i
	JOIN receipts r ON r.invocation_id = i.id
`

// ReadCalls returns every logged call ordered by seq.
// Returns an empty slice (not nil) for an empty log.
func (s *Store) ReadCalls(ctx context.Context) ([]Call, error) {
	return readCalls(ctx, s.db, selectCalls+` ORDER BY i.seq ASC, i.id COLLATE BINARY ASC`)
}

// ReadCallsForContract returns the calls made to contract ordered by seq.
func (s *Store) ReadCallsForContract(ctx context.Context, contract ir.Address) ([]Call, error) {
	return readCalls(ctx, s.db, selectCalls+` WHERE i.contract = ? ORDER BY i.seq ASC, i.id COLLATE BINARY ASC`, string(contract))
}

// ReadCallByFlowToken returns the call with the given flow token.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadCallByFlowToken(ctx context.Context, flowToken string) (Call, error) {
	calls, err := readCalls(ctx, s.db, selectCalls+` WHERE i.flow_token = ?`, flowToken)
	if err != nil {
		return Call{}, err
	}
	if len(calls) == 0 {
		return Call{}, sql.ErrNoRows
	}
	return calls[0], nil
}

func readCalls(ctx context.Context, q querier, query string, args ...any) ([]Call, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	calls := []Call{}
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}
	return calls, nil
}

func scanCall(rows *sql.Rows) (Call, error) {
	var (
		c          Call
		contract   string
		argsJSON   string
		authJSON   string
		ledgerTime int64
		resultJSON string
	)
	err := rows.Scan(
		&c.Invocation.ID,
		&c.Invocation.FlowToken,
		&contract,
		&c.Invocation.Function,
		&argsJSON,
		&authJSON,
		&c.Invocation.Seq,
		&ledgerTime,
		&c.Invocation.EngineVersion,
		&c.Invocation.IRVersion,
		&c.Receipt.ID,
		&c.Receipt.Outcome,
		&resultJSON,
		&c.Receipt.Seq,
	)
	if err != nil {
		return Call{}, fmt.Errorf("scan call: %w", err)
	}

	c.Invocation.Contract = ir.Address(contract)
	c.Invocation.LedgerTime = ledgerTimeFromSQL(ledgerTime)
	c.Receipt.InvocationID = c.Invocation.ID

	if c.Invocation.Args, err = unmarshalObject(argsJSON); err != nil {
		return Call{}, fmt.Errorf("scan call %s: args: %w", c.Invocation.ID, err)
	}
	if c.Invocation.Auth, err = unmarshalAuth(authJSON); err != nil {
		return Call{}, fmt.Errorf("scan call %s: %w", c.Invocation.ID, err)
	}
	if c.Receipt.Result, err = unmarshalObject(resultJSON); err != nil {
		return Call{}, fmt.Errorf("scan call %s: result: %w", c.Invocation.ID, err)
	}
	return c, nil
}

func hasFlowToken(ctx context.Context, q querier, flowToken string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM invocations WHERE flow_token = ?`, flowToken).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query flow token: %w", err)
	}
	return true, nil
}

// LastSeq returns the highest seq in the log, 0 when empty. The host
// resumes its logical clock from here.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM invocations`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq.Int64, nil
}

// LastLedgerTime returns the ledger time of the latest call, 0 when empty.
// The host never runs a call at an earlier ledger time.
func (s *Store) LastLedgerTime(ctx context.Context) (uint64, error) {
	var t int64
	err := s.db.QueryRowContext(ctx, `SELECT ledger_time FROM invocations ORDER BY seq DESC LIMIT 1`).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query last ledger time: %w", err)
	}
	return ledgerTimeFromSQL(t), nil
}

// ContractData returns every stored entry ordered by contract, durability
// and key.
func (s *Store) ContractData(ctx context.Context) ([]Entry, error) {
	return readContractData(ctx, s.db)
}

func readContractData(ctx context.Context, q querier) ([]Entry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT contract, durability, data_key, data_value
		FROM contract_data
		ORDER BY contract COLLATE BINARY, durability COLLATE BINARY, data_key
	`)
	if err != nil {
		return nil, fmt.Errorf("query contract data: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Contract, &e.Durability, &e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("scan contract data: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contract data: %w", err)
	}
	return entries, nil
}
