package store

import (
	"context"
	"fmt"

	"github.com/roach88/tapgame/internal/ir"
)

func writeInvocation(ctx context.Context, q querier, inv ir.Invocation) error {
	argsJSON, err := marshalObject(inv.Args)
	if err != nil {
		return fmt.Errorf("write invocation: marshal args: %w", err)
	}
	authJSON, err := marshalAuth(inv.Auth)
	if err != nil {
		return fmt.Errorf("write invocation: %w", err)
	}

	dup, err := hasFlowToken(ctx, q, inv.FlowToken)
	if err != nil {
		return fmt.Errorf("write invocation: %w", err)
	}
	if dup {
		return fmt.Errorf("write invocation: %q: %w", inv.FlowToken, ErrDuplicateFlowToken)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO invocations
		(id, flow_token, contract, function, args, auth, seq, ledger_time, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		inv.ID,
		inv.FlowToken,
		string(inv.Contract),
		inv.Function,
		argsJSON,
		authJSON,
		inv.Seq,
		ledgerTimeToSQL(inv.LedgerTime),
		inv.EngineVersion,
		inv.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write invocation: %w", err)
	}
	return nil
}

// Each invocation has exactly one receipt (UNIQUE invocation_id).
func writeReceipt(ctx context.Context, q querier, rcpt ir.Receipt) error {
	resultJSON, err := marshalObject(rcpt.Result)
	if err != nil {
		return fmt.Errorf("write receipt: marshal result: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO receipts
		(id, invocation_id, outcome, result, seq)
		VALUES (?, ?, ?, ?, ?)
	`,
		rcpt.ID,
		rcpt.InvocationID,
		rcpt.Outcome,
		resultJSON,
		rcpt.Seq,
	)
	if err != nil {
		return fmt.Errorf("write receipt: %w", err)
	}
	return nil
}

// WriteCall logs an invocation with its receipt in one transaction.
// The host uses it for calls whose state changes were rolled back.
func (s *Store) WriteCall(ctx context.Context, inv ir.Invocation, rcpt ir.Receipt) error {
	return s.Update(ctx, func(tx *Tx) error {
		if err := tx.WriteInvocation(ctx, inv); err != nil {
			return err
		}
		return tx.WriteReceipt(ctx, rcpt)
	})
}
