package tracedb

import (
	"context"

	"github.com/jmoiron/sqlx"

	"pugvm.org/pugvm/pvm"
	"pugvm.org/pugvm/spec"
)

var _ pvm.Tracer = &Tracer{}

// Tracer writes every step of a VM to the steps table of a run.
// All of the steps are written in a single transaction, which is committed by Close.
//
// pvm.Tracer cannot return errors, so the first error is kept and returned by Close.
// Nothing more is written after an error.
type Tracer struct {
	ctx   context.Context
	tx    *sqlx.Tx
	stmt  *sqlx.Stmt
	runID RunID
	seq   int64
	err   error
}

// NewTracer begins a transaction on db.
// The caller must call Close, and should not use db for writing until then.
func NewTracer(ctx context.Context, db *sqlx.DB, runID RunID) (*Tracer, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	stmt, err := tx.PreparexContext(ctx, `INSERT INTO steps (run_id, seq, pc, op, stack, exit) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	return &Tracer{
		ctx:   ctx,
		tx:    tx,
		stmt:  stmt,
		runID: runID,
	}, nil
}

func (t *Tracer) TraceStep(pc int32, op spec.Op, stack []pvm.Word) {
	t.insert(pc, op.MustName(), stack, false)
}

func (t *Tracer) TraceExit(stack []pvm.Word) {
	t.insert(-1, "", stack, true)
}

func (t *Tracer) insert(pc int32, op string, stack []pvm.Word, exit bool) {
	if t.err != nil {
		return
	}
	if _, err := t.stmt.ExecContext(t.ctx, t.runID, t.seq, pc, op, formatStack(stack), exit); err != nil {
		t.err = err
		return
	}
	t.seq++
}

// Count returns the number of rows written.
func (t *Tracer) Count() int64 {
	return t.seq
}

// Close commits the steps, or if any insert failed, discards them and returns the error.
func (t *Tracer) Close() error {
	if t.tx == nil {
		return t.err
	}
	tx := t.tx
	t.tx = nil
	t.stmt.Close()
	if t.err != nil {
		tx.Rollback()
		return t.err
	}
	return tx.Commit()
}
