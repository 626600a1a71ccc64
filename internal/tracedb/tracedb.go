// package tracedb records VM runs and their traces in SQLite.
package tracedb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.brendoncarroll.net/stdctx/logctx"
	"go.brendoncarroll.net/tai64"
	"go.uber.org/zap"

	"pugvm.org/pugvm"
	"pugvm.org/pugvm/internal/dbutil"
	"pugvm.org/pugvm/pvm"
)

func Open(p string) (*sqlx.DB, error) {
	return dbutil.Open(p)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		fingerprint BLOB NOT NULL,
		started_at BLOB NOT NULL,
		steps INTEGER,
		err TEXT
	) STRICT`,
	`CREATE TABLE IF NOT EXISTS steps (
		run_id INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		pc INTEGER NOT NULL,
		op TEXT NOT NULL,
		stack TEXT NOT NULL,
		exit INTEGER NOT NULL DEFAULT 0,

		FOREIGN KEY(run_id) REFERENCES runs(id),
		PRIMARY KEY(run_id, seq)
	) WITHOUT ROWID, STRICT`,
}

// Setup creates the tables, if they do not exist.
func Setup(ctx context.Context, db *sqlx.DB) error {
	return dbutil.DoTx(ctx, db, func(tx *sqlx.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

type RunID = int64

// Run is a row in the runs table.
type Run struct {
	ID          RunID          `db:"id"`
	Name        string         `db:"name"`
	Fingerprint pugvm.ID       `db:"fingerprint"`
	StartedAt   Timestamp      `db:"started_at"`
	Steps       sql.NullInt64  `db:"steps"`
	Err         sql.NullString `db:"err"`
}

// Finished returns true if FinishRun has been called for the run.
func (r Run) Finished() bool {
	return r.Steps.Valid
}

// CreateRun allocates a new run for a program with the given fingerprint.
func CreateRun(ctx context.Context, db *sqlx.DB, name string, fp pugvm.ID) (RunID, error) {
	id, err := dbutil.DoTx1(ctx, db, func(tx *sqlx.Tx) (RunID, error) {
		var id RunID
		err := tx.GetContext(ctx, &id, `INSERT INTO runs (name, fingerprint, started_at) VALUES (?, ?, ?) RETURNING id`,
			name, fp, Now())
		return id, err
	})
	if err != nil {
		return 0, err
	}
	logctx.Info(ctx, "created run", zap.Int64("run", id), zap.String("name", name), zap.Stringer("fingerprint", fp))
	return id, nil
}

// FinishRun records the outcome of a run.
// runErr is the error which stopped the VM, if any.
func FinishRun(ctx context.Context, db *sqlx.DB, id RunID, steps uint64, runErr error) error {
	var errText sql.NullString
	if runErr != nil {
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}
	return dbutil.DoTx(ctx, db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE runs SET steps = ?, err = ? WHERE id = ?`, int64(steps), errText, id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n != 1 {
			return fmt.Errorf("run %d does not exist", id)
		}
		return nil
	})
}

func GetRun(ctx context.Context, db dbutil.Reader, id RunID) (Run, error) {
	var run Run
	err := db.GetContext(ctx, &run, `SELECT id, name, fingerprint, started_at, steps, err FROM runs WHERE id = ?`, id)
	return run, err
}

// ListRuns returns every run, oldest first.
func ListRuns(ctx context.Context, db dbutil.Reader) ([]Run, error) {
	var runs []Run
	if err := db.SelectContext(ctx, &runs, `SELECT id, name, fingerprint, started_at, steps, err FROM runs ORDER BY id`); err != nil {
		return nil, err
	}
	return runs, nil
}

// ListRunsOf returns every run of the program with fingerprint fp, oldest first.
func ListRunsOf(ctx context.Context, db dbutil.Reader, fp pugvm.ID) ([]Run, error) {
	var runs []Run
	if err := db.SelectContext(ctx, &runs, `SELECT id, name, fingerprint, started_at, steps, err FROM runs WHERE fingerprint = ? ORDER BY id`, fp); err != nil {
		return nil, err
	}
	return runs, nil
}

// Step is a row in the steps table.
type Step struct {
	RunID RunID  `db:"run_id"`
	Seq   int64  `db:"seq"`
	PC    int32  `db:"pc"`
	Op    string `db:"op"`
	// Stack is the stack words as signed integers, separated by spaces
	Stack string `db:"stack"`
	Exit  bool   `db:"exit"`
}

// Words parses Stack
func (s Step) Words() ([]pvm.Word, error) {
	return parseStack(s.Stack)
}

// String formats the step the same way as pvm.WriterTracer
func (s Step) String() string {
	ws, err := s.Words()
	if err != nil {
		return fmt.Sprintf("[%3d]%16s : <%v>", s.PC, s.Op, err)
	}
	if s.Exit {
		return pvm.FormatExit(ws)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%3d]%16s : ", s.PC, s.Op)
	for _, w := range ws {
		fmt.Fprintf(&sb, "%d | ", pvm.WordInt(w))
	}
	return sb.String()
}

// ListSteps returns the recorded steps of a run, in order.
func ListSteps(ctx context.Context, db dbutil.Reader, id RunID) ([]Step, error) {
	var steps []Step
	if err := db.SelectContext(ctx, &steps, `SELECT run_id, seq, pc, op, stack, exit FROM steps WHERE run_id = ? ORDER BY seq`, id); err != nil {
		return nil, err
	}
	return steps, nil
}

func formatStack(stack []pvm.Word) string {
	var sb strings.Builder
	for i, w := range stack {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.FormatInt(int64(pvm.WordInt(w)), 10))
	}
	return sb.String()
}

func parseStack(x string) ([]pvm.Word, error) {
	fields := strings.Fields(x)
	if len(fields) == 0 {
		return nil, nil
	}
	ret := make([]pvm.Word, len(fields))
	for i, f := range fields {
		n, err := strconv.ParseInt(f, 10, 32)
		if err != nil {
			return nil, err
		}
		ret[i] = pvm.IntWord(int32(n))
	}
	return ret, nil
}

// Timestamp is a TAI64N label, stored as its 12 byte big endian encoding.
// Stored Timestamps sort in time order.
type Timestamp struct {
	tai64.TAI64N
}

func Now() Timestamp {
	return Timestamp{tai64.Now()}
}

func (ts *Timestamp) Scan(x any) error {
	switch x := x.(type) {
	case []byte:
		t, err := tai64.ParseN(x)
		if err != nil {
			return err
		}
		ts.TAI64N = t
		return nil
	default:
		return fmt.Errorf("cannot scan type %T", x)
	}
}

func (ts Timestamp) Value() (driver.Value, error) {
	return ts.Marshal(), nil
}
