package pvmcmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"go.brendoncarroll.net/star"

	"pugvm.org/pugvm"
	"pugvm.org/pugvm/internal/tracedb"
)

var historyCmd = star.Command{
	Metadata: star.Metadata{
		Short: "list recorded runs, or the steps of one run",
	},
	Flags: []star.IParam{historyDBParam, runIDParam, fingerprintParam},
	F: func(c star.Context) error {
		db := historyDBParam.Load(c)
		defer db.Close()
		q := historyQuery{RunID: loadOr(c, runIDParam, 0)}
		if fp, ok := fingerprintParam.LoadOpt(c); ok {
			q.Fingerprint = &fp
		}
		return printHistory(c.Context, c.StdOut, db, q)
	},
}

var historyDBParam = star.Param[*sqlx.DB]{
	Name: "trace-db",
	Parse: func(x string) (*sqlx.DB, error) {
		db, err := tracedb.Open(x)
		if err != nil {
			return nil, err
		}
		if err := tracedb.Setup(context.Background(), db); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	},
}

var runIDParam = star.Param[tracedb.RunID]{
	Name:     "run",
	Repeated: true,
	Parse: func(x string) (tracedb.RunID, error) {
		return strconv.ParseInt(x, 10, 64)
	},
}

var fingerprintParam = star.Param[pugvm.ID]{
	Name:     "fingerprint",
	Repeated: true,
	Parse:    pugvm.ParseID,
}

type historyQuery struct {
	// RunID selects a single run to print the steps of.
	// 0 lists runs instead.
	RunID tracedb.RunID
	// Fingerprint, if set, lists only the runs of that program.
	Fingerprint *pugvm.ID
}

// printHistory lists the runs selected by q, or the steps of q.RunID.
func printHistory(ctx context.Context, w io.Writer, db *sqlx.DB, q historyQuery) error {
	if q.RunID == 0 {
		var runs []tracedb.Run
		var err error
		if q.Fingerprint != nil {
			runs, err = tracedb.ListRunsOf(ctx, db, *q.Fingerprint)
		} else {
			runs, err = tracedb.ListRuns(ctx, db)
		}
		if err != nil {
			return err
		}
		for _, run := range runs {
			status := "running"
			switch {
			case run.Err.Valid:
				status = "error: " + run.Err.String
			case run.Finished():
				status = fmt.Sprintf("%d steps", run.Steps.Int64)
			}
			if _, err := fmt.Fprintf(w, "%-4d %-10s %v %v %s\n", run.ID, run.Name, run.StartedAt.GoTime().UTC().Format(time.RFC3339), run.Fingerprint, status); err != nil {
				return err
			}
		}
		return nil
	}
	run, err := tracedb.GetRun(ctx, db, q.RunID)
	if err != nil {
		return fmt.Errorf("run %d: %w", q.RunID, err)
	}
	steps, err := tracedb.ListSteps(ctx, db, q.RunID)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "run %d: %s %v\n", run.ID, run.Name, run.Fingerprint); err != nil {
		return err
	}
	for _, step := range steps {
		if _, err := fmt.Fprintln(w, step.String()); err != nil {
			return err
		}
	}
	return nil
}
