package pvmcmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"go.brendoncarroll.net/exp/slices2"
	"go.brendoncarroll.net/star"
	"go.brendoncarroll.net/stdctx/logctx"
	"go.uber.org/zap"

	"pugvm.org/pugvm"
	"pugvm.org/pugvm/internal/tracedb"
	"pugvm.org/pugvm/pvm"
	"pugvm.org/pugvm/pvmrun"
	"pugvm.org/pugvm/pvmtests"
)

var runCmd = star.Command{
	Metadata: star.Metadata{
		Short: "run one of the example programs",
	},
	Pos:   []star.IParam{programParam},
	Flags: []star.IParam{nParam, traceParam, traceDBParam, maxStepsParam, debugParam},
	F: func(c star.Context) error {
		ctx, err := newContext(c)
		if err != nil {
			return err
		}
		return runProgram(ctx, c.StdOut, c.StdErr, RunOpts{
			Program:  programParam.Load(c),
			N:        loadOr(c, nParam, 5),
			Trace:    loadOr(c, traceParam, false),
			TraceDB:  loadOr(c, traceDBParam, ""),
			MaxSteps: loadOr(c, maxStepsParam, 0),
		})
	},
}

type RunOpts struct {
	Program string
	N       int32
	// Trace writes every step to the diagnostic output
	Trace bool
	// TraceDB is the path to a database to record the run in.
	// Empty means the run is not recorded.
	TraceDB  string
	MaxSteps uint64
}

// runProgram runs an example program.
// Dump output and the results are written to out; the trace, and the last steps before a failure, to diag.
func runProgram(ctx context.Context, out, diag io.Writer, opts RunOpts) error {
	v, err := pvmtests.Lookup(opts.Program, opts.N)
	if err != nil {
		return err
	}
	var tracers pvm.MultiTracer
	if opts.Trace {
		tracers = append(tracers, pvm.NewWriterTracer(diag))
	}
	// the last steps are reported if the program fails
	ring := pvm.NewRingTracer(16)
	tracers = append(tracers, ring)

	var finish func(steps uint64, runErr error) error
	if opts.TraceDB != "" {
		db, err := tracedb.Open(opts.TraceDB)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := tracedb.Setup(ctx, db); err != nil {
			return err
		}
		runID, err := tracedb.CreateRun(ctx, db, v.Name, pugvm.Fingerprint(v.Prog))
		if err != nil {
			return err
		}
		tr, err := tracedb.NewTracer(ctx, db, runID)
		if err != nil {
			return err
		}
		tracers = append(tracers, tr)
		finish = func(steps uint64, runErr error) error {
			if err := tr.Close(); err != nil {
				return err
			}
			logctx.Info(ctx, "recorded trace", zap.Int64("run", runID), zap.Int64("rows", tr.Count()))
			return tracedb.FinishRun(ctx, db, runID, steps, runErr)
		}
	}

	vm, err := pvm.New(v.Prog, v.Mem, pvm.Config{
		Output: out,
		Tracer: tracers,
	})
	if err != nil {
		if finish != nil {
			finish(0, err)
		}
		return err
	}
	steps, runErr := pvmrun.Run(ctx, vm, pvmrun.Limits{MaxSteps: opts.MaxSteps})
	if finish != nil {
		if err := finish(steps, runErr); err != nil {
			return err
		}
	}
	logctx.Infof(ctx, "vm ran for %d steps", steps)
	if runErr != nil {
		if !errors.Is(runErr, pvmrun.ErrStepLimit) {
			ring.WriteTo(diag)
		}
		return runErr
	}
	fmt.Fprintf(out, "stack: %v\n", stackString(vm.DumpStack(nil)))
	fmt.Fprintf(out, "memory: %v\n", v.Mem)
	return v.Check(v.Mem)
}

var runAllCmd = star.Command{
	Metadata: star.Metadata{
		Short: "run every example program concurrently",
	},
	Flags: []star.IParam{nParam, maxStepsParam, debugParam},
	F: func(c star.Context) error {
		ctx, err := newContext(c)
		if err != nil {
			return err
		}
		return runAll(ctx, c.StdOut, loadOr(c, nParam, 5), loadOr(c, maxStepsParam, 0))
	},
}

func runAll(ctx context.Context, out io.Writer, n int32, maxSteps uint64) error {
	var vecs []pvmtests.Vec
	for _, name := range pvmtests.Names() {
		v, err := pvmtests.Lookup(name, n)
		if err != nil {
			return err
		}
		vecs = append(vecs, v)
	}
	// each job writes to its own buffer, so the output does not interleave.
	outs := make([]*bytes.Buffer, len(vecs))
	jobs := make([]pvmrun.Job, len(vecs))
	for i, v := range vecs {
		outs[i] = &bytes.Buffer{}
		jobs[i] = pvmrun.Job{
			Name:   v.Name,
			Prog:   v.Prog,
			Mem:    v.Mem,
			Config: pvm.Config{Output: outs[i]},
		}
	}
	results, err := pvmrun.RunAll(ctx, jobs, pvmrun.Limits{MaxSteps: maxSteps})
	if err != nil {
		return err
	}
	var failed []string
	for i, res := range results {
		status := "ok"
		if err := vecs[i].Check(res.Mem); err != nil {
			status = err.Error()
			failed = append(failed, res.Name)
		}
		fmt.Fprintf(out, "%-10s steps=%-6d stack=%v memory=%v %s\n", res.Name, res.Steps, stackString(res.Stack), res.Mem, status)
		if s := outs[i].String(); s != "" {
			io.WriteString(out, s)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("wrong results from %v", failed)
	}
	return nil
}

func stackString(stack []pvm.Word) string {
	return fmt.Sprint(slices2.Map(stack, pvm.WordInt))
}
