// package pvmrun drives VMs to completion.
package pvmrun

import (
	"context"
	"errors"
	"fmt"

	"go.brendoncarroll.net/stdctx/logctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pugvm.org/pugvm/pvm"
)

// ErrStepLimit is returned by Run when the VM did not halt within Limits.MaxSteps.
var ErrStepLimit = errors.New("pvmrun: step limit reached")

// DefaultCheckEvery is used when Limits.CheckEvery is 0
const DefaultCheckEvery = 1 << 12

type Limits struct {
	// MaxSteps is the number of instructions after which Run gives up.
	// 0 means no limit.
	MaxSteps uint64
	// CheckEvery is the number of instructions between checks of the context.
	CheckEvery uint64
}

// Run steps vm until it halts.
// The number of instructions executed is returned.
// A VM stopped by the step limit or the context is left as it was, and can be passed to Run again.
func Run(ctx context.Context, vm *pvm.VM, lim Limits) (steps uint64, err error) {
	checkEvery := lim.CheckEvery
	if checkEvery == 0 {
		checkEvery = DefaultCheckEvery
	}
	start := vm.Steps()
	for i := uint64(0); !vm.Halted(); i++ {
		steps = vm.Steps() - start
		// running off the end is not an instruction, so it does not count against the limit.
		if lim.MaxSteps > 0 && steps >= lim.MaxSteps && !vm.AtEnd() {
			return steps, fmt.Errorf("%w: %d", ErrStepLimit, lim.MaxSteps)
		}
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return steps, err
			}
		}
		if err := vm.Step(); err != nil {
			return vm.Steps() - start, err
		}
	}
	return vm.Steps() - start, nil
}

// Job is a program to run with RunAll.
type Job struct {
	Name   string
	Prog   []pvm.I
	Mem    *pvm.Memory
	Config pvm.Config
}

// Result is the outcome of a Job.
type Result struct {
	Name  string
	Steps uint64
	// Stack is the operand stack after the VM halted, bottom first.
	Stack []pvm.Word
	Mem   *pvm.Memory
}

// RunAll runs each job on its own VM, concurrently.
// Jobs must not share Memory.
// If any job fails, the others are cancelled and the first error is returned.
func RunAll(ctx context.Context, jobs []Job, lim Limits) ([]Result, error) {
	vms := make([]*pvm.VM, len(jobs))
	for i, job := range jobs {
		vm, err := pvm.New(job.Prog, job.Mem, job.Config)
		if err != nil {
			return nil, fmt.Errorf("job %q: %w", job.Name, err)
		}
		vms[i] = vm
	}
	results := make([]Result, len(jobs))
	eg, ctx := errgroup.WithContext(ctx)
	for i := range jobs {
		eg.Go(func() error {
			job, vm := jobs[i], vms[i]
			steps, err := Run(ctx, vm, lim)
			if err != nil {
				logctx.Error(ctx, "job failed", zap.String("job", job.Name), zap.Uint64("steps", steps), zap.Error(err))
				return fmt.Errorf("job %q: %w", job.Name, err)
			}
			logctx.Infof(ctx, "%s: vm ran for %d steps", job.Name, steps)
			results[i] = Result{
				Name:  job.Name,
				Steps: steps,
				Stack: vm.DumpStack(nil),
				Mem:   vm.Memory(),
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
