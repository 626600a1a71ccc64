// package pvm contains an implementation of the Pug Virtual Machine (PVM)
package pvm

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"golang.org/x/exp/constraints"

	"pugvm.org/pugvm/spec"
)

var (
	// ErrProgramTooLarge is returned by New when the program counter could not address every instruction.
	ErrProgramTooLarge = errors.New("pvm: program is too large")
	// ErrHalted is returned by Step when the VM has already halted.
	ErrHalted = errors.New("pvm: step called on halted VM")

	ErrStackUnderflow = errors.New("pvm: stack underflow")
	ErrStackIndex     = errors.New("pvm: stack index out of range")
)

// MaxProgramLen is the largest number of instructions a program may contain.
// The program counter and all jump targets are int32 and must never wrap.
const MaxProgramLen = math.MaxInt32 - 1

// CheckProgramLen returns ErrProgramTooLarge if a program of n instructions cannot be run.
func CheckProgramLen(n int) error {
	if n > MaxProgramLen {
		return fmt.Errorf("%w: %d instructions", ErrProgramTooLarge, n)
	}
	return nil
}

type Config struct {
	// Output receives the text of Dump instructions.
	// If nil, os.Stdout is used.
	Output io.Writer
	// Tracer, if not nil, observes the machine before every instruction.
	Tracer Tracer
}

// VM executes a single program over a single operand stack.
// A VM is not safe for concurrent use.
type VM struct {
	prog   []I
	mem    *Memory
	out    io.Writer
	tracer Tracer

	pc     int32
	base   int32
	stack  []Word
	halted bool
	steps  uint64

	err error
}

// New creates a VM which will run prog.
// mem holds the host cells referenced by prog, it may be nil if prog does not reference any.
//
// New checks the program once, so that Step never has to:
// the length must fit the program counter,
// every operand must have the kind its Op reads,
// and every referenced cell must exist in mem.
func New(prog []I, mem *Memory, cfg Config) (*VM, error) {
	if err := CheckProgramLen(len(prog)); err != nil {
		return nil, err
	}
	if err := checkProgram(prog, mem); err != nil {
		return nil, err
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	return &VM{
		prog:   prog,
		mem:    mem,
		out:    out,
		tracer: cfg.Tracer,
	}, nil
}

// Step executes exactly one instruction.
//
// If the program counter is outside the program, the VM halts and nothing else happens.
// Step returns ErrHalted if the VM had already halted; callers should check Halted first.
// Any other error is fatal: the VM halts and the error is also available from Err.
func (vm *VM) Step() error {
	if vm.halted {
		return ErrHalted
	}
	if vm.AtEnd() {
		vm.halt()
		return nil
	}
	ix := vm.prog[vm.pc]
	if vm.tracer != nil {
		vm.tracer.TraceStep(vm.pc, ix.Op, vm.stack)
	}
	// it is important to adjust the program counter before the instruction so
	// that the instruction can override it.
	vm.pc++
	vm.steps++
	vm.exec(ix)
	if vm.halted {
		vm.halt()
	}
	return vm.err
}

// Halted returns true once the VM will not execute any more instructions.
func (vm *VM) Halted() bool {
	return vm.halted
}

// Err returns the error which halted the VM, if any.
// A VM which halted by running off the end of its program, or with Exit, has a nil Err.
func (vm *VM) Err() error {
	return vm.err
}

// PC returns the index of the next instruction.
func (vm *VM) PC() int32 {
	return vm.pc
}

// AtEnd returns true if the program counter is outside the program.
// The next call to Step halts the VM without executing an instruction.
func (vm *VM) AtEnd() bool {
	return vm.pc < 0 || int(vm.pc) >= len(vm.prog)
}

// FrameBase returns the stack index of the current call frame.
func (vm *VM) FrameBase() int32 {
	return vm.base
}

// Steps returns the number of instructions executed.
func (vm *VM) Steps() uint64 {
	return vm.steps
}

// Len returns the number of words on the stack.
func (vm *VM) Len() int {
	return len(vm.stack)
}

// DumpStack appends the stack, bottom first, to out.
func (vm *VM) DumpStack(out []Word) []Word {
	return append(out, vm.stack...)
}

func (vm *VM) Memory() *Memory {
	return vm.mem
}

func (vm *VM) exec(ix I) {
	x := ix.X
	switch ix.Op {
	// stack
	case spec.PushFloat, spec.PushInt, spec.PushBool:
		vm.push(x.Word())
	case spec.Pop:
		vm.pop()
	case spec.PopReduce:
		top := vm.pop()
		vm.pop()
		vm.push(top)
	case spec.Dup:
		vm.push(vm.get(len(vm.stack) - 1))

	// load
	case spec.LoadFloat:
		vm.push(FloatWord(vm.mem.Float(x.AsFloatCell())))
	case spec.LoadInt:
		vm.push(IntWord(vm.mem.Int(x.AsIntCell())))
	case spec.LoadBool:
		vm.push(BoolWord(vm.mem.Bool(x.AsBoolCell())))
	case spec.LoadStAbs:
		vm.push(vm.get(vm.absIndex(x)))
	case spec.LoadStRel:
		vm.push(vm.get(vm.relIndex(x)))
	case spec.LoadLocal:
		vm.push(vm.get(vm.localIndex(x)))
	case spec.LoadArg:
		vm.push(vm.get(vm.argIndex(x)))

	// store
	// the value is popped before the slot is addressed.
	case spec.StoreFloat:
		vm.mem.SetFloat(x.AsFloatCell(), WordFloat(vm.pop()))
	case spec.StoreInt:
		vm.mem.SetInt(x.AsIntCell(), WordInt(vm.pop()))
	case spec.StoreBool:
		vm.mem.SetBool(x.AsBoolCell(), WordBool(vm.pop()))
	case spec.StoreStAbs:
		w := vm.pop()
		vm.set(vm.absIndex(x), w)
	case spec.StoreStRel:
		w := vm.pop()
		vm.set(vm.relIndex(x), w)
	case spec.StoreLocal:
		w := vm.pop()
		vm.set(vm.localIndex(x), w)
	case spec.StoreArg:
		w := vm.pop()
		vm.set(vm.argIndex(x), w)

	// comparison
	case spec.EqualsFF:
		compare(vm, WordFloat, true)
	case spec.EqualsII:
		compare(vm, WordInt, true)
	case spec.EqualsBB:
		compare(vm, WordBool, true)
	case spec.NotEqualsFF:
		compare(vm, WordFloat, false)
	case spec.NotEqualsII:
		compare(vm, WordInt, false)
	case spec.NotEqualsBB:
		compare(vm, WordBool, false)

	// control flow
	case spec.Jump:
		vm.jump(x.AsInt())
	case spec.JumpRel:
		vm.jumpRel(x.AsInt())
	case spec.JumpIfTrue:
		if WordBool(vm.pop()) {
			vm.jump(x.AsInt())
		}
	case spec.JumpRelIfTrue:
		if WordBool(vm.pop()) {
			vm.jumpRel(x.AsInt())
		}
	case spec.Call:
		vm.call(x.AsInt())
	case spec.Return:
		vm.ret()
	case spec.ReturnTos:
		tos := vm.pop()
		vm.ret()
		vm.push(tos)

	// arithmetic
	case spec.AddFF:
		arith(vm, WordFloat, FloatWord, add[float32])
	case spec.AddII:
		arith(vm, WordInt, IntWord, add[int32])
	case spec.SubFF:
		arith(vm, WordFloat, FloatWord, sub[float32])
	case spec.SubII:
		arith(vm, WordInt, IntWord, sub[int32])
	case spec.MulFF:
		arith(vm, WordFloat, FloatWord, mul[float32])
	case spec.MulII:
		arith(vm, WordInt, IntWord, mul[int32])
	case spec.IncrementI:
		vm.push(IntWord(WordInt(vm.pop()) + 1))
	case spec.DecrementI:
		vm.push(IntWord(WordInt(vm.pop()) - 1))

	// output
	case spec.Dump:
		if _, err := io.WriteString(vm.out, x.AsString()); err != nil {
			vm.fail(fmt.Errorf("dump: %w", err))
		}

	case spec.Exit:
		vm.halted = true

	default:
		// New does not accept invalid ops
		panic(ix)
	}
}

// halt stops the machine and reports the final state to the tracer.
func (vm *VM) halt() {
	vm.halted = true
	if vm.tracer != nil {
		vm.tracer.TraceExit(vm.stack)
	}
}

// fail records err if it is the first failure and stops the machine.
// The current instruction still runs to completion, but its effects are not observable
// because nothing else will execute.
func (vm *VM) fail(err error) {
	if vm.err == nil {
		vm.err = err
	}
	vm.halted = true
}

func (vm *VM) push(x Word) {
	vm.stack = append(vm.stack, x)
}

func (vm *VM) pop() Word {
	i := len(vm.stack) - 1
	if i < 0 {
		vm.fail(ErrStackUnderflow)
		return 0
	}
	ret := vm.stack[i]
	vm.stack = vm.stack[:i]
	return ret
}

// get returns the word at index i from the bottom of the stack.
func (vm *VM) get(i int) Word {
	if !vm.checkIndex(i) {
		return 0
	}
	return vm.stack[i]
}

func (vm *VM) set(i int, x Word) {
	if !vm.checkIndex(i) {
		return
	}
	vm.stack[i] = x
}

func (vm *VM) checkIndex(i int) bool {
	if i < 0 || i >= len(vm.stack) {
		if len(vm.stack) == 0 {
			vm.fail(ErrStackUnderflow)
		} else {
			vm.fail(fmt.Errorf("%w: index=%d size=%d", ErrStackIndex, i, len(vm.stack)))
		}
		return false
	}
	return true
}

// absIndex addresses from the bottom of the stack
func (vm *VM) absIndex(x Operand) int {
	return int(x.AsInt())
}

// relIndex addresses down from the top of the stack, 0 is the top
func (vm *VM) relIndex(x Operand) int {
	return len(vm.stack) - 1 - int(x.AsInt())
}

// localIndex addresses up from the frame base
func (vm *VM) localIndex(x Operand) int {
	return int(vm.base) + int(x.AsInt())
}

// argIndex addresses the arguments below the saved program counter and frame base.
// Arguments are numbered in reverse, 0 is the last one pushed.
func (vm *VM) argIndex(x Operand) int {
	return int(vm.base) - 2 - int(x.AsInt())
}

func (vm *VM) jump(target int32) {
	vm.pc = target
}

// jumpRel jumps relative to the instruction being executed.
// vm.pc has already been advanced past it.
func (vm *VM) jumpRel(offset int32) {
	vm.pc = vm.pc - 1 + offset
}

// call saves the return address and frame base on the stack,
// and then starts a new frame at the top of the stack.
func (vm *VM) call(target int32) {
	vm.push(IntWord(vm.pc))
	vm.push(IntWord(vm.base))
	vm.base = int32(len(vm.stack) - 1)
	vm.pc = target
}

// ret restores the frame base and program counter saved by call
func (vm *VM) ret() {
	vm.base = WordInt(vm.pop())
	vm.pc = WordInt(vm.pop())
}

type number interface {
	constraints.Integer | constraints.Float
}

func add[T number](a, b T) T { return a + b }
func sub[T number](a, b T) T { return a - b }
func mul[T number](a, b T) T { return a * b }

// arith pops b, then a, and pushes fn(a, b).
// So for a stack of [..., a, b], Sub leaves [..., a - b]
func arith[T number](vm *VM, dec func(Word) T, enc func(T) Word, fn func(a, b T) T) {
	b := dec(vm.pop())
	a := dec(vm.pop())
	vm.push(enc(fn(a, b)))
}

// compare pops two values and pushes whether they are equal (or not equal if eq is false)
func compare[T comparable](vm *VM, dec func(Word) T, eq bool) {
	b := dec(vm.pop())
	a := dec(vm.pop())
	vm.push(BoolWord((a == b) == eq))
}
