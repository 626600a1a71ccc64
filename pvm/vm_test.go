package pvm

import (
	"bytes"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"pugvm.org/pugvm/spec"
)

func TestVM(t *testing.T) {
	t.Parallel()
	type testCase struct {
		Name  string
		Setup func(t testing.TB, vm *VM)
		Prog  []I

		// End is what is on the stack at the end
		End []Word
		// Base is the frame base at the end
		Base int32
	}
	tcs := []testCase{
		{
			Name: "Seq",
			Prog: []I{
				pushI(11),
				pushI(22),
				pushI(-33),
			},
			End: ints(11, 22, -33),
		},
		{
			Name: "PushFloat",
			Prog: []I{Ix(spec.PushFloat, Float(1.25))},
			End:  []Word{FloatWord(1.25)},
		},
		{
			Name: "PushBool",
			Prog: []I{Ix(spec.PushBool, Bool(true)), Ix(spec.PushBool, Bool(false))},
			End:  []Word{1, 0},
		},
		{
			Name:  "Pop",
			Setup: setupStack(1, 2),
			Prog:  []I{Op0(spec.Pop)},
			End:   ints(1),
		},
		{
			Name:  "Dup",
			Setup: setupStack(1, 2),
			Prog:  []I{Op0(spec.Dup)},
			End:   ints(1, 2, 2),
		},
		{
			Name:  "LoadStAbs",
			Setup: setupStack(10, 20, 30),
			Prog:  []I{Ix(spec.LoadStAbs, Int(1))},
			End:   ints(10, 20, 30, 20),
		},
		{
			Name:  "LoadStRel 0 is the top",
			Setup: setupStack(10, 20, 30),
			Prog:  []I{Ix(spec.LoadStRel, Int(0)), Ix(spec.LoadStRel, Int(3))},
			End:   ints(10, 20, 30, 30, 10),
		},
		{
			Name:  "StoreStAbs",
			Setup: setupStack(10, 20, 30),
			Prog:  []I{Ix(spec.StoreStAbs, Int(0))},
			End:   ints(30, 20),
		},
		{
			Name:  "StoreStRel addresses after the pop",
			Setup: setupStack(10, 20, 30),
			Prog:  []I{Ix(spec.StoreStRel, Int(1))},
			End:   ints(30, 20),
		},
		{
			Name:  "LoadLocal StoreLocal",
			Setup: setupStack(10, 20, 30),
			Prog: []I{
				Ix(spec.LoadLocal, Int(2)),
				Ix(spec.StoreLocal, Int(1)),
			},
			End: ints(10, 30, 30),
		},
		{
			Name:  "EqualsII",
			Setup: setupStack(123, 123),
			Prog:  []I{Op0(spec.EqualsII)},
			End:   []Word{1},
		},
		{
			Name:  "NotEqualsII",
			Setup: setupStack(123, 124),
			Prog:  []I{Op0(spec.NotEqualsII)},
			End:   []Word{1},
		},
		{
			Name: "EqualsBB",
			Prog: []I{
				Ix(spec.PushBool, Bool(true)),
				Ix(spec.PushBool, Bool(false)),
				Op0(spec.EqualsBB),
			},
			End: []Word{0},
		},
		{
			Name: "NotEqualsFF",
			Prog: []I{
				Ix(spec.PushFloat, Float(0.5)),
				Ix(spec.PushFloat, Float(0.25)),
				Op0(spec.NotEqualsFF),
			},
			End: []Word{1},
		},
		{
			Name:  "AddII",
			Setup: setupStack(2, 3),
			Prog:  []I{Op0(spec.AddII)},
			End:   ints(5),
		},
		{
			Name:  "MulII",
			Setup: setupStack(-4, 3),
			Prog:  []I{Op0(spec.MulII)},
			End:   ints(-12),
		},
		{
			Name:  "AddII wraps",
			Setup: setupStack(math.MaxInt32, 1),
			Prog:  []I{Op0(spec.AddII)},
			End:   ints(math.MinInt32),
		},
		{
			Name: "SubFF",
			Prog: []I{
				Ix(spec.PushFloat, Float(1)),
				Ix(spec.PushFloat, Float(0.25)),
				Op0(spec.SubFF),
			},
			End: []Word{FloatWord(0.75)},
		},
		{
			Name: "MulFF",
			Prog: []I{
				Ix(spec.PushFloat, Float(1.5)),
				Ix(spec.PushFloat, Float(-2)),
				Op0(spec.MulFF),
			},
			End: []Word{FloatWord(-3)},
		},
		{
			Name: "Jump",
			Prog: []I{
				Ix(spec.Jump, Int(2)),
				pushI(1),
				pushI(2),
			},
			End: ints(2),
		},
		{
			Name: "JumpRel is relative to the jump",
			Prog: []I{
				pushI(0),
				Ix(spec.JumpRel, Int(2)),
				pushI(1),
				pushI(2),
			},
			End: ints(0, 2),
		},
		{
			Name: "JumpIfTrue false",
			Prog: []I{
				Ix(spec.PushBool, Bool(false)),
				Ix(spec.JumpIfTrue, Int(3)),
				pushI(777),
			},
			End: ints(777),
		},
		{
			Name: "JumpIfTrue true",
			Prog: []I{
				Ix(spec.PushBool, Bool(true)),
				Ix(spec.JumpIfTrue, Int(3)),
				pushI(777),
				pushI(333),
			},
			End: ints(333),
		},
		{
			Name: "JumpRelIfTrue backwards",
			Prog: []I{
				pushI(3),
				// loop
				Op0(spec.DecrementI),
				Op0(spec.Dup),
				pushI(0),
				Op0(spec.NotEqualsII),
				Ix(spec.JumpRelIfTrue, Int(-4)),
			},
			End: ints(0),
		},
		{
			Name: "Jump out of the program halts",
			Prog: []I{
				Ix(spec.Jump, Int(-1)),
				pushI(1),
			},
			End: nil,
		},
		{
			Name: "Call saves pc and base",
			Prog: []I{
				pushI(7),
				Ix(spec.Call, Int(3)),
				pushI(99), // never reached
				Op0(spec.Exit),
			},
			End:  ints(7, 2, 0),
			Base: 2,
		},
		{
			Name: "LoadArg StoreArg",
			Prog: []I{
				pushI(1),
				pushI(2),
				Ix(spec.Call, Int(4)),
				Op0(spec.Exit),
				Ix(spec.LoadArg, Int(1)),
				Ix(spec.StoreArg, Int(0)),
				Op0(spec.Return),
			},
			End: ints(1, 1),
		},
		{
			Name: "ReturnTos",
			Prog: []I{
				pushI(5),
				Ix(spec.Call, Int(4)),
				Op0(spec.PopReduce),
				Op0(spec.Exit),
				pushI(42),
				Op0(spec.ReturnTos),
			},
			End: ints(42),
		},
		{
			Name: "Nested frames",
			Prog: []I{
				Ix(spec.Call, Int(2)),
				Op0(spec.Exit),
				// f
				pushI(1),
				Ix(spec.Call, Int(6)),
				Op0(spec.PopReduce),
				Op0(spec.ReturnTos),
				// g
				Ix(spec.LoadArg, Int(0)),
				Op0(spec.IncrementI),
				Op0(spec.ReturnTos),
			},
			End: ints(2),
		},
		{
			Name: "Exit",
			Prog: []I{
				pushI(1),
				Op0(spec.Exit),
				pushI(2),
			},
			End: ints(1),
		},
	}

	for i, tc := range tcs {
		t.Run(fmt.Sprintf("%d/%s", i, tc.Name), func(t *testing.T) {
			vm := newVM(t, tc.Prog, nil)
			if tc.Setup != nil {
				tc.Setup(t, vm)
			}
			steps := run(t, vm)
			t.Log("steps taken:", steps)
			require.NoError(t, vm.Err())
			require.Equal(t, tc.End, vm.DumpStack(nil))
			require.Equal(t, tc.Base, vm.FrameBase())
		})
	}
}

func TestHostMemory(t *testing.T) {
	mem := NewMemory()
	ic := mem.NewInt(-7)
	fc := mem.NewFloat(2.5)
	bc := mem.NewBool(true)
	out := mem.NewInt(0)
	prog := []I{
		Ix(spec.LoadInt, IntRef(ic)),
		Op0(spec.IncrementI),
		Ix(spec.StoreInt, IntRef(out)),
		Ix(spec.LoadFloat, FloatRef(fc)),
		Ix(spec.LoadFloat, FloatRef(fc)),
		Op0(spec.AddFF),
		Ix(spec.StoreFloat, FloatRef(fc)),
		Ix(spec.LoadBool, BoolRef(bc)),
		Ix(spec.PushBool, Bool(true)),
		Op0(spec.NotEqualsBB),
		Ix(spec.StoreBool, BoolRef(bc)),
	}
	vm := newVM(t, prog, mem)
	run(t, vm)
	require.NoError(t, vm.Err())
	require.Equal(t, 0, vm.Len())
	require.Equal(t, int32(-7), mem.Int(ic))
	require.Equal(t, int32(-6), mem.Int(out))
	require.Equal(t, float32(5), mem.Float(fc))
	require.False(t, mem.Bool(bc))
	require.Same(t, mem, vm.Memory())
}

func TestDump(t *testing.T) {
	out := &bytes.Buffer{}
	vm, err := New([]I{
		Ix(spec.Dump, Str("hello ")),
		Ix(spec.Dump, Str("world\n")),
	}, nil, Config{Output: out})
	require.NoError(t, err)
	run(t, vm)
	require.NoError(t, vm.Err())
	require.Equal(t, "hello world\n", out.String())
	require.Equal(t, 0, vm.Len())
}

func TestDumpWriteFails(t *testing.T) {
	vm, err := New([]I{
		Ix(spec.Dump, Str("x")),
		pushI(1),
	}, nil, Config{Output: failWriter{}})
	require.NoError(t, err)
	require.ErrorIs(t, vm.Step(), errWrite)
	require.True(t, vm.Halted())
	require.ErrorIs(t, vm.Err(), errWrite)
	require.Equal(t, 0, vm.Len())
}

func TestNewChecks(t *testing.T) {
	mem := NewMemory()
	ic := mem.NewInt(0)
	type testCase struct {
		Name string
		Prog []I
		Mem  *Memory
	}
	tcs := []testCase{
		{Name: "invalid op", Prog: []I{{Op: spec.Op(spec.Count)}}},
		{Name: "missing operand", Prog: []I{Op0(spec.PushInt)}},
		{Name: "wrong immediate", Prog: []I{Ix(spec.PushInt, Float(1))}},
		{Name: "unexpected operand", Prog: []I{Ix(spec.Pop, Int(1))}},
		{Name: "wrong cell type", Prog: []I{Ix(spec.LoadFloat, IntRef(ic))}, Mem: mem},
		{Name: "cell does not exist", Prog: []I{Ix(spec.LoadInt, IntRef(ic + 1))}, Mem: mem},
		{Name: "no memory", Prog: []I{Ix(spec.StoreInt, IntRef(ic))}},
		{Name: "dump needs text", Prog: []I{Ix(spec.Dump, Int(0))}},
	}
	for i, tc := range tcs {
		t.Run(fmt.Sprintf("%d/%s", i, tc.Name), func(t *testing.T) {
			vm, err := New(tc.Prog, tc.Mem, Config{})
			require.Nil(t, vm)
			var oe *OperandError
			require.ErrorAs(t, err, &oe)
			require.Equal(t, 0, oe.Index)
			t.Log(err)
		})
	}
}

func TestStackFaults(t *testing.T) {
	type testCase struct {
		Name  string
		Setup func(t testing.TB, vm *VM)
		Prog  []I
		Err   error
	}
	tcs := []testCase{
		{Name: "Pop empty", Prog: []I{Op0(spec.Pop)}, Err: ErrStackUnderflow},
		{Name: "Dup empty", Prog: []I{Op0(spec.Dup)}, Err: ErrStackUnderflow},
		{Name: "AddII one operand", Setup: setupStack(1), Prog: []I{Op0(spec.AddII)}, Err: ErrStackUnderflow},
		{Name: "Return empty", Prog: []I{Op0(spec.Return)}, Err: ErrStackUnderflow},
		{Name: "JumpIfTrue empty", Prog: []I{Ix(spec.JumpIfTrue, Int(0))}, Err: ErrStackUnderflow},
		{Name: "LoadStAbs past top", Setup: setupStack(1), Prog: []I{Ix(spec.LoadStAbs, Int(1))}, Err: ErrStackIndex},
		{Name: "LoadStAbs negative", Setup: setupStack(1), Prog: []I{Ix(spec.LoadStAbs, Int(-1))}, Err: ErrStackIndex},
		{Name: "LoadStRel below bottom", Setup: setupStack(1, 2), Prog: []I{Ix(spec.LoadStRel, Int(2))}, Err: ErrStackIndex},
		{Name: "LoadArg outside a call", Setup: setupStack(1), Prog: []I{Ix(spec.LoadArg, Int(0))}, Err: ErrStackIndex},
		{Name: "StoreLocal past top", Setup: setupStack(1, 2), Prog: []I{Ix(spec.StoreLocal, Int(1))}, Err: ErrStackIndex},
		{Name: "StoreStAbs into empty", Prog: []I{pushI(1), Ix(spec.StoreStAbs, Int(0))}, Err: ErrStackUnderflow},
	}
	for i, tc := range tcs {
		t.Run(fmt.Sprintf("%d/%s", i, tc.Name), func(t *testing.T) {
			rt := NewRingTracer(4)
			vm, err := New(tc.Prog, nil, Config{Tracer: rt})
			require.NoError(t, err)
			if tc.Setup != nil {
				tc.Setup(t, vm)
			}
			var stepErr error
			for !vm.Halted() {
				stepErr = vm.Step()
			}
			require.ErrorIs(t, stepErr, tc.Err)
			require.ErrorIs(t, vm.Err(), tc.Err)
			// the VM is not resumable
			require.ErrorIs(t, vm.Step(), ErrHalted)
			es := rt.Entries()
			require.True(t, es[len(es)-1].Exit)
		})
	}
}

func TestStepAfterHalt(t *testing.T) {
	vm := newVM(t, []I{Op0(spec.Exit)}, nil)
	require.NoError(t, vm.Step())
	require.True(t, vm.Halted())
	require.NoError(t, vm.Err())
	require.ErrorIs(t, vm.Step(), ErrHalted)
	require.ErrorIs(t, vm.Step(), ErrHalted)
	require.Equal(t, uint64(1), vm.Steps())
}

func TestEmptyProgram(t *testing.T) {
	vm := newVM(t, nil, nil)
	require.False(t, vm.Halted())
	require.True(t, vm.AtEnd())
	require.Equal(t, int32(0), vm.PC())
	require.Equal(t, int32(0), vm.FrameBase())
	require.Equal(t, 0, vm.Len())

	require.NoError(t, vm.Step())
	require.True(t, vm.Halted())
	require.Equal(t, uint64(0), vm.Steps())
	require.ErrorIs(t, vm.Step(), ErrHalted)
}

func TestAtEnd(t *testing.T) {
	vm := newVM(t, []I{pushI(1)}, nil)
	require.False(t, vm.AtEnd())
	require.NoError(t, vm.Step())
	require.True(t, vm.AtEnd())
	require.False(t, vm.Halted())
	require.NoError(t, vm.Step())
	require.True(t, vm.Halted())
	require.Equal(t, uint64(1), vm.Steps())
}

func TestProgramTooLarge(t *testing.T) {
	require.NoError(t, CheckProgramLen(0))
	require.NoError(t, CheckProgramLen(MaxProgramLen))
	require.ErrorIs(t, CheckProgramLen(math.MaxInt32), ErrProgramTooLarge)
}

func newVM(t testing.TB, prog []I, mem *Memory) *VM {
	vm, err := New(prog, mem, Config{Output: &bytes.Buffer{}})
	require.NoError(t, err)
	return vm
}

// run steps vm until it halts, failing the test if that takes too long.
func run(t testing.TB, vm *VM) (steps int) {
	const maxSteps = 1e6
	for !vm.Halted() {
		if steps >= maxSteps {
			t.Fatalf("VM did not halt after %d steps", steps)
		}
		if err := vm.Step(); err != nil {
			return steps
		}
		steps++
	}
	return steps
}

func pushI(x int32) I {
	return Ix(spec.PushInt, Int(x))
}

func ints(xs ...int32) []Word {
	ret := make([]Word, len(xs))
	for i, x := range xs {
		ret[i] = IntWord(x)
	}
	return ret
}

func setupStack(xs ...int32) func(testing.TB, *VM) {
	return func(t testing.TB, vm *VM) {
		for _, x := range xs {
			vm.push(IntWord(x))
		}
	}
}

var errWrite = fmt.Errorf("write failed")

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) {
	return 0, errWrite
}
