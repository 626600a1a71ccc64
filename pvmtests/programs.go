// package pvmtests contains example programs and the results they should produce.
package pvmtests

import (
	"fmt"
	"slices"

	"golang.org/x/exp/maps"

	"pugvm.org/pugvm/pvm"
	"pugvm.org/pugvm/spec"
)

type I = pvm.I

var (
	ix  = pvm.Ix
	op0 = pvm.Op0
)

// Vec is a program, the memory it runs against, and what it should leave behind.
type Vec struct {
	Name string
	Prog []I
	Mem  *pvm.Memory

	// Output is the text the program writes with Dump
	Output string
	// Stack is the stack after the program halts, nil if it is empty
	Stack []pvm.Word
	// Check returns an error if Mem does not hold the expected results
	Check func(mem *pvm.Memory) error
}

// Vecs returns one of each example program, with fresh memory.
func Vecs() (out []Vec) {
	for _, name := range Names() {
		v, err := Lookup(name, 5)
		if err != nil {
			panic(err)
		}
		out = append(out, v)
	}
	return out
}

var registry = map[string]func(n int32) (Vec, error){
	"fac": func(n int32) (Vec, error) {
		if n < 1 {
			return Vec{}, fmt.Errorf("fac is only defined for n >= 1, have %d", n)
		}
		return Factorial(n), nil
	},
	"fac-iter": func(n int32) (Vec, error) {
		if n < 1 {
			return Vec{}, fmt.Errorf("fac-iter is only defined for n >= 1, have %d", n)
		}
		return FactorialIter(n), nil
	},
	"countdown": func(n int32) (Vec, error) {
		if n < 0 {
			return Vec{}, fmt.Errorf("countdown needs n >= 0, have %d", n)
		}
		return Countdown(n), nil
	},
	"sum3": func(n int32) (Vec, error) {
		return Sum3(n, n+1, n+2), nil
	},
	"float": func(int32) (Vec, error) {
		return FloatSum(), nil
	},
}

// Names returns the names accepted by Lookup, sorted.
func Names() []string {
	names := maps.Keys(registry)
	slices.Sort(names)
	return names
}

// Lookup returns the example program called name, parameterized by n.
func Lookup(name string, n int32) (Vec, error) {
	mk, exists := registry[name]
	if !exists {
		return Vec{}, fmt.Errorf("no program named %q. options: %v", name, Names())
	}
	return mk(n)
}

// Fac computes n! the way the VM does, with 32 bit wraparound.
func Fac(n int32) int32 {
	ret := int32(1)
	for i := int32(2); i <= n; i++ {
		ret *= i
	}
	return ret
}

// Factorial computes fac(x) = 1 if x == 1 else x * fac(x - 1), recursively.
// The argument is read from, and the result written to, the same int cell.
func Factorial(n int32) Vec {
	mem := pvm.NewMemory()
	res := mem.NewInt(n)
	prog := []I{
		ix(spec.LoadInt, pvm.IntRef(res)),
		ix(spec.Call, pvm.Int(5)),
		op0(spec.PopReduce),
		ix(spec.StoreInt, pvm.IntRef(res)),
		op0(spec.Exit),

		// fac(x)
		ix(spec.LoadArg, pvm.Int(0)),
		ix(spec.PushInt, pvm.Int(1)),
		op0(spec.NotEqualsII),
		ix(spec.JumpRelIfTrue, pvm.Int(3)),
		ix(spec.PushInt, pvm.Int(1)),
		op0(spec.ReturnTos),

		ix(spec.LoadArg, pvm.Int(0)),
		op0(spec.DecrementI),
		ix(spec.Call, pvm.Int(5)),
		op0(spec.PopReduce),
		ix(spec.LoadArg, pvm.Int(0)),
		op0(spec.MulII),
		op0(spec.ReturnTos),
	}
	return Vec{
		Name:  "fac",
		Prog:  prog,
		Mem:   mem,
		Check: expectInt(res, Fac(n)),
	}
}

// FactorialIter computes n! with a loop, keeping the accumulator and counter in locals 0 and 1.
func FactorialIter(n int32) Vec {
	mem := pvm.NewMemory()
	res := mem.NewInt(n)
	prog := []I{
		ix(spec.LoadInt, pvm.IntRef(res)), // local 0: accumulator
		op0(spec.Dup),                     // local 1: counter

		// loop
		op0(spec.Dup),
		ix(spec.PushInt, pvm.Int(1)),
		op0(spec.EqualsII),
		ix(spec.JumpRelIfTrue, pvm.Int(7)),

		op0(spec.DecrementI),
		ix(spec.LoadLocal, pvm.Int(0)),
		ix(spec.LoadLocal, pvm.Int(1)),
		op0(spec.MulII),
		ix(spec.StoreLocal, pvm.Int(0)),
		ix(spec.Jump, pvm.Int(2)),

		op0(spec.Pop),
		ix(spec.StoreInt, pvm.IntRef(res)),
		op0(spec.Exit),
	}
	return Vec{
		Name:  "fac-iter",
		Prog:  prog,
		Mem:   mem,
		Check: expectInt(res, Fac(n)),
	}
}

// Countdown writes "tick" n times, then "liftoff", counting the cell down to 0.
func Countdown(n int32) Vec {
	mem := pvm.NewMemory()
	counter := mem.NewInt(n)
	prog := []I{
		ix(spec.LoadInt, pvm.IntRef(counter)),
		op0(spec.Dup),
		ix(spec.PushInt, pvm.Int(0)),
		op0(spec.EqualsII),
		ix(spec.JumpRelIfTrue, pvm.Int(4)),
		ix(spec.Dump, pvm.Str("tick\n")),
		op0(spec.DecrementI),
		ix(spec.JumpRel, pvm.Int(-6)),

		ix(spec.Dump, pvm.Str("liftoff\n")),
		ix(spec.StoreInt, pvm.IntRef(counter)),
		op0(spec.Exit),
	}
	var out string
	for i := int32(0); i < n; i++ {
		out += "tick\n"
	}
	out += "liftoff\n"
	return Vec{
		Name:   "countdown",
		Prog:   prog,
		Mem:    mem,
		Output: out,
		Check:  expectInt(counter, 0),
	}
}

// Sum3 calls a function of 3 arguments, which overwrites its first argument with the sum,
// and returns with a plain Return.
func Sum3(a, b, c int32) Vec {
	mem := pvm.NewMemory()
	res := mem.NewInt(0)
	prog := []I{
		ix(spec.PushInt, pvm.Int(a)),
		ix(spec.PushInt, pvm.Int(b)),
		ix(spec.PushInt, pvm.Int(c)),
		ix(spec.Call, pvm.Int(8)),
		op0(spec.Pop),
		op0(spec.Pop),
		ix(spec.StoreInt, pvm.IntRef(res)),
		op0(spec.Exit),

		// sum3(a, b, c)
		ix(spec.LoadArg, pvm.Int(0)),
		ix(spec.LoadArg, pvm.Int(1)),
		op0(spec.AddII),
		ix(spec.LoadArg, pvm.Int(2)),
		op0(spec.AddII),
		ix(spec.StoreArg, pvm.Int(2)),
		op0(spec.Return),
	}
	return Vec{
		Name:  "sum3",
		Prog:  prog,
		Mem:   mem,
		Check: expectInt(res, a+b+c),
	}
}

// FloatSum computes (1.5 + 2.25) * 2 - 0.5, stores it, and records whether it equals 7.
// The result is left on the stack.
func FloatSum() Vec {
	mem := pvm.NewMemory()
	out := mem.NewFloat(0)
	ok := mem.NewBool(false)
	prog := []I{
		ix(spec.PushFloat, pvm.Float(1.5)),
		ix(spec.PushFloat, pvm.Float(2.25)),
		op0(spec.AddFF),
		ix(spec.PushFloat, pvm.Float(2)),
		op0(spec.MulFF),
		ix(spec.PushFloat, pvm.Float(0.5)),
		op0(spec.SubFF),
		op0(spec.Dup),
		ix(spec.StoreFloat, pvm.FloatRef(out)),
		op0(spec.Dup),
		ix(spec.PushFloat, pvm.Float(7)),
		op0(spec.EqualsFF),
		ix(spec.StoreBool, pvm.BoolRef(ok)),
		op0(spec.Exit),
	}
	return Vec{
		Name:  "float",
		Prog:  prog,
		Mem:   mem,
		Stack: []pvm.Word{pvm.FloatWord(7)},
		Check: func(mem *pvm.Memory) error {
			if x := mem.Float(out); x != 7 {
				return fmt.Errorf("float cell: HAVE %v WANT 7", x)
			}
			if !mem.Bool(ok) {
				return fmt.Errorf("bool cell not set")
			}
			return nil
		},
	}
}

func expectInt(c pvm.IntCell, want int32) func(*pvm.Memory) error {
	return func(mem *pvm.Memory) error {
		if have := mem.Int(c); have != want {
			return fmt.Errorf("int cell %d: HAVE %d WANT %d", c, have, want)
		}
		return nil
	}
}
