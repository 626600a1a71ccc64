// package spec contains the instruction set of the Pug Virtual Machine.
package spec

// Op is a primitive operation
//
//go:generate go run golang.org/x/tools/cmd/stringer -type=Op
type Op uint8

// Stack
const (
	// PushFloat (imm: Float) => Float
	PushFloat Op = iota
	// PushInt (imm: Int) => Int
	PushInt
	// PushBool (imm: Bool) => Bool
	PushBool

	// Pop (x) =>
	Pop
	// PopReduce (x, y) => y
	PopReduce

	// Dup (x) => x, x
	Dup
)

// Store pops a value and writes it somewhere other than the top of the stack.
const (
	// StoreFloat (x: Float) => ; writes x to a host float cell
	StoreFloat Op = iota + Dup + 1
	// StoreInt (x: Int) => ; writes x to a host int cell
	StoreInt
	// StoreBool (x: Bool) => ; writes x to a host bool cell
	StoreBool
	// StoreStAbs (x) => ; stack[imm] = x
	StoreStAbs
	// StoreStRel (x) => ; stack[top - imm] = x
	StoreStRel
	// StoreLocal (x) => ; stack[base + imm] = x
	StoreLocal
	// StoreArg (x) => ; stack[base - 2 - imm] = x
	StoreArg
)

// Load pushes a copy of a value from somewhere other than the top of the stack.
const (
	// LoadFloat () => Float
	LoadFloat Op = iota + StoreArg + 1
	// LoadInt () => Int
	LoadInt
	// LoadBool () => Bool
	LoadBool
	// LoadStAbs () => stack[imm]
	LoadStAbs
	// LoadStRel () => stack[top - imm]
	LoadStRel
	// LoadLocal () => stack[base + imm]
	LoadLocal
	// LoadArg () => stack[base - 2 - imm]
	LoadArg
)

// Comparison
const (
	// EqualsFF (a, b: Float) => Bool
	EqualsFF Op = iota + LoadArg + 1
	EqualsII
	EqualsBB
	// NotEqualsFF (a, b: Float) => Bool
	NotEqualsFF
	NotEqualsII
	NotEqualsBB
)

// Control flow.
// Relative targets are measured from the index of the jumping instruction.
const (
	// Jump () => ; pc = imm
	Jump Op = iota + NotEqualsBB + 1
	// JumpIfTrue (cond: Bool) =>
	JumpIfTrue
	// JumpRel () => ; pc = here + imm
	JumpRel
	// JumpRelIfTrue (cond: Bool) =>
	JumpRelIfTrue

	// Call (args...) => args..., retPC, savedBase
	Call
	// Return (retPC, savedBase) =>
	Return
	// ReturnTos (retPC, savedBase, x) => x
	ReturnTos
)

// Arithmetic
const (
	AddFF Op = iota + ReturnTos + 1
	AddII

	// SubFF (a, b: Float) => a - b
	SubFF
	// SubII (a, b: Int) => a - b
	SubII

	MulFF
	MulII

	// DecrementI (x: Int) => x - 1
	DecrementI
	// IncrementI (x: Int) => x + 1
	IncrementI
)

const (
	// Dump writes the operand string to the output.
	Dump Op = iota + IncrementI + 1
	// Exit halts the machine.
	Exit
)

// Count is the number of valid Ops. Every Op < Count is valid.
const Count = int(Exit) + 1

// Valid returns true if p is a member of the instruction set.
func (p Op) Valid() bool {
	return int(p) < Count
}

// MustName returns the name of p.
// An invalid Op here means the instruction stream was corrupted after it was validated,
// so MustName panics instead of returning a placeholder.
func (p Op) MustName() string {
	if !p.Valid() {
		panic("spec: invalid Op " + p.String())
	}
	return p.String()
}
