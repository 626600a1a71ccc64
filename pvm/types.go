package pvm

import (
	"fmt"
	"math"

	"pugvm.org/pugvm/spec"
)

// Word is a single slot on the operand stack.
// It holds the bit pattern of an Int, Float, or Bool.
// Nothing in a Word says which; the Op reading it decides.
type Word = uint32

const (
	WordBits  = 32
	WordBytes = WordBits / 8
)

func IntWord(x int32) Word { return Word(x) }

func FloatWord(x float32) Word { return math.Float32bits(x) }

func BoolWord(x bool) Word {
	if x {
		return 1
	}
	return 0
}

func WordInt(w Word) int32 { return int32(w) }

func WordFloat(w Word) float32 { return math.Float32frombits(w) }

func WordBool(w Word) bool { return w != 0 }

// Operand is the immediate value or memory reference accompanying an Op.
//
// The kind is fixed when the Operand is constructed and checked once, when a
// program is loaded by New. The accessors do not check it: reading the wrong
// member returns a reinterpretation of the same bits, the way the VM treats stack words.
type Operand struct {
	kind spec.OperandKind
	w    Word
	s    string
}

func Int(x int32) Operand {
	return Operand{kind: spec.OperandInt, w: IntWord(x)}
}

func Float(x float32) Operand {
	return Operand{kind: spec.OperandFloat, w: FloatWord(x)}
}

func Bool(x bool) Operand {
	return Operand{kind: spec.OperandBool, w: BoolWord(x)}
}

// Str is the text written by Dump.
func Str(s string) Operand {
	return Operand{kind: spec.OperandString, s: s}
}

func IntRef(c IntCell) Operand {
	return Operand{kind: spec.OperandIntCell, w: Word(c)}
}

func FloatRef(c FloatCell) Operand {
	return Operand{kind: spec.OperandFloatCell, w: Word(c)}
}

func BoolRef(c BoolCell) Operand {
	return Operand{kind: spec.OperandBoolCell, w: Word(c)}
}

func (x Operand) Kind() spec.OperandKind { return x.kind }

// Word returns the immediate as it would be pushed on the stack.
func (x Operand) Word() Word { return x.w }

func (x Operand) AsInt() int32     { return WordInt(x.w) }
func (x Operand) AsFloat() float32 { return WordFloat(x.w) }
func (x Operand) AsBool() bool     { return WordBool(x.w) }
func (x Operand) AsString() string { return x.s }

func (x Operand) AsIntCell() IntCell     { return IntCell(x.w) }
func (x Operand) AsFloatCell() FloatCell { return FloatCell(x.w) }
func (x Operand) AsBoolCell() BoolCell   { return BoolCell(x.w) }

func (x Operand) String() string {
	switch x.kind {
	case spec.OperandNone:
		return "_"
	case spec.OperandInt:
		return fmt.Sprint(x.AsInt())
	case spec.OperandFloat:
		return fmt.Sprint(x.AsFloat())
	case spec.OperandBool:
		return fmt.Sprint(x.AsBool())
	case spec.OperandString:
		return fmt.Sprintf("%q", x.s)
	default:
		return fmt.Sprintf("%v#%d", x.kind, x.w)
	}
}

// I is an instruction, it changes the state of the VM
type I struct {
	Op spec.Op
	X  Operand
}

// Ix creates an instruction with an operand
func Ix(op spec.Op, x Operand) I {
	return I{Op: op, X: x}
}

// Op0 creates an instruction which takes no operand
func Op0(op spec.Op) I {
	return I{Op: op}
}

func (ix I) String() string {
	if ix.X.kind == spec.OperandNone {
		return ix.Op.String()
	}
	return fmt.Sprintf("%v %v", ix.Op, ix.X)
}

// OperandError is returned by New when an instruction cannot be executed
// with the operand it carries.
type OperandError struct {
	Index  int
	I      I
	Reason string
}

func (e *OperandError) Error() string {
	return fmt.Sprintf("instruction %d (%v): %s", e.Index, e.I, e.Reason)
}

// checkProgram verifies that every instruction has a valid Op, that its operand has
// the kind the Op reads, and that every host cell it references exists in mem.
func checkProgram(prog []I, mem *Memory) error {
	for i, ix := range prog {
		if !ix.Op.Valid() {
			return &OperandError{Index: i, I: ix, Reason: "invalid op"}
		}
		want := ix.Op.OperandKind()
		if ix.X.kind != want {
			return &OperandError{Index: i, I: ix, Reason: fmt.Sprintf("operand is %v, op reads %v", ix.X.kind, want)}
		}
		if want.IsCell() && !mem.has(want, ix.X.w) {
			return &OperandError{Index: i, I: ix, Reason: "operand refers to a cell which does not exist"}
		}
	}
	return nil
}
