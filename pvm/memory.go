package pvm

import (
	"fmt"

	"pugvm.org/pugvm/spec"
)

type (
	// IntCell is a handle to an int32 in a Memory
	IntCell uint32
	// FloatCell is a handle to a float32 in a Memory
	FloatCell uint32
	// BoolCell is a handle to a bool in a Memory
	BoolCell uint32
)

// Memory is host-owned storage which a program can read and write through
// LoadInt, StoreInt and friends.
//
// Cells are only ever added, so a handle stays valid for the life of the Memory.
// The VM holds a reference to the Memory it was created with; the host can read
// results out of it while the VM is halted.
// Memory is not safe for concurrent use.
type Memory struct {
	ints   []int32
	floats []float32
	bools  []bool
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) NewInt(x int32) IntCell {
	m.ints = append(m.ints, x)
	return IntCell(len(m.ints) - 1)
}

func (m *Memory) NewFloat(x float32) FloatCell {
	m.floats = append(m.floats, x)
	return FloatCell(len(m.floats) - 1)
}

func (m *Memory) NewBool(x bool) BoolCell {
	m.bools = append(m.bools, x)
	return BoolCell(len(m.bools) - 1)
}

func (m *Memory) Int(c IntCell) int32             { return m.ints[c] }
func (m *Memory) Float(c FloatCell) float32       { return m.floats[c] }
func (m *Memory) Bool(c BoolCell) bool            { return m.bools[c] }
func (m *Memory) SetInt(c IntCell, x int32)       { m.ints[c] = x }
func (m *Memory) SetFloat(c FloatCell, x float32) { m.floats[c] = x }
func (m *Memory) SetBool(c BoolCell, x bool)      { m.bools[c] = x }

func (m *Memory) String() string {
	return fmt.Sprintf("{ints: %v, floats: %v, bools: %v}", m.ints, m.floats, m.bools)
}

func (m *Memory) has(kind spec.OperandKind, idx Word) bool {
	if m == nil {
		return false
	}
	switch kind {
	case spec.OperandIntCell:
		return int(idx) < len(m.ints)
	case spec.OperandFloatCell:
		return int(idx) < len(m.floats)
	case spec.OperandBoolCell:
		return int(idx) < len(m.bools)
	default:
		return false
	}
}
