package spec

// All returns every Op in the instruction set, in encoding order.
func All() (ret []Op) {
	for i := 0; i < Count; i++ {
		ret = append(ret, Op(i))
	}
	return ret
}

// AllHost contains all the operations that touch host memory.
func AllHost() (ret []Op) {
	for _, p := range All() {
		if p.OperandKind().IsCell() {
			ret = append(ret, p)
		}
	}
	return ret
}

// IsJump returns true if p may assign the program counter.
func (p Op) IsJump() bool {
	switch p {
	case Jump, JumpIfTrue, JumpRel, JumpRelIfTrue, Call, Return, ReturnTos:
		return true
	}
	return false
}
