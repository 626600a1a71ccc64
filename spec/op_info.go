package spec

// OperandKind is the shape of operand an Op expects.
type OperandKind uint8

const (
	// OperandNone means the Op ignores its operand.
	OperandNone OperandKind = iota
	OperandInt
	OperandFloat
	OperandBool
	// OperandString is text written by Dump.
	OperandString
	// OperandIntCell is a handle to a host int cell.
	OperandIntCell
	OperandFloatCell
	OperandBoolCell
)

func (k OperandKind) String() string {
	switch k {
	case OperandNone:
		return "none"
	case OperandInt:
		return "int"
	case OperandFloat:
		return "float"
	case OperandBool:
		return "bool"
	case OperandString:
		return "string"
	case OperandIntCell:
		return "*int"
	case OperandFloatCell:
		return "*float"
	case OperandBoolCell:
		return "*bool"
	default:
		return "OperandKind(?)"
	}
}

// IsCell returns true if the operand refers to host memory.
func (k OperandKind) IsCell() bool {
	return k == OperandIntCell || k == OperandFloatCell || k == OperandBoolCell
}

// Info is information about Operations
type Info struct {
	Operand OperandKind `json:"operand"`
	// In is the number of words consumed, -1 if it depends on the stack.
	In int `json:"in"`
	// Out is the number of words produced, -1 if it depends on the stack.
	Out int `json:"out"`
}

func (p Op) Info() Info {
	if !p.Valid() {
		return Info{In: -1, Out: -1}
	}
	return infos[p]
}

// OperandKind returns the kind of operand the Op reads.
func (p Op) OperandKind() OperandKind {
	return p.Info().Operand
}

var infos = [Count]Info{
	PushFloat: {OperandFloat, 0, 1},
	PushInt:   {OperandInt, 0, 1},
	PushBool:  {OperandBool, 0, 1},
	Pop:       {OperandNone, 1, 0},
	PopReduce: {OperandNone, 2, 1},
	Dup:       {OperandNone, 1, 2},

	StoreFloat: {OperandFloatCell, 1, 0},
	StoreInt:   {OperandIntCell, 1, 0},
	StoreBool:  {OperandBoolCell, 1, 0},
	StoreStAbs: {OperandInt, 1, 0},
	StoreStRel: {OperandInt, 1, 0},
	StoreLocal: {OperandInt, 1, 0},
	StoreArg:   {OperandInt, 1, 0},

	LoadFloat: {OperandFloatCell, 0, 1},
	LoadInt:   {OperandIntCell, 0, 1},
	LoadBool:  {OperandBoolCell, 0, 1},
	LoadStAbs: {OperandInt, 0, 1},
	LoadStRel: {OperandInt, 0, 1},
	LoadLocal: {OperandInt, 0, 1},
	LoadArg:   {OperandInt, 0, 1},

	EqualsFF:    {OperandNone, 2, 1},
	EqualsII:    {OperandNone, 2, 1},
	EqualsBB:    {OperandNone, 2, 1},
	NotEqualsFF: {OperandNone, 2, 1},
	NotEqualsII: {OperandNone, 2, 1},
	NotEqualsBB: {OperandNone, 2, 1},

	Jump:          {OperandInt, 0, 0},
	JumpIfTrue:    {OperandInt, 1, 0},
	JumpRel:       {OperandInt, 0, 0},
	JumpRelIfTrue: {OperandInt, 1, 0},
	Call:          {OperandInt, 0, 2},
	Return:        {OperandNone, 2, 0},
	ReturnTos:     {OperandNone, 3, 1},

	AddFF:      {OperandNone, 2, 1},
	AddII:      {OperandNone, 2, 1},
	SubFF:      {OperandNone, 2, 1},
	SubII:      {OperandNone, 2, 1},
	MulFF:      {OperandNone, 2, 1},
	MulII:      {OperandNone, 2, 1},
	DecrementI: {OperandNone, 1, 1},
	IncrementI: {OperandNone, 1, 1},

	Dump: {OperandString, 0, 0},
	Exit: {OperandNone, 0, 0},
}
