package pugvm

import (
	"encoding/binary"

	"lukechampine.com/blake3"

	"pugvm.org/pugvm/internal/cadata"
	"pugvm.org/pugvm/pvm"
	"pugvm.org/pugvm/spec"
)

type (
	// ID is a Content ID
	ID = cadata.ID
)

// ParseID parses the output of ID.String
func ParseID(s string) (ID, error) {
	return cadata.ParseID(s)
}

// Hash calculates the hash of x.
// If tag == nil, then the hash is unkeyed.
// If tag != nil, then the hash will be keyed with the tag.
func Hash(tag *ID, x []byte) (ret ID) {
	var key []byte
	if tag != nil {
		key = tag[:]
	}
	h := blake3.New(32, key)
	h.Write(x)
	h.Sum(ret[:0])
	return ret
}

// AppendProgram appends a canonical encoding of prog to out.
// Each instruction is the op, the operand kind, and the operand word, little endian.
// String operands are followed by their length and bytes.
func AppendProgram(out []byte, prog []pvm.I) []byte {
	out = binary.LittleEndian.AppendUint32(out, uint32(len(prog)))
	for _, ix := range prog {
		out = append(out, byte(ix.Op), byte(ix.X.Kind()))
		out = binary.LittleEndian.AppendUint32(out, ix.X.Word())
		if ix.X.Kind() == spec.OperandString {
			s := ix.X.AsString()
			out = binary.LittleEndian.AppendUint32(out, uint32(len(s)))
			out = append(out, s...)
		}
	}
	return out
}

// Fingerprint returns the ID of a program.
// It is the Hash of the encoded instructions, operands and cell handles included.
// Equal programs have the same Fingerprint; programs which differ only in the cells they use do not.
func Fingerprint(prog []pvm.I) ID {
	return Hash(nil, AppendProgram(nil, prog))
}
