package spec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	ops := All()
	require.Len(t, ops, Count)
	seen := map[string]bool{}
	for _, p := range ops {
		name := p.MustName()
		require.False(t, strings.HasPrefix(name, "Op("), "op %d has no name", p)
		require.False(t, seen[name], "duplicate name %s", name)
		seen[name] = true
	}
	require.Equal(t, "PushFloat", PushFloat.String())
	require.Equal(t, "ReturnTos", ReturnTos.String())
	require.Equal(t, "Exit", Exit.String())
}

func TestInvalid(t *testing.T) {
	p := Op(Count)
	require.False(t, p.Valid())
	require.Equal(t, "Op(43)", p.String())
	require.Panics(t, func() { p.MustName() })
	require.Equal(t, Info{In: -1, Out: -1}, p.Info())
}

func TestInfo(t *testing.T) {
	for _, p := range All() {
		info := p.Info()
		require.GreaterOrEqual(t, info.In, 0, p.String())
		require.GreaterOrEqual(t, info.Out, 0, p.String())
	}
	require.Equal(t, OperandIntCell, StoreInt.OperandKind())
	require.Equal(t, OperandString, Dump.OperandKind())
	require.Equal(t, OperandNone, ReturnTos.OperandKind())
	require.Equal(t, []Op{StoreFloat, StoreInt, StoreBool, LoadFloat, LoadInt, LoadBool}, AllHost())
}

func TestIsJump(t *testing.T) {
	require.True(t, Call.IsJump())
	require.True(t, JumpRelIfTrue.IsJump())
	require.False(t, Dup.IsJump())
	require.False(t, Exit.IsJump())
}
