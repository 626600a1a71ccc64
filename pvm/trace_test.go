package pvm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"pugvm.org/pugvm/spec"
)

func TestFormatStep(t *testing.T) {
	require.Equal(t, "[  0]         PushInt : ", FormatStep(0, spec.PushInt, nil))
	require.Equal(t, "[ 12]   JumpRelIfTrue : 1 | -2 | ", FormatStep(12, spec.JumpRelIfTrue, ints(1, -2)))
	require.Equal(t, "[1234]            Dump : 7 | ", FormatStep(1234, spec.Dump, ints(7)))
	require.Equal(t, "           exit state : 120 | ", FormatExit(ints(120)))
	require.Equal(t, "           exit state : ", FormatExit(nil))
}

func TestFormatInvalidOp(t *testing.T) {
	require.Panics(t, func() {
		FormatStep(0, spec.Op(spec.Count), nil)
	})
}

func TestWriterTracer(t *testing.T) {
	buf := &bytes.Buffer{}
	vm, err := New([]I{pushI(2), pushI(3), Op0(spec.AddII)}, nil, Config{
		Output: &bytes.Buffer{},
		Tracer: NewWriterTracer(buf),
	})
	require.NoError(t, err)
	run(t, vm)
	require.NoError(t, vm.Err())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Equal(t, []string{
		"[  0]         PushInt : ",
		"[  1]         PushInt : 2 | ",
		"[  2]           AddII : 2 | 3 | ",
		"           exit state : 5 | ",
	}, lines)
}

func TestExitTraced(t *testing.T) {
	type testCase struct {
		Name string
		Prog []I
	}
	tcs := []testCase{
		{Name: "end", Prog: []I{pushI(1)}},
		{Name: "exit", Prog: []I{pushI(1), Op0(spec.Exit), pushI(2)}},
		{Name: "jump out", Prog: []I{pushI(1), Ix(spec.Jump, Int(-5))}},
		{Name: "fault", Prog: []I{pushI(1), Ix(spec.LoadStAbs, Int(3))}},
	}
	for _, tc := range tcs {
		t.Run(tc.Name, func(t *testing.T) {
			rt := NewRingTracer(16)
			vm, err := New(tc.Prog, nil, Config{Output: &bytes.Buffer{}, Tracer: rt})
			require.NoError(t, err)
			run(t, vm)
			require.True(t, vm.Halted())

			es := rt.Entries()
			var exits int
			for _, e := range es {
				if e.Exit {
					exits++
				}
			}
			require.Equal(t, 1, exits)
			require.True(t, es[len(es)-1].Exit)
		})
	}
}

func TestZapTracer(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	vm, err := New([]I{pushI(-1), Op0(spec.Dup)}, nil, Config{
		Output: &bytes.Buffer{},
		Tracer: NewZapTracer(zap.New(core)),
	})
	require.NoError(t, err)
	run(t, vm)

	entries := logs.All()
	require.Len(t, entries, 3)
	require.Equal(t, "step", entries[0].Message)
	require.Equal(t, "PushInt", entries[0].ContextMap()["op"])
	require.Equal(t, "step", entries[1].Message)
	require.Equal(t, "Dup", entries[1].ContextMap()["op"])
	require.EqualValues(t, 1, entries[1].ContextMap()["pc"])
	require.Equal(t, "exit", entries[2].Message)
}

func TestZapTracerLevel(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	vm, err := New([]I{pushI(1)}, nil, Config{
		Output: &bytes.Buffer{},
		Tracer: NewZapTracer(zap.New(core)),
	})
	require.NoError(t, err)
	run(t, vm)
	require.Zero(t, logs.Len())
}

func TestRingTracer(t *testing.T) {
	rt := NewRingTracer(3)
	prog := []I{pushI(1), pushI(2), pushI(3), pushI(4), pushI(5)}
	vm, err := New(prog, nil, Config{Output: &bytes.Buffer{}, Tracer: rt})
	require.NoError(t, err)
	run(t, vm)

	es := rt.Entries()
	require.Len(t, es, 3)
	require.Equal(t, 3, rt.Dropped())
	require.Equal(t, TraceEntry{PC: 3, Op: spec.PushInt, Stack: ints(1, 2, 3)}, es[0])
	require.Equal(t, TraceEntry{PC: 4, Op: spec.PushInt, Stack: ints(1, 2, 3, 4)}, es[1])
	require.Equal(t, TraceEntry{Stack: ints(1, 2, 3, 4, 5), Exit: true}, es[2])

	buf := &bytes.Buffer{}
	n, err := rt.WriteTo(buf)
	require.NoError(t, err)
	require.EqualValues(t, buf.Len(), n)
	require.Equal(t, "... 3 earlier steps\n"+
		"[  3]         PushInt : 1 | 2 | 3 | \n"+
		"[  4]         PushInt : 1 | 2 | 3 | 4 | \n"+
		"           exit state : 1 | 2 | 3 | 4 | 5 | \n", buf.String())
}

func TestMultiTracer(t *testing.T) {
	var a, b bytes.Buffer
	rt := NewRingTracer(8)
	vm, err := New([]I{pushI(1), Op0(spec.Pop)}, nil, Config{
		Output: &bytes.Buffer{},
		Tracer: MultiTracer{NewWriterTracer(&a), NewWriterTracer(&b), rt},
	})
	require.NoError(t, err)
	run(t, vm)
	require.NotEmpty(t, a.String())
	require.Equal(t, a.String(), b.String())
	require.Len(t, rt.Entries(), 3)
}
