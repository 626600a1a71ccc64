package pvm

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"go.brendoncarroll.net/exp/slices2"
	"go.uber.org/zap"

	"pugvm.org/pugvm/internal/ringbuf"
	"pugvm.org/pugvm/spec"
)

// Tracer observes a VM as it executes.
//
// The stack passed to a Tracer is the VM's own; it is only valid for the duration of the call.
type Tracer interface {
	// TraceStep is called immediately before the instruction at pc is executed.
	TraceStep(pc int32, op spec.Op, stack []Word)
	// TraceExit is called once, on the step which halts the VM.
	TraceExit(stack []Word)
}

// FormatStep renders a step the same way WriterTracer does, without the newline.
// Stack words are rendered as integers, regardless of what they hold.
func FormatStep(pc int32, op spec.Op, stack []Word) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%3d]%16s : ", pc, op.MustName())
	writeStack(&sb, stack)
	return sb.String()
}

// FormatExit renders the final state of a VM.
func FormatExit(stack []Word) string {
	var sb strings.Builder
	sb.WriteString("           exit state : ")
	writeStack(&sb, stack)
	return sb.String()
}

func writeStack(sb *strings.Builder, stack []Word) {
	for _, w := range stack {
		fmt.Fprintf(sb, "%d | ", WordInt(w))
	}
}

// WriterTracer writes one line per step to W.
// Write errors are ignored.
type WriterTracer struct {
	W io.Writer
}

func NewWriterTracer(w io.Writer) *WriterTracer {
	return &WriterTracer{W: w}
}

func (t *WriterTracer) TraceStep(pc int32, op spec.Op, stack []Word) {
	io.WriteString(t.W, FormatStep(pc, op, stack)+"\n")
}

func (t *WriterTracer) TraceExit(stack []Word) {
	io.WriteString(t.W, FormatExit(stack)+"\n")
}

// ZapTracer logs every step at debug level.
type ZapTracer struct {
	log *zap.Logger
}

func NewZapTracer(log *zap.Logger) *ZapTracer {
	return &ZapTracer{log: log}
}

func (t *ZapTracer) TraceStep(pc int32, op spec.Op, stack []Word) {
	if ce := t.log.Check(zap.DebugLevel, "step"); ce != nil {
		ce.Write(zap.Int32("pc", pc), zap.String("op", op.MustName()), zap.Int32s("stack", stackInts(stack)))
	}
}

func (t *ZapTracer) TraceExit(stack []Word) {
	if ce := t.log.Check(zap.DebugLevel, "exit"); ce != nil {
		ce.Write(zap.Int32s("stack", stackInts(stack)))
	}
}

func stackInts(stack []Word) []int32 {
	return slices2.Map(stack, WordInt)
}

// TraceEntry is a step recorded by a RingTracer
type TraceEntry struct {
	PC    int32
	Op    spec.Op
	Stack []Word
	// Exit is true for the final entry of a halted VM. PC and Op are not set.
	Exit bool
}

func (e TraceEntry) String() string {
	if e.Exit {
		return FormatExit(e.Stack)
	}
	return FormatStep(e.PC, e.Op, e.Stack)
}

// RingTracer remembers the most recent steps.
// It is useful for explaining how a VM arrived at a failure, without keeping the whole trace.
type RingTracer struct {
	rb ringbuf.RingBuf[TraceEntry]
}

// NewRingTracer creates a RingTracer which keeps the last n entries.
func NewRingTracer(n int) *RingTracer {
	return &RingTracer{rb: ringbuf.New[TraceEntry](n)}
}

func (t *RingTracer) TraceStep(pc int32, op spec.Op, stack []Word) {
	t.rb.PushBack(TraceEntry{PC: pc, Op: op, Stack: slices.Clone(stack)})
}

func (t *RingTracer) TraceExit(stack []Word) {
	t.rb.PushBack(TraceEntry{Stack: slices.Clone(stack), Exit: true})
}

// Entries returns the remembered entries, oldest first.
func (t *RingTracer) Entries() []TraceEntry {
	return t.rb.AppendTo(nil)
}

// Dropped returns the number of entries which were forgotten.
func (t *RingTracer) Dropped() int {
	return t.rb.Dropped()
}

// WriteTo writes the remembered entries to w, one per line.
func (t *RingTracer) WriteTo(w io.Writer) (int64, error) {
	var total int64
	if d := t.Dropped(); d > 0 {
		n, err := fmt.Fprintf(w, "... %d earlier steps\n", d)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	for _, e := range t.Entries() {
		n, err := io.WriteString(w, e.String()+"\n")
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// MultiTracer passes every event to each of its Tracers in order.
type MultiTracer []Tracer

func (ts MultiTracer) TraceStep(pc int32, op spec.Op, stack []Word) {
	for _, t := range ts {
		t.TraceStep(pc, op, stack)
	}
}

func (ts MultiTracer) TraceExit(stack []Word) {
	for _, t := range ts {
		t.TraceExit(stack)
	}
}
