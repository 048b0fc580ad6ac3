package vm

import (
	"fmt"
	"io"
	"strings"

	"github.com/chazu/quill/pkg/bytecode"
)

// TraceEvent describes the VM state just before an instruction executes.
type TraceEvent struct {
	Chunk       *bytecode.Chunk
	Offset      int
	Instruction bytecode.Instruction
	Stack       []bytecode.Value // snapshot, bottom first
}

// Tracer is called before every instruction when installed with WithTracer.
type Tracer func(TraceEvent)

// NewTextTracer returns a Tracer that prints the operand stack followed by
// the disassembled instruction:
//
//	          [ 1 ][ 2 ]
//	0002    | OP_ADD
func NewTextTracer(w io.Writer) Tracer {
	return func(ev TraceEvent) {
		var sb strings.Builder
		sb.WriteString("          ")
		for _, v := range ev.Stack {
			sb.WriteString(fmt.Sprintf("[ %s ]", v))
		}
		sb.WriteByte('\n')
		sb.WriteString(ev.Chunk.DisassembleInstruction(ev.Offset))
		sb.WriteByte('\n')
		io.WriteString(w, sb.String())
	}
}
