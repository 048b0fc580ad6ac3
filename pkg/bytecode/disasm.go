package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the chunk, one line per
// instruction:
//
//	0000    1 OP_CONSTANT         0 '1'
//	0001    | OP_NEGATE
//
// The line column shows "|" when the line is unchanged from the previous
// instruction.
func (c *Chunk) Disassemble() string {
	return c.DisassembleWithName("")
}

// DisassembleWithName returns the listing with a "== name ==" header.
func (c *Chunk) DisassembleWithName(name string) string {
	var sb strings.Builder
	if name != "" {
		sb.WriteString(fmt.Sprintf("== %s ==\n", name))
	}
	for offset := range c.Code {
		sb.WriteString(c.DisassembleInstruction(offset))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// DisassembleInstruction formats the instruction at offset without a
// trailing newline.
func (c *Chunk) DisassembleInstruction(offset int) string {
	if offset < 0 || offset >= len(c.Code) {
		return fmt.Sprintf("%04d <end of code>", offset)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%04d ", offset))
	if offset > 0 && c.Line(offset) == c.Line(offset-1) {
		sb.WriteString("   | ")
	} else {
		sb.WriteString(fmt.Sprintf("%4d ", c.Line(offset)))
	}

	ins := c.Code[offset]
	switch ins.Op {
	case OpConstant:
		constVal := "<invalid>"
		if v, ok := c.Constant(ins.Operand); ok {
			constVal = v.String()
		}
		sb.WriteString(fmt.Sprintf("%-16s %4d '%s'", ins.Op, ins.Operand, constVal))
	default:
		sb.WriteString(ins.Op.String())
	}
	return sb.String()
}
