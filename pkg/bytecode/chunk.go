package bytecode

import (
	"fmt"

	errors "gopkg.in/src-d/go-errors.v1"
)

// ErrInvalidChunk is returned by Validate when a chunk breaks one of its
// structural invariants.
var ErrInvalidChunk = errors.NewKind("bytecode: invalid chunk: %s")

// Chunk represents a compiled expression: instructions, their source lines
// and the constant pool they reference.
type Chunk struct {
	Code      []Instruction // Instruction stream
	Lines     []int         // Source line per instruction, len(Lines) == len(Code)
	Constants []Value       // Constant pool referenced by OpConstant
}

// NewChunk creates a new empty chunk.
func NewChunk() *Chunk {
	return &Chunk{
		Code:      make([]Instruction, 0, 16),
		Lines:     make([]int, 0, 16),
		Constants: make([]Value, 0, 8),
	}
}

// AddConstant appends a value to the pool and returns its index.
// Indices are never reused, so equal values get distinct slots.
func (c *Chunk) AddConstant(value Value) int {
	c.Constants = append(c.Constants, value)
	return len(c.Constants) - 1
}

// Constant returns the pool entry at index, or false if out of range.
func (c *Chunk) Constant(index int) (Value, bool) {
	if index < 0 || index >= len(c.Constants) {
		return Value{}, false
	}
	return c.Constants[index], true
}

// Write appends an instruction together with the line it came from.
// Returns the offset of the new instruction.
func (c *Chunk) Write(ins Instruction, line int) int {
	c.Code = append(c.Code, ins)
	c.Lines = append(c.Lines, line)
	return len(c.Code) - 1
}

// Emit appends an operand-less instruction.
func (c *Chunk) Emit(op Opcode, line int) int {
	return c.Write(Instruction{Op: op}, line)
}

// EmitConstant adds value to the pool and emits an OpConstant referencing it.
func (c *Chunk) EmitConstant(value Value, line int) int {
	idx := c.AddConstant(value)
	return c.Write(Instruction{Op: OpConstant, Operand: idx}, line)
}

// Len returns the number of instructions.
func (c *Chunk) Len() int {
	return len(c.Code)
}

// ConstantCount returns the number of constants in the pool.
func (c *Chunk) ConstantCount() int {
	return len(c.Constants)
}

// Line returns the source line of the instruction at offset, or 0 when the
// offset is outside the code section.
func (c *Chunk) Line(offset int) int {
	if offset < 0 || offset >= len(c.Lines) {
		return 0
	}
	return c.Lines[offset]
}

// Validate checks the structural invariants of a chunk: Lines is aligned
// with Code, every opcode is defined and every OpConstant operand indexes
// the pool. Chunks built through Write/EmitConstant by the compiler always
// validate; chunks read from disk may not.
func (c *Chunk) Validate() error {
	if len(c.Code) != len(c.Lines) {
		return ErrInvalidChunk.New(fmt.Sprintf("%d instructions but %d line entries", len(c.Code), len(c.Lines)))
	}
	for offset, ins := range c.Code {
		if !ins.Op.Valid() {
			return ErrInvalidChunk.New(fmt.Sprintf("unknown opcode 0x%02X at offset %d", byte(ins.Op), offset))
		}
		if ins.Op == OpConstant && (ins.Operand < 0 || ins.Operand >= len(c.Constants)) {
			return ErrInvalidChunk.New(fmt.Sprintf("constant index %d out of range at offset %d (pool size %d)",
				ins.Operand, offset, len(c.Constants)))
		}
	}
	return nil
}
