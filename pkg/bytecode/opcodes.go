package bytecode

import "fmt"

// Opcode identifies a VM instruction.
type Opcode byte

const (
	OpReturn   Opcode = iota // Pop the result and stop
	OpConstant               // Push Constants[operand]
	OpNegate                 // Pop one number, push its negation
	OpAdd                    // Pop b, pop a, push a + b
	OpSubtract               // Pop b, pop a, push a - b
	OpMultiply               // Pop b, pop a, push a * b
	OpDivide                 // Pop b, pop a, push a / b (b != 0)
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name       string // Mnemonic used by the disassembler
	StackPop   int    // Values popped from the stack
	StackPush  int    // Values pushed onto the stack
	HasOperand bool   // Whether the instruction carries an operand
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpReturn:   {"OP_RETURN", 1, 0, false},
	OpConstant: {"OP_CONSTANT", 0, 1, true},
	OpNegate:   {"OP_NEGATE", 1, 1, false},
	OpAdd:      {"OP_ADD", 2, 1, false},
	OpSubtract: {"OP_SUBTRACT", 2, 1, false},
	OpMultiply: {"OP_MULTIPLY", 2, 1, false},
	OpDivide:   {"OP_DIVIDE", 2, 1, false},
}

// GetOpcodeInfo returns metadata for an opcode.
// Unknown opcodes get the name "UNKNOWN(0xNN)" and ok == false.
func GetOpcodeInfo(op Opcode) (OpcodeInfo, bool) {
	if info, ok := opcodeInfoTable[op]; ok {
		return info, true
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}, false
}

// String returns the mnemonic of an opcode.
func (op Opcode) String() string {
	info, _ := GetOpcodeInfo(op)
	return info.Name
}

// Valid reports whether op is a defined opcode.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// IsBinary returns true for the four arithmetic operators.
func (op Opcode) IsBinary() bool {
	return op >= OpAdd && op <= OpDivide
}

// AllOpcodes returns every defined opcode in declaration order.
func AllOpcodes() []Opcode {
	return []Opcode{OpReturn, OpConstant, OpNegate, OpAdd, OpSubtract, OpMultiply, OpDivide}
}

// Instruction is one decoded VM instruction.
type Instruction struct {
	Op      Opcode
	Operand int // Constant-pool index for OpConstant, zero otherwise
}

func (i Instruction) String() string {
	info, _ := GetOpcodeInfo(i.Op)
	if info.HasOperand {
		return fmt.Sprintf("%s %d", info.Name, i.Operand)
	}
	return info.Name
}
