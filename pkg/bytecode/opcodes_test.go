package bytecode

import (
	"strings"
	"testing"
)

func TestAllOpcodesHaveMetadata(t *testing.T) {
	for _, op := range AllOpcodes() {
		info, ok := GetOpcodeInfo(op)
		if !ok || info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("Opcode 0x%02X has no metadata", byte(op))
		}
	}
	if len(AllOpcodes()) != len(opcodeInfoTable) {
		t.Errorf("AllOpcodes() has %d entries, info table has %d", len(AllOpcodes()), len(opcodeInfoTable))
	}
}

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{OpReturn, "OP_RETURN"},
		{OpConstant, "OP_CONSTANT"},
		{OpNegate, "OP_NEGATE"},
		{OpAdd, "OP_ADD"},
		{OpSubtract, "OP_SUBTRACT"},
		{OpMultiply, "OP_MULTIPLY"},
		{OpDivide, "OP_DIVIDE"},
	}

	for _, tt := range tests {
		got := tt.op.String()
		if got != tt.want {
			t.Errorf("Opcode(0x%02X).String() = %q, want %q", byte(tt.op), got, tt.want)
		}
	}
}

func TestUnknownOpcode(t *testing.T) {
	op := Opcode(0xEE)
	if got := op.String(); !strings.HasPrefix(got, "UNKNOWN") {
		t.Errorf("Unknown opcode should return UNKNOWN, got %q", got)
	}
	if op.Valid() {
		t.Error("Opcode(0xEE).Valid() = true")
	}
}

func TestOpcodeIsBinary(t *testing.T) {
	binary := map[Opcode]bool{OpAdd: true, OpSubtract: true, OpMultiply: true, OpDivide: true}
	for _, op := range AllOpcodes() {
		if op.IsBinary() != binary[op] {
			t.Errorf("%s.IsBinary() = %v", op, op.IsBinary())
		}
	}
}

func TestInstructionString(t *testing.T) {
	if got := (Instruction{Op: OpConstant, Operand: 3}).String(); got != "OP_CONSTANT 3" {
		t.Errorf("got %q", got)
	}
	if got := (Instruction{Op: OpAdd}).String(); got != "OP_ADD" {
		t.Errorf("got %q", got)
	}
}
