package vm

import (
	"testing"

	"github.com/chazu/quill/pkg/bytecode"
)

// chunkWith builds a chunk from instructions, all on line 1.
func chunkWith(constants []float64, code ...bytecode.Instruction) *bytecode.Chunk {
	c := bytecode.NewChunk()
	for _, n := range constants {
		c.AddConstant(bytecode.NumberValue(n))
	}
	for _, ins := range code {
		c.Write(ins, 1)
	}
	return c
}

func op(o bytecode.Opcode) bytecode.Instruction {
	return bytecode.Instruction{Op: o}
}

func constant(i int) bytecode.Instruction {
	return bytecode.Instruction{Op: bytecode.OpConstant, Operand: i}
}

// ============ Arithmetic ============

func TestVMArithmetic(t *testing.T) {
	tests := []struct {
		name   string
		consts []float64
		code   []bytecode.Instruction
		want   float64
	}{
		{"constant", []float64{42}, []bytecode.Instruction{constant(0), op(bytecode.OpReturn)}, 42},
		{"add", []float64{1, 2}, []bytecode.Instruction{constant(0), constant(1), op(bytecode.OpAdd), op(bytecode.OpReturn)}, 3},
		{"subtract order", []float64{10, 4}, []bytecode.Instruction{constant(0), constant(1), op(bytecode.OpSubtract), op(bytecode.OpReturn)}, 6},
		{"multiply", []float64{2.5, 4}, []bytecode.Instruction{constant(0), constant(1), op(bytecode.OpMultiply), op(bytecode.OpReturn)}, 10},
		{"divide order", []float64{1, 4}, []bytecode.Instruction{constant(0), constant(1), op(bytecode.OpDivide), op(bytecode.OpReturn)}, 0.25},
		{"negate", []float64{3}, []bytecode.Instruction{constant(0), op(bytecode.OpNegate), op(bytecode.OpReturn)}, -3},
		{"constant reused", []float64{3}, []bytecode.Instruction{constant(0), constant(0), op(bytecode.OpMultiply), op(bytecode.OpReturn)}, 9},
	}

	for _, tt := range tests {
		vm := NewVM()
		got, err := vm.Run(chunkWith(tt.consts, tt.code...))
		if err != nil {
			t.Errorf("%s: Run() error: %v", tt.name, err)
			continue
		}
		if got.AsNumber() != tt.want {
			t.Errorf("%s: Run() = %v, want %v", tt.name, got, tt.want)
		}
		if vm.stackDepth() != 0 {
			t.Errorf("%s: stack depth after return = %d, want 0", tt.name, vm.stackDepth())
		}
	}
}

// ============ Run-time errors ============

func TestVMRuntimeErrors(t *testing.T) {
	tests := []struct {
		name   string
		consts []float64
		code   []bytecode.Instruction
		is     func(error) bool
	}{
		{"return on empty stack", nil, []bytecode.Instruction{op(bytecode.OpReturn)}, ErrStackUnderflow.Is},
		{"negate on empty stack", nil, []bytecode.Instruction{op(bytecode.OpNegate), op(bytecode.OpReturn)}, ErrStackUnderflow.Is},
		{"add with one operand", []float64{1}, []bytecode.Instruction{constant(0), op(bytecode.OpAdd), op(bytecode.OpReturn)}, ErrStackUnderflow.Is},
		{"constant out of range", []float64{1}, []bytecode.Instruction{constant(1), op(bytecode.OpReturn)}, ErrConstantIndex.Is},
		{"negative constant index", []float64{1}, []bytecode.Instruction{constant(-1), op(bytecode.OpReturn)}, ErrConstantIndex.Is},
		{"division by zero", []float64{1, 0}, []bytecode.Instruction{constant(0), constant(1), op(bytecode.OpDivide), op(bytecode.OpReturn)}, ErrDivisionByZero.Is},
		{"division by negative zero", []float64{1, 0}, []bytecode.Instruction{constant(0), constant(1), op(bytecode.OpNegate), op(bytecode.OpDivide), op(bytecode.OpReturn)}, ErrDivisionByZero.Is},
		{"unknown opcode", nil, []bytecode.Instruction{op(bytecode.Opcode(0x7F))}, ErrUnknownOpcode.Is},
		{"missing return", []float64{1}, []bytecode.Instruction{constant(0)}, ErrMissingReturn.Is},
		{"empty chunk", nil, nil, ErrMissingReturn.Is},
	}

	for _, tt := range tests {
		_, err := NewVM().Run(chunkWith(tt.consts, tt.code...))
		if err == nil {
			t.Errorf("%s: Run() succeeded, want error", tt.name)
			continue
		}
		if !tt.is(err) {
			t.Errorf("%s: unexpected error kind: %v", tt.name, err)
		}
		if !IsRuntimeError(err) {
			t.Errorf("%s: IsRuntimeError(%v) = false", tt.name, err)
		}
	}
}

func TestVMRuntimeErrorMessagesAreDistinct(t *testing.T) {
	errs := []error{
		ErrStackUnderflow.New(bytecode.OpAdd, 2, 1),
		ErrConstantIndex.New(3, 0, 1),
		ErrOperandNotNumber.New(bytecode.OpNegate, "string"),
		ErrOperandsNotNumbers.New(bytecode.OpAdd, "number", "string"),
		ErrDivisionByZero.New(),
		ErrUnknownOpcode.New(bytecode.Opcode(0x7F), 0),
		ErrMissingReturn.New(1),
	}
	seen := map[string]bool{}
	for _, err := range errs {
		if seen[err.Error()] {
			t.Errorf("duplicate message %q", err.Error())
		}
		seen[err.Error()] = true
	}
	if got := ErrDivisionByZero.New().Error(); got != "division by zero" {
		t.Errorf("division by zero message = %q", got)
	}
}

func TestVMResetsBetweenRuns(t *testing.T) {
	vm := NewVM()
	// Leaves an extra value on the stack before failing.
	bad := chunkWith([]float64{1, 0}, constant(0), constant(0), constant(1), op(bytecode.OpDivide))
	if _, err := vm.Run(bad); err == nil {
		t.Fatal("expected error")
	}

	good := chunkWith([]float64{5}, constant(0), op(bytecode.OpReturn))
	got, err := vm.Run(good)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got.AsNumber() != 5 || vm.stackDepth() != 0 {
		t.Errorf("Run() = %v with depth %d, want 5 with empty stack", got, vm.stackDepth())
	}
}

func TestVMDoesNotModifyChunk(t *testing.T) {
	c := chunkWith([]float64{2, 3}, constant(0), constant(1), op(bytecode.OpMultiply), op(bytecode.OpReturn))
	before := c.Disassemble()

	for i := 0; i < 2; i++ {
		if _, err := NewVM().Run(c); err != nil {
			t.Fatalf("Run() error: %v", err)
		}
	}
	if after := c.Disassemble(); after != before {
		t.Errorf("chunk changed by execution:\n%s\n%s", before, after)
	}
}
