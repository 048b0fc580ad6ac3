package vm

import (
	errors "gopkg.in/src-d/go-errors.v1"
)

// Run-time errors. The first one raised aborts execution.
var (
	ErrStackUnderflow     = errors.NewKind("stack underflow: %s needs %d operand(s), stack has %d")
	ErrConstantIndex      = errors.NewKind("invalid constant index %d at offset %d (pool size %d)")
	ErrOperandNotNumber   = errors.NewKind("operand must be a number for %s, got %s")
	ErrOperandsNotNumbers = errors.NewKind("operands must be numbers for %s, got %s and %s")
	ErrDivisionByZero     = errors.NewKind("division by zero")
	ErrUnknownOpcode      = errors.NewKind("unknown opcode %s at offset %d")
	ErrMissingReturn      = errors.NewKind("execution ran past the last instruction (offset %d) without OP_RETURN")
)

// IsRuntimeError reports whether err was raised while executing bytecode.
func IsRuntimeError(err error) bool {
	for _, kind := range []*errors.Kind{
		ErrStackUnderflow,
		ErrConstantIndex,
		ErrOperandNotNumber,
		ErrOperandsNotNumbers,
		ErrDivisionByZero,
		ErrUnknownOpcode,
		ErrMissingReturn,
	} {
		if kind.Is(err) {
			return true
		}
	}
	return false
}
