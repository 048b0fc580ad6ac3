// Package vm implements the quill virtual machine.
//
// This package contains:
//   - A stack-based interpreter for bytecode.Chunk
//   - Run-time error kinds (stack underflow, bad operands, division by zero, ...)
//   - An optional per-instruction Tracer
//   - Interpret, which compiles source text and executes the result
package vm
