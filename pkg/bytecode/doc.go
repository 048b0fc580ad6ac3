// Package bytecode defines the compiled form of a quill expression and the
// tools that inspect it.
//
// A Chunk is the unit produced by the compiler and consumed by the VM:
//
//   - Code: an append-only instruction stream. Each Instruction is an Opcode
//     plus an optional operand (the constant-pool index for OpConstant).
//   - Lines: the source line of every instruction, index-aligned with Code.
//   - Constants: the constant pool. Indices are stable once assigned; the
//     pool never shrinks or reorders.
//
// Chunks can be rendered with Disassemble for debugging, and serialized to a
// compact CBOR envelope ("QLBC") with Marshal so that a program can be
// compiled once and executed later. Unmarshal verifies the envelope digest
// and validates the chunk before handing it back.
package bytecode
