package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/quill/compiler"
	"github.com/chazu/quill/pkg/bytecode"
)

var log = commonlog.GetLogger("quill.vm")

// ---------------------------------------------------------------------------
// VM: The quill virtual machine
// ---------------------------------------------------------------------------

// VM executes bytecode chunks. A VM is not safe for concurrent use; its
// instruction pointer and stack are reset by every Run.
type VM struct {
	ip    int              // Offset of the next instruction
	stack []bytecode.Value // Operand stack

	tracer Tracer
	stdout io.Writer // Results printed by Execute/Interpret
	stderr io.Writer // Diagnostics and run-time errors
}

// Option configures a VM.
type Option func(*VM)

// WithTracer installs a per-instruction tracer.
func WithTracer(t Tracer) Option {
	return func(vm *VM) {
		vm.tracer = t
	}
}

// WithOutput sets where results are printed. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) {
		vm.stdout = w
	}
}

// WithErrorOutput sets where compile diagnostics and run-time errors are
// written. Defaults to os.Stderr.
func WithErrorOutput(w io.Writer) Option {
	return func(vm *VM) {
		vm.stderr = w
	}
}

// NewVM creates a VM.
func NewVM(opts ...Option) *VM {
	vm := &VM{
		stack:  make([]bytecode.Value, 0, 256),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// SetTracer replaces the tracer; nil disables tracing.
func (vm *VM) SetTracer(t Tracer) {
	vm.tracer = t
}

// Interpret compiles source and executes it. Compile diagnostics and
// run-time errors are written to the error output as they occur; on
// success the result is printed to the output.
func (vm *VM) Interpret(source string) (bytecode.Value, error) {
	chunk, err := compiler.Compile(source, compiler.WithDiagnostics(vm.stderr))
	if err != nil {
		return bytecode.Value{}, err
	}
	return vm.Execute(chunk)
}

// Execute runs a compiled chunk and reports the outcome the way Interpret
// does.
func (vm *VM) Execute(chunk *bytecode.Chunk) (bytecode.Value, error) {
	result, err := vm.Run(chunk)
	if err != nil {
		fmt.Fprintln(vm.stderr, err.Error())
		return bytecode.Value{}, err
	}
	fmt.Fprintln(vm.stdout, result.String())
	return result, nil
}

// Run executes chunk from its first instruction until OP_RETURN and returns
// the popped result. The chunk is only read.
func (vm *VM) Run(chunk *bytecode.Chunk) (bytecode.Value, error) {
	vm.ip = 0
	vm.stack = vm.stack[:0]
	log.Debugf("run: %d instruction(s), %d constant(s)", chunk.Len(), chunk.ConstantCount())

	for {
		if vm.ip >= len(chunk.Code) {
			return bytecode.Value{}, ErrMissingReturn.New(vm.ip)
		}
		offset := vm.ip
		ins := chunk.Code[offset]
		vm.ip++

		if vm.tracer != nil {
			vm.tracer(TraceEvent{
				Chunk:       chunk,
				Offset:      offset,
				Instruction: ins,
				Stack:       append([]bytecode.Value(nil), vm.stack...),
			})
		}

		switch ins.Op {
		case bytecode.OpReturn:
			if err := vm.require(ins.Op, 1); err != nil {
				return bytecode.Value{}, err
			}
			result := vm.pop()
			log.Debugf("run: returned %s", result)
			return result, nil

		case bytecode.OpConstant:
			value, ok := chunk.Constant(ins.Operand)
			if !ok {
				return bytecode.Value{}, ErrConstantIndex.New(ins.Operand, offset, chunk.ConstantCount())
			}
			vm.push(value)

		case bytecode.OpNegate:
			if err := vm.require(ins.Op, 1); err != nil {
				return bytecode.Value{}, err
			}
			operand := vm.pop()
			if !operand.IsNumber() {
				return bytecode.Value{}, ErrOperandNotNumber.New(ins.Op, operand.Type())
			}
			vm.push(bytecode.NumberValue(-operand.AsNumber()))

		case bytecode.OpAdd, bytecode.OpSubtract, bytecode.OpMultiply, bytecode.OpDivide:
			if err := vm.binaryOp(ins.Op); err != nil {
				return bytecode.Value{}, err
			}

		default:
			return bytecode.Value{}, ErrUnknownOpcode.New(ins.Op, offset)
		}
	}
}

// binaryOp pops the right then the left operand and pushes the result.
func (vm *VM) binaryOp(op bytecode.Opcode) error {
	if err := vm.require(op, 2); err != nil {
		return err
	}
	right := vm.pop()
	left := vm.pop()
	if !left.IsNumber() || !right.IsNumber() {
		return ErrOperandsNotNumbers.New(op, left.Type(), right.Type())
	}

	a, b := left.AsNumber(), right.AsNumber()
	var result float64
	switch op {
	case bytecode.OpAdd:
		result = a + b
	case bytecode.OpSubtract:
		result = a - b
	case bytecode.OpMultiply:
		result = a * b
	case bytecode.OpDivide:
		if b == 0 {
			return ErrDivisionByZero.New()
		}
		result = a / b
	}
	vm.push(bytecode.NumberValue(result))
	return nil
}

// require checks that the stack holds at least n values for op.
func (vm *VM) require(op bytecode.Opcode, n int) error {
	if len(vm.stack) < n {
		return ErrStackUnderflow.New(op, n, len(vm.stack))
	}
	return nil
}

func (vm *VM) push(v bytecode.Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() bytecode.Value {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

// stackDepth returns the number of values currently on the operand stack.
func (vm *VM) stackDepth() int {
	return len(vm.stack)
}
