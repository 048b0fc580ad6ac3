package compiler

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/chazu/quill/pkg/bytecode"
)

func opcodes(c *bytecode.Chunk) []bytecode.Opcode {
	ops := make([]bytecode.Opcode, len(c.Code))
	for i, ins := range c.Code {
		ops[i] = ins.Op
	}
	return ops
}

func constants(c *bytecode.Chunk) []float64 {
	var out []float64
	for _, ins := range c.Code {
		if ins.Op == bytecode.OpConstant {
			v, _ := c.Constant(ins.Operand)
			out = append(out, v.AsNumber())
		}
	}
	return out
}

func equalOps(a, b []bytecode.Opcode) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCompileEmitsPostOrder(t *testing.T) {
	const (
		C   = bytecode.OpConstant
		NEG = bytecode.OpNegate
		ADD = bytecode.OpAdd
		SUB = bytecode.OpSubtract
		MUL = bytecode.OpMultiply
		DIV = bytecode.OpDivide
		RET = bytecode.OpReturn
	)

	tests := []struct {
		source string
		ops    []bytecode.Opcode
		consts []float64
	}{
		{"1", []bytecode.Opcode{C, RET}, []float64{1}},
		{"1 + 2 * 3", []bytecode.Opcode{C, C, C, MUL, ADD, RET}, []float64{1, 2, 3}},
		{"(1 + 2) * 3", []bytecode.Opcode{C, C, ADD, C, MUL, RET}, []float64{1, 2, 3}},
		{"8 / 4 / 2", []bytecode.Opcode{C, C, DIV, C, DIV, RET}, []float64{8, 4, 2}},
		{"1 - 2 - 3", []bytecode.Opcode{C, C, SUB, C, SUB, RET}, []float64{1, 2, 3}},
		{"-2 * 3", []bytecode.Opcode{C, NEG, C, MUL, RET}, []float64{2, 3}},
		{"- -2", []bytecode.Opcode{C, NEG, NEG, RET}, []float64{2}},
		{"((4))", []bytecode.Opcode{C, RET}, []float64{4}},
		{"2.5 * -(1 - 3)", []bytecode.Opcode{C, C, C, SUB, NEG, MUL, RET}, []float64{2.5, 1, 3}},
	}

	for _, tc := range tests {
		chunk, err := Compile(tc.source)
		if err != nil {
			t.Errorf("Compile(%q) error: %v", tc.source, err)
			continue
		}
		if got := opcodes(chunk); !equalOps(got, tc.ops) {
			t.Errorf("Compile(%q) ops = %v, want %v", tc.source, got, tc.ops)
		}
		got := constants(chunk)
		if len(got) != len(tc.consts) {
			t.Errorf("Compile(%q) constants = %v, want %v", tc.source, got, tc.consts)
			continue
		}
		for i := range got {
			if got[i] != tc.consts[i] {
				t.Errorf("Compile(%q) constant[%d] = %v, want %v", tc.source, i, got[i], tc.consts[i])
			}
		}
		if err := chunk.Validate(); err != nil {
			t.Errorf("Compile(%q) produced invalid chunk: %v", tc.source, err)
		}
	}
}

func TestCompileTracksLines(t *testing.T) {
	chunk, err := Compile("1 +\n2 *\n\n3")
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if len(chunk.Lines) != len(chunk.Code) {
		t.Fatalf("lines %d != code %d", len(chunk.Lines), len(chunk.Code))
	}
	// 1, 2, 3, *, +, return
	want := []int{1, 2, 4, 2, 1, 4}
	for i, line := range want {
		if chunk.Line(i) != line {
			t.Errorf("line[%d] = %d, want %d (%s)", i, chunk.Line(i), line, chunk.Code[i])
		}
	}
}

func TestCompileDiagnostics(t *testing.T) {
	tests := []struct {
		source string
		want   []string
	}{
		{"1 +", []string{"[line 1] Error at end: Expect expression."}},
		{"", []string{"[line 1] Error at end: Expect expression."}},
		{"(1", []string{"[line 1] Error at end: Expect ')' after expression."}},
		{"1 2", []string{"[line 1] Error at '2': Expect end of expression."}},
		{")", []string{"[line 1] Error at ')': Expect expression."}},
		{"1 +\n\n", []string{"[line 3] Error at end: Expect expression."}},
		{`"abc`, []string{
			"[line 1] Error: Unterminated string.",
			"[line 1] Error at end: Expect expression.",
		}},
		{"1 + @", []string{
			"[line 1] Error: Unexpected character.",
			"[line 1] Error at end: Expect expression.",
		}},
		{"(1 + ) 2", []string{
			"[line 1] Error at ')': Expect expression.",
			"[line 1] Error at '2': Expect ')' after expression.",
			"[line 1] Error at '2': Expect end of expression.",
		}},
		{`"str"`, []string{"[line 1] Error at 'str': Expect expression."}},
	}

	for _, tc := range tests {
		chunk, err := Compile(tc.source)
		if err == nil {
			t.Errorf("Compile(%q) succeeded, want error", tc.source)
			continue
		}
		if chunk != nil {
			t.Errorf("Compile(%q) returned a chunk alongside an error", tc.source)
		}
		if !IsCompileError(err) {
			t.Errorf("Compile(%q) error %T is not a compile error", tc.source, err)
		}
		diags := Diagnostics(err)
		if len(diags) != len(tc.want) {
			t.Errorf("Compile(%q) diagnostics = %v, want %v", tc.source, diags, tc.want)
			continue
		}
		for i, d := range diags {
			if d.String() != tc.want[i] {
				t.Errorf("Compile(%q) diagnostic[%d] = %q, want %q", tc.source, i, d.String(), tc.want[i])
			}
		}
	}
}

func TestCompileInternalErrors(t *testing.T) {
	tests := []struct {
		source string
		where  string
		msg    string
	}{
		{"!1", "at '!'", "unary operator '!' is not implemented"},
		{"1 == 2", "at '=='", "unexpected binary operator '=='"},
		{"1 < 2", "at '<'", "unexpected binary operator '<'"},
		{"1 and 2", "at 'and'", "and expressions are not supported"},
		{"1 or 2", "at 'or'", "or expressions are not supported"},
		{"1 = 2", "at '='", "assignment expressions are not supported"},
		{"1 (2)", "at '('", "call expressions are not supported"},
	}

	for _, tc := range tests {
		_, err := Compile(tc.source)
		if err == nil {
			t.Errorf("Compile(%q) succeeded, want internal error", tc.source)
			continue
		}
		diags := Diagnostics(err)
		if len(diags) == 0 {
			t.Errorf("Compile(%q): no diagnostics", tc.source)
			continue
		}
		d := diags[0]
		if d.Where != tc.where || !strings.Contains(d.Message, tc.msg) || !strings.HasPrefix(d.Message, "Internal error") {
			t.Errorf("Compile(%q) first diagnostic = %q, want %s containing %q", tc.source, d, tc.where, tc.msg)
		}
	}
}

func TestCompileWritesDiagnosticsImmediately(t *testing.T) {
	var buf bytes.Buffer
	_, err := Compile("(1 + ) 2", WithDiagnostics(&buf))
	if err == nil {
		t.Fatal("expected error")
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("diagnostic output = %q", buf.String())
	}
	if err.Error() != strings.TrimRight(buf.String(), "\n") {
		t.Errorf("Error() = %q, want it to match written diagnostics %q", err.Error(), buf.String())
	}
}

func TestCompileIndependentCompilations(t *testing.T) {
	if _, err := Compile("1 +"); err == nil {
		t.Fatal("expected error")
	}
	// A failed compilation leaves nothing behind for the next one.
	if _, err := Compile("1 + 1"); err != nil {
		t.Errorf("second compilation failed: %v", err)
	}
}

func TestNumberRuleFallsBackToZero(t *testing.T) {
	c := newCompiler("")
	c.previous = Token{Type: TokenNumber, Lexeme: "1..2", Line: 5}
	c.number()

	if !c.hadError {
		t.Fatal("number() with a bad lexeme did not record an error")
	}
	if got := c.diagnostics[0].String(); got != "[line 5] Error at '1..2': Failed to parse number: 1..2" {
		t.Errorf("diagnostic = %q", got)
	}
	if v, ok := c.chunk.Constant(0); !ok || v.AsNumber() != 0 {
		t.Errorf("substituted constant = %v, %v; want 0", v, ok)
	}
}

func TestNumberRuleOverflowIsInfinity(t *testing.T) {
	source := "1" + strings.Repeat("0", 400)
	var diag bytes.Buffer

	chunk, err := Compile(source, WithDiagnostics(&diag))
	if err != nil {
		t.Fatalf("Compile(1e400 literal) error: %v", err)
	}
	if diag.Len() != 0 {
		t.Errorf("diagnostics = %q, want none", diag.String())
	}
	v, ok := chunk.Constant(0)
	if !ok || !math.IsInf(v.AsNumber(), 1) {
		t.Errorf("constant = %v, %v; want +Inf", v, ok)
	}
	if got := v.String(); got != "+Inf" {
		t.Errorf("constant prints as %q, want +Inf", got)
	}
}

func TestSynchronize(t *testing.T) {
	tests := []struct {
		source string
		want   TokenType
		lexeme string
	}{
		{"a b ; c", TokenIdentifier, "c"},
		{"a b var x", TokenVar, "var"},
		{"a + return", TokenReturn, "return"},
		{"a b c", TokenEOF, ""},
	}

	for _, tc := range tests {
		c := newCompiler(tc.source)
		c.advance()
		c.synchronize()
		if c.current.Type != tc.want || c.current.Lexeme != tc.lexeme {
			t.Errorf("synchronize(%q) stopped at %v, want %v %q", tc.source, c.current, tc.want, tc.lexeme)
		}
	}
}
