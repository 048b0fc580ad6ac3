package compiler

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/tliron/commonlog"

	"github.com/chazu/quill/pkg/bytecode"
)

var log = commonlog.GetLogger("quill.compiler")

// ---------------------------------------------------------------------------
// Compiler: single-pass Pratt parser emitting bytecode directly
// ---------------------------------------------------------------------------

// Option configures a compilation.
type Option func(*compiler)

// WithDiagnostics writes every diagnostic to w as soon as it is recorded,
// one per line.
func WithDiagnostics(w io.Writer) Option {
	return func(c *compiler) {
		c.diagOut = w
	}
}

// compiler holds the state of one compilation. Nothing in it is shared
// between compilations.
type compiler struct {
	lexer    *Lexer
	current  Token
	previous Token
	chunk    *bytecode.Chunk

	hadError    bool
	diagnostics []Diagnostic
	diagOut     io.Writer
}

// Compile compiles a single expression into a chunk ending in OpReturn.
// If any diagnostic is recorded the chunk is discarded and an *Error
// listing every diagnostic is returned.
func Compile(source string, opts ...Option) (*bytecode.Chunk, error) {
	c := newCompiler(source, opts...)

	c.advance()
	c.expression()
	c.consume(TokenEOF, "Expect end of expression.")
	c.emitReturn()

	if c.hadError {
		log.Debugf("compile failed with %d diagnostic(s)", len(c.diagnostics))
		return nil, &Error{Diagnostics: c.diagnostics}
	}
	log.Debugf("compiled %d instruction(s), %d constant(s)", c.chunk.Len(), c.chunk.ConstantCount())
	return c.chunk, nil
}

func newCompiler(source string, opts ...Option) *compiler {
	c := &compiler{
		lexer: NewLexer(source),
		chunk: bytecode.NewChunk(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ---------------------------------------------------------------------------
// Precedence climbing
// ---------------------------------------------------------------------------

func (c *compiler) expression() {
	c.parsePrecedence(PrecAssignment)
}

// parsePrecedence parses an expression whose operators bind at least as
// tightly as prec.
func (c *compiler) parsePrecedence(prec Precedence) {
	c.advance()
	prefix := getRule(c.previous.Type).prefix
	if prefix == ruleNone {
		c.error("Expect expression.")
		return
	}
	c.apply(prefix)

	for prec <= getRule(c.current.Type).precedence {
		infix := getRule(c.current.Type).infix
		if infix == ruleNone {
			break
		}
		c.advance()
		c.apply(infix)
	}
}

// apply runs the parse action for kind with c.previous as its token.
func (c *compiler) apply(kind ruleKind) {
	switch kind {
	case ruleNumber:
		c.number()
	case ruleGrouping:
		c.grouping()
	case ruleUnary:
		c.unary()
	case ruleBinary:
		c.binary()
	case ruleAnd, ruleOr, ruleAssign, ruleCall:
		c.error(fmt.Sprintf("Internal error: %s expressions are not supported.", kind))
	default:
		c.error(fmt.Sprintf("Internal error: no parse action for rule %q.", kind))
	}
}

func (c *compiler) number() {
	value, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	// Literals too large for float64 become ±Inf, which ParseFloat returns
	// alongside ErrRange.
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		c.error(fmt.Sprintf("Failed to parse number: %s", c.previous.Lexeme))
		value = 0
	}
	c.emitConstant(bytecode.NumberValue(value))
}

func (c *compiler) grouping() {
	c.expression()
	c.consume(TokenRightParen, "Expect ')' after expression.")
}

func (c *compiler) unary() {
	operator := c.previous

	c.parsePrecedence(PrecUnary)

	switch operator.Type {
	case TokenMinus:
		c.emitAt(bytecode.OpNegate, operator.Line)
	case TokenBang:
		c.errorAt(operator, "Internal error: unary operator '!' is not implemented.")
	default:
		c.errorAt(operator, fmt.Sprintf("Internal error: unexpected unary operator '%s'.", operator.Lexeme))
	}
}

func (c *compiler) binary() {
	operator := c.previous
	rule := getRule(operator.Type)

	c.parsePrecedence(rule.precedence.next())

	switch operator.Type {
	case TokenPlus:
		c.emitAt(bytecode.OpAdd, operator.Line)
	case TokenMinus:
		c.emitAt(bytecode.OpSubtract, operator.Line)
	case TokenStar:
		c.emitAt(bytecode.OpMultiply, operator.Line)
	case TokenSlash:
		c.emitAt(bytecode.OpDivide, operator.Line)
	default:
		c.errorAt(operator, fmt.Sprintf("Internal error: unexpected binary operator '%s'.", operator.Lexeme))
	}
}

// ---------------------------------------------------------------------------
// Token stream
// ---------------------------------------------------------------------------

// advance moves to the next non-error token, reporting every lexer error
// it skips.
func (c *compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.lexer.NextToken()
		if c.current.Type != TokenError {
			return
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *compiler) consume(t TokenType, message string) {
	if c.check(t) {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

func (c *compiler) check(t TokenType) bool {
	return c.current.Type == t
}

// synchronize skips tokens until a statement boundary: just past a ';' or
// just before a keyword that starts a declaration or statement.
func (c *compiler) synchronize() {
	for c.current.Type != TokenEOF {
		if c.previous.Type == TokenSemicolon {
			return
		}
		switch c.current.Type {
		case TokenClass, TokenFun, TokenVar, TokenFor, TokenIf, TokenWhile, TokenPrint, TokenReturn:
			return
		}
		c.advance()
	}
}

// ---------------------------------------------------------------------------
// Emission
// ---------------------------------------------------------------------------

func (c *compiler) emit(op bytecode.Opcode) {
	c.chunk.Emit(op, c.previous.Line)
}

func (c *compiler) emitAt(op bytecode.Opcode, line int) {
	c.chunk.Emit(op, line)
}

func (c *compiler) emitReturn() {
	c.emit(bytecode.OpReturn)
}

func (c *compiler) emitConstant(value bytecode.Value) {
	c.chunk.EmitConstant(value, c.previous.Line)
}

// ---------------------------------------------------------------------------
// Error reporting
// ---------------------------------------------------------------------------

func (c *compiler) error(message string) {
	c.errorAt(c.previous, message)
}

func (c *compiler) errorAtCurrent(message string) {
	c.errorAt(c.current, message)
}

func (c *compiler) errorAt(tok Token, message string) {
	d := Diagnostic{Line: tok.Line, Message: message}
	switch tok.Type {
	case TokenEOF:
		d.Where = "at end"
	case TokenError:
		// The lexeme is the message itself.
	default:
		d.Where = fmt.Sprintf("at '%s'", tok.Lexeme)
	}

	c.hadError = true
	c.diagnostics = append(c.diagnostics, d)
	if c.diagOut != nil {
		fmt.Fprintln(c.diagOut, d.String())
	}
}
