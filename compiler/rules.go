package compiler

// Precedence orders binding strength from loosest to tightest.
type Precedence int

const (
	PrecNone       Precedence = iota
	PrecAssignment            // =
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * /
	PrecUnary                 // ! -
	PrecCall                  // . ()
	PrecPrimary
)

var precedenceNames = [...]string{
	PrecNone:       "none",
	PrecAssignment: "assignment",
	PrecOr:         "or",
	PrecAnd:        "and",
	PrecEquality:   "equality",
	PrecComparison: "comparison",
	PrecTerm:       "term",
	PrecFactor:     "factor",
	PrecUnary:      "unary",
	PrecCall:       "call",
	PrecPrimary:    "primary",
}

func (p Precedence) String() string {
	if p >= 0 && int(p) < len(precedenceNames) {
		return precedenceNames[p]
	}
	return "invalid"
}

// next returns the next tighter level. Binary operators parse their right
// operand at op.next(), which makes them left-associative.
func (p Precedence) next() Precedence {
	if p >= PrecPrimary {
		return PrecPrimary
	}
	return p + 1
}

// ruleKind selects the parse action run for a token. The compiler
// dispatches on it in a single switch (see compiler.apply).
type ruleKind int

const (
	ruleNone ruleKind = iota
	ruleNumber
	ruleGrouping
	ruleUnary
	ruleBinary

	// Reserved for syntax the language does not have yet. Reaching one is
	// reported as an internal error.
	ruleAnd
	ruleOr
	ruleAssign
	ruleCall
)

var ruleKindNames = [...]string{
	ruleNone:     "none",
	ruleNumber:   "number",
	ruleGrouping: "grouping",
	ruleUnary:    "unary",
	ruleBinary:   "binary",
	ruleAnd:      "and",
	ruleOr:       "or",
	ruleAssign:   "assignment",
	ruleCall:     "call",
}

func (k ruleKind) String() string {
	if k >= 0 && int(k) < len(ruleKindNames) {
		return ruleKindNames[k]
	}
	return "invalid"
}

// parseRule says how a token behaves at the start of an expression
// (prefix), between two operands (infix), and how tightly it binds.
type parseRule struct {
	prefix     ruleKind
	infix      ruleKind
	precedence Precedence
}

// ruleFor maps every token type to its parse rule. ok is false only for
// values outside the declared token set, including tokenTypeCount.
func ruleFor(t TokenType) (rule parseRule, ok bool) {
	switch t {
	case TokenLeftParen:
		return parseRule{ruleGrouping, ruleCall, PrecCall}, true
	case TokenRightParen, TokenLeftBrace, TokenRightBrace, TokenComma:
		return parseRule{}, true
	case TokenDot:
		return parseRule{ruleNone, ruleNone, PrecCall}, true
	case TokenMinus:
		return parseRule{ruleUnary, ruleBinary, PrecTerm}, true
	case TokenPlus:
		return parseRule{ruleNone, ruleBinary, PrecTerm}, true
	case TokenSemicolon:
		return parseRule{}, true
	case TokenSlash, TokenStar:
		return parseRule{ruleNone, ruleBinary, PrecFactor}, true
	case TokenBang:
		return parseRule{ruleUnary, ruleNone, PrecNone}, true
	case TokenBangEqual, TokenEqualEqual:
		return parseRule{ruleNone, ruleBinary, PrecEquality}, true
	case TokenEqual:
		return parseRule{ruleNone, ruleAssign, PrecAssignment}, true
	case TokenGreater, TokenGreaterEqual, TokenLess, TokenLessEqual:
		return parseRule{ruleNone, ruleBinary, PrecComparison}, true
	case TokenIdentifier, TokenString:
		return parseRule{}, true
	case TokenNumber:
		return parseRule{ruleNumber, ruleNone, PrecNone}, true
	case TokenAnd:
		return parseRule{ruleNone, ruleAnd, PrecAnd}, true
	case TokenOr:
		return parseRule{ruleNone, ruleOr, PrecOr}, true
	case TokenClass, TokenElse, TokenFalse, TokenFor, TokenFun, TokenIf, TokenNil,
		TokenPrint, TokenReturn, TokenSuper, TokenThis, TokenTrue, TokenVar, TokenWhile:
		return parseRule{}, true
	case TokenError, TokenEOF:
		return parseRule{}, true
	}
	return parseRule{}, false
}

// getRule is ruleFor for callers that only ever pass lexer output.
func getRule(t TokenType) parseRule {
	rule, _ := ruleFor(t)
	return rule
}
