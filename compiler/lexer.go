package compiler

import (
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for quill expressions
// ---------------------------------------------------------------------------

// Lexer tokenizes source text on demand. Each call to NextToken consumes
// input; a Lexer cannot be rewound. Once the input is exhausted NextToken
// keeps returning TokenEOF.
type Lexer struct {
	input   string
	start   int // offset of the token being scanned
	current int // offset of the next unread byte
	line    int // current line (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input: input,
		line:  1,
	}
}

// Line returns the line the lexer is currently positioned on.
func (l *Lexer) Line() int {
	return l.line
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()
	l.start = l.current

	if l.atEnd() {
		return l.makeToken(TokenEOF)
	}

	if isDigit(l.peek()) {
		return l.readNumber()
	}

	ch := l.advance()
	switch {
	case isAlpha(ch):
		return l.readIdentifier()
	case ch == '(':
		return l.makeToken(TokenLeftParen)
	case ch == ')':
		return l.makeToken(TokenRightParen)
	case ch == '{':
		return l.makeToken(TokenLeftBrace)
	case ch == '}':
		return l.makeToken(TokenRightBrace)
	case ch == ',':
		return l.makeToken(TokenComma)
	case ch == '.':
		return l.makeToken(TokenDot)
	case ch == '-':
		return l.makeToken(TokenMinus)
	case ch == '+':
		return l.makeToken(TokenPlus)
	case ch == ';':
		return l.makeToken(TokenSemicolon)
	case ch == '*':
		return l.makeToken(TokenStar)
	case ch == '/':
		return l.makeToken(TokenSlash)
	case ch == '!':
		return l.makeToken(l.either('=', TokenBangEqual, TokenBang))
	case ch == '=':
		return l.makeToken(l.either('=', TokenEqualEqual, TokenEqual))
	case ch == '<':
		return l.makeToken(l.either('=', TokenLessEqual, TokenLess))
	case ch == '>':
		return l.makeToken(l.either('=', TokenGreaterEqual, TokenGreater))
	case ch == '"':
		return l.readString()
	}

	return l.errorToken("Unexpected character.")
}

// skipWhitespaceAndComments skips blanks, newlines and // line comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for !l.atEnd() {
		switch l.peek() {
		case ' ', '\r', '\t':
			l.advance()
		case '\n':
			l.line++
			l.advance()
		case '/':
			if l.peekNext() != '/' {
				return
			}
			// The newline itself is left for the next iteration so the
			// line counter sees it.
			for !l.atEnd() && l.peek() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

// readNumber reads digits with an optional fractional part. A trailing
// '.' without digits is not part of the number.
func (l *Lexer) readNumber() Token {
	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekNext()) {
		l.advance() // consume '.'
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	return l.makeToken(TokenNumber)
}

// readString reads a double-quoted string. Newlines are allowed inside and
// counted; the token lexeme excludes the quotes.
func (l *Lexer) readString() Token {
	for !l.atEnd() && l.peek() != '"' {
		if l.peek() == '\n' {
			l.line++
		}
		l.advance()
	}
	if l.atEnd() {
		return l.errorToken("Unterminated string.")
	}
	l.advance() // closing quote

	return Token{Type: TokenString, Lexeme: l.input[l.start+1 : l.current-1], Line: l.line}
}

// readIdentifier reads the longest run of letters, digits and underscores
// and classifies it against the keyword table.
func (l *Lexer) readIdentifier() Token {
	for isAlpha(l.peek()) || isDigit(l.peek()) {
		l.advance()
	}
	if kw, ok := keywords[l.input[l.start:l.current]]; ok {
		return l.makeToken(kw)
	}
	return l.makeToken(TokenIdentifier)
}

func (l *Lexer) atEnd() bool {
	return l.current >= len(l.input)
}

// advance consumes one rune and returns it.
func (l *Lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.input[l.current:])
	l.current += size
	return r
}

// peek returns the next rune without consuming it, or 0 at end of input.
func (l *Lexer) peek() rune {
	if l.atEnd() {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.current:])
	return r
}

// peekNext returns the rune after the next one, or 0.
func (l *Lexer) peekNext() rune {
	if l.atEnd() {
		return 0
	}
	_, size := utf8.DecodeRuneInString(l.input[l.current:])
	if l.current+size >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.current+size:])
	return r
}

// either consumes expected and returns match, or returns otherwise.
func (l *Lexer) either(expected rune, match, otherwise TokenType) TokenType {
	if l.peek() == expected {
		l.advance()
		return match
	}
	return otherwise
}

func (l *Lexer) makeToken(t TokenType) Token {
	return Token{Type: t, Lexeme: l.input[l.start:l.current], Line: l.line}
}

func (l *Lexer) errorToken(message string) Token {
	return Token{Type: TokenError, Lexeme: message, Line: l.line}
}

// Tokenize drains a lexer for source and returns every token up to and
// including the first TokenEOF.
func Tokenize(source string) []Token {
	l := NewLexer(source)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens
		}
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
}
