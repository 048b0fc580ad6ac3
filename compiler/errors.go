package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// Diagnostic is one compile-time error report.
type Diagnostic struct {
	Line    int
	Where   string // "at end", "at '<lexeme>'", or empty for lexer errors
	Message string
}

// String renders the diagnostic as "[line N] Error at 'x': message".
func (d Diagnostic) String() string {
	if d.Where == "" {
		return fmt.Sprintf("[line %d] Error: %s", d.Line, d.Message)
	}
	return fmt.Sprintf("[line %d] Error %s: %s", d.Line, d.Where, d.Message)
}

// Error is returned by Compile when at least one diagnostic was recorded.
// No bytecode accompanies it.
type Error struct {
	Diagnostics []Diagnostic
}

func (e *Error) Error() string {
	lines := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}

// IsCompileError reports whether err (or anything it wraps) is a compile
// failure, as opposed to a run-time error.
func IsCompileError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}

// Diagnostics extracts the diagnostics from a compile failure, or nil.
func Diagnostics(err error) []Diagnostic {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Diagnostics
	}
	return nil
}
