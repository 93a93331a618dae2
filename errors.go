package exprc

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors used throughout the exprc package
var (
	// ErrUnexpectedSymbol is returned when a character outside the expression grammar is found.
	ErrUnexpectedSymbol = errors.New("unexpected symbol")
	// ErrUnbalancedParen indicates an opening parenthesis that was never closed.
	ErrUnbalancedParen = errors.New("unbalanced parenthesis")
	// ErrUnexpectedEndOfInput indicates the input ended where the grammar required more.
	ErrUnexpectedEndOfInput = errors.New("unexpected end of input")
	// ErrTrailingInput indicates leftover characters after a complete expression.
	ErrTrailingInput = errors.New("trailing input after expression")
	// ErrNestingTooDeep indicates the parenthesis nesting limit was exceeded.
	ErrNestingTooDeep = errors.New("expression nesting too deep")
)

// ParseError describes a single grammar violation. Compilation stops at the
// first violation, so at most one ParseError is ever produced per input.
type ParseError struct {
	Err    error  // one of the compile sentinel errors above
	Symbol rune   // offending character, only set for ErrUnexpectedSymbol
	Pos    int    // zero-based character offset into Input
	Input  string // full source text, kept for DetailedError
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if errors.Is(e.Err, ErrUnexpectedSymbol) {
		return fmt.Sprintf("%s %q at position %d", e.Err, e.Symbol, e.Pos)
	}
	return fmt.Sprintf("%s at position %d", e.Err, e.Pos)
}

// Unwrap exposes the sentinel so callers can match with errors.Is.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// DetailedError returns a detailed error message with source context
func (e *ParseError) DetailedError() string {
	var builder strings.Builder

	// Basic error message
	builder.WriteString(e.Error())
	builder.WriteString("\n")

	// Add source context if available
	if e.Input != "" {
		builder.WriteString("\n")
		builder.WriteString(e.Input)
		builder.WriteString("\n")

		// Add pointer to the error location. Pos may sit one past the last
		// character for end-of-input errors.
		if e.Pos >= 0 && e.Pos <= len([]rune(e.Input)) {
			builder.WriteString(strings.Repeat(" ", e.Pos))
			builder.WriteString("^")
			builder.WriteString("\n")
		}
	}

	return builder.String()
}
