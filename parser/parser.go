package parser

import (
	"errors"

	"github.com/shibukawa/exprc"
)

// Options control input handling outside of the grammar itself.
type Options struct {
	// SkipWhitespace allows blanks, tabs and newlines between grammar
	// symbols. When false, a whitespace character is reported as an
	// unexpected symbol at its position.
	SkipWhitespace bool

	// MaxDepth bounds parenthesis nesting. Zero means unbounded.
	MaxDepth int
}

// Parser consumes characters from a Cursor and emits instructions as each
// subexpression resolves. A Parser runs a single compilation; Compile creates
// a fresh one per call.
//
// The grammar, with precedence encoded by the nesting of the rules:
//
//	exp    = term (("+" | "-") term)*
//	term   = factor (("*" | "/") factor)*
//	factor = digit | "(" exp ")"
type Parser struct {
	cursor  *Cursor
	emitter *emitter
	opts    Options
	input   string
	depth   int // open parenthesis groups at the current point
}

// Compile translates an infix arithmetic expression into a stack-machine
// program. On failure it returns a *exprc.ParseError describing the first
// grammar violation and no program at all.
func Compile(input string) (exprc.Program, error) {
	return CompileWithOptions(input, Options{})
}

// CompileWithOptions is Compile with explicit input handling options.
func CompileWithOptions(input string, opts Options) (exprc.Program, error) {
	p := &Parser{
		cursor:  NewCursor(input),
		emitter: newEmitter(),
		opts:    opts,
		input:   input,
	}

	if err := p.parseExp(); err != nil {
		return nil, err
	}

	// The whole input must be one expression. Anything left over after the
	// top-level exp is an error, not a second expression.
	p.skipSpace()
	if ch := p.cursor.Peek(); ch != EndOfInput {
		return nil, p.errorAt(exprc.ErrTrailingInput, ch, p.cursor.Pos())
	}

	return p.emitter.program(), nil
}

// parseExp handles the lowest precedence level, "+" and "-".
func (p *Parser) parseExp() error {
	if err := p.parseTerm(); err != nil {
		return err
	}

	for {
		p.skipSpace()
		ch := p.cursor.Peek()
		if ch != '+' && ch != '-' {
			return nil
		}
		p.cursor.Advance()

		if err := p.parseTerm(); err != nil {
			return err
		}

		// Both operands are on the stack now, left below right.
		p.emitter.binary(ch)
	}
}

// parseTerm handles the higher precedence level, "*" and "/".
func (p *Parser) parseTerm() error {
	if err := p.parseFactor(); err != nil {
		return err
	}

	for {
		p.skipSpace()
		ch := p.cursor.Peek()
		if ch != '*' && ch != '/' {
			return nil
		}
		p.cursor.Advance()

		if err := p.parseFactor(); err != nil {
			return err
		}

		p.emitter.binary(ch)
	}
}

// parseFactor handles a single digit or a parenthesized subexpression.
func (p *Parser) parseFactor() error {
	p.skipSpace()

	ch := p.cursor.Peek()
	switch {
	case ch >= '0' && ch <= '9':
		p.cursor.Advance()
		p.emitter.pushDigit(int(ch - '0'))
		return nil

	case ch == '(':
		return p.parseGroup()

	case ch == EndOfInput:
		return p.errorAt(exprc.ErrUnexpectedEndOfInput, 0, p.cursor.Pos())

	default:
		return p.errorAt(exprc.ErrUnexpectedSymbol, ch, p.cursor.Pos())
	}
}

// parseGroup parses "(" exp ")" with the cursor on the opening parenthesis.
// Unbalanced parentheses are always reported at the opening position, since
// there is no closing character to point at.
func (p *Parser) parseGroup() error {
	openPos := p.cursor.Pos()
	p.cursor.Advance()

	p.depth++
	if p.opts.MaxDepth > 0 && p.depth > p.opts.MaxDepth {
		return p.errorAt(exprc.ErrNestingTooDeep, 0, openPos)
	}

	if err := p.parseExp(); err != nil {
		// The inner expression running out of input means this group was
		// never closed. Any other failure keeps its own, more precise
		// diagnosis.
		if errors.Is(err, exprc.ErrUnexpectedEndOfInput) {
			return p.errorAt(exprc.ErrUnbalancedParen, 0, openPos)
		}
		return err
	}

	p.skipSpace()
	if p.cursor.Peek() != ')' {
		return p.errorAt(exprc.ErrUnbalancedParen, 0, openPos)
	}
	p.cursor.Advance()
	p.depth--

	return nil
}

// skipSpace consumes whitespace when the options allow it.
func (p *Parser) skipSpace() {
	if !p.opts.SkipWhitespace {
		return
	}
	for {
		switch p.cursor.Peek() {
		case ' ', '\t', '\r', '\n':
			p.cursor.Advance()
		default:
			return
		}
	}
}

func (p *Parser) errorAt(sentinel error, symbol rune, pos int) error {
	return &exprc.ParseError{
		Err:    sentinel,
		Symbol: symbol,
		Pos:    pos,
		Input:  p.input,
	}
}
