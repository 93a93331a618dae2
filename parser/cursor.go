// Package parser compiles infix arithmetic expressions into stack-machine
// programs. Compilation is a single left-to-right pass: the parser walks the
// input through a Cursor and emits instructions as soon as each subexpression
// is complete, so the output order is fully determined by the input.
package parser

// EndOfInput is the sentinel rune Peek returns once the input is exhausted.
// It can never appear in the input itself because the grammar alphabet is
// printable ASCII.
const EndOfInput = rune(0)

// Cursor is a read-only scan over the source text. The only mutable state is
// the current position; the input is never modified.
type Cursor struct {
	src []rune
	pos int // index of the rune Peek returns next
}

// NewCursor returns a cursor positioned at the first character of input.
func NewCursor(input string) *Cursor {
	return &Cursor{src: []rune(input)}
}

// Peek returns the rune at the current position without advancing, or
// EndOfInput when the cursor has passed the final character.
func (c *Cursor) Peek() rune {
	if c.pos >= len(c.src) {
		return EndOfInput
	}
	return c.src[c.pos]
}

// Advance moves one character forward. At the end of input it is a no-op, so
// the position never exceeds the input length.
func (c *Cursor) Advance() {
	if c.pos < len(c.src) {
		c.pos++
	}
}

// Pos reports the zero-based offset of the character Peek would return. Once
// the input is exhausted it equals the input length in characters.
func (c *Cursor) Pos() int {
	return c.pos
}
