package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/shibukawa/exprc"
)

func TestCompile_SingleDigit(t *testing.T) {
	prog, err := Compile("7")

	assert.NoError(t, err)
	assert.Equal(t, exprc.Program{exprc.Push(7)}, prog)
}

func TestCompile_Addition(t *testing.T) {
	prog, err := Compile("2+4")

	assert.NoError(t, err)
	expected := exprc.Program{
		exprc.Push(2),
		exprc.Push(4),
		exprc.Pop(exprc.RegB),
		exprc.Pop(exprc.RegA),
		exprc.Binary(exprc.OpAdd, exprc.RegA, exprc.RegB),
		exprc.PushRegister(exprc.RegA),
	}
	assert.Equal(t, expected, prog)
}

func TestCompile_OperatorOpcodes(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		opcode string
	}{
		{"plus", "1+2", exprc.OpAdd},
		{"minus", "1-2", exprc.OpSub},
		{"asterisk", "1*2", exprc.OpMul},
		{"slash", "1/2", exprc.OpDiv},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := Compile(tt.input)
			assert.NoError(t, err)

			// PUSH, PUSH, POP, POP, op, PUSH
			assert.Equal(t, 6, len(prog))
			assert.Equal(t, tt.opcode, prog[4].Op)
			assert.Equal(t, exprc.RegA, prog[4].Dest)
			assert.Equal(t, exprc.RegB, prog[4].Src)
		})
	}
}

func TestCompile_Precedence(t *testing.T) {
	// The parenthesized difference resolves first, then the product, then
	// the sum. Operands push in source order.
	prog, err := Compile("7+3*(2-1)")

	assert.NoError(t, err)
	expected := strings.Join([]string{
		"PUSH 7",
		"PUSH 3",
		"PUSH 2",
		"PUSH 1",
		"POP B",
		"POP A",
		"SUB A, B",
		"PUSH A",
		"POP B",
		"POP A",
		"MUL A, B",
		"PUSH A",
		"POP B",
		"POP A",
		"ADD A, B",
		"PUSH A",
	}, "\n") + "\n"
	assert.Equal(t, expected, prog.String())
}

func TestCompile_LeftAssociativity(t *testing.T) {
	// "8-2-1" resolves as "(8-2)-1": the first subtraction is emitted
	// before the third operand is even read.
	prog, err := Compile("8-2-1")

	assert.NoError(t, err)
	expected := strings.Join([]string{
		"PUSH 8",
		"PUSH 2",
		"POP B",
		"POP A",
		"SUB A, B",
		"PUSH A",
		"PUSH 1",
		"POP B",
		"POP A",
		"SUB A, B",
		"PUSH A",
	}, "\n") + "\n"
	assert.Equal(t, expected, prog.String())
}

func TestCompile_ParenthesesEmitNothing(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"single group", "(2)"},
		{"nested groups", "((((2))))"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := Compile(tt.input)
			assert.NoError(t, err)
			assert.Equal(t, exprc.Program{exprc.Push(2)}, prog)
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		sentinel error
		pos      int
		symbol   rune
	}{
		{"empty input", "", exprc.ErrUnexpectedEndOfInput, 0, 0},
		{"lone open paren", "(", exprc.ErrUnbalancedParen, 0, 0},
		{"unclosed after expression", "(1", exprc.ErrUnbalancedParen, 0, 0},
		{"unclosed before stray symbol", "(12", exprc.ErrUnbalancedParen, 0, 0},
		{"innermost group reported", "((", exprc.ErrUnbalancedParen, 1, 0},
		{"dangling operator", "2+", exprc.ErrUnexpectedEndOfInput, 2, 0},
		{"operator first", "+2", exprc.ErrUnexpectedSymbol, 0, '+'},
		{"doubled operator", "2++3", exprc.ErrUnexpectedSymbol, 2, '+'},
		{"letter", "a", exprc.ErrUnexpectedSymbol, 0, 'a'},
		{"letter inside group", "(a)", exprc.ErrUnexpectedSymbol, 1, 'a'},
		{"empty group", "()", exprc.ErrUnexpectedSymbol, 1, ')'},
		{"whitespace is significant by default", "2 + 4", exprc.ErrUnexpectedSymbol, 1, ' '},
		{"stray close paren", "2)", exprc.ErrTrailingInput, 1, 0},
		{"multi-digit number", "12", exprc.ErrTrailingInput, 1, 0},
		{"garbage after expression", "2+4#", exprc.ErrTrailingInput, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := Compile(tt.input)

			// No partial program on failure
			assert.Zero(t, prog)
			assert.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel))

			var perr *exprc.ParseError
			assert.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.pos, perr.Pos)
			assert.Equal(t, tt.input, perr.Input)
			if tt.symbol != 0 {
				assert.Equal(t, tt.symbol, perr.Symbol)
			}
		})
	}
}

func TestCompile_NeverPanicsOnGarbage(t *testing.T) {
	inputs := []string{
		"",
		")",
		"(((",
		")))",
		"+-*/",
		"2+*3",
		"((2+)",
		"\x00",
		"9/(8",
		"éé",
		strings.Repeat("(", 1000),
	}

	for _, input := range inputs {
		prog, err := Compile(input)
		assert.Error(t, err, "input %q must fail, not panic", input)
		assert.Zero(t, prog)
	}
}

func TestCompileWithOptions_SkipWhitespace(t *testing.T) {
	opts := Options{SkipWhitespace: true}

	tests := []struct {
		name   string
		spaced string
		bare   string
	}{
		{"spaces around operator", "2 + 4", "2+4"},
		{"leading and trailing", "  2+4  ", "2+4"},
		{"tabs and newlines", "2\t+\n4", "2+4"},
		{"inside groups", " ( 2 + 4 ) * 3 ", "(2+4)*3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spaced, err := CompileWithOptions(tt.spaced, opts)
			assert.NoError(t, err)

			bare, err := Compile(tt.bare)
			assert.NoError(t, err)

			assert.Equal(t, bare, spaced)
		})
	}
}

func TestCompileWithOptions_SkipWhitespace_OnlySpaces(t *testing.T) {
	prog, err := CompileWithOptions("   ", Options{SkipWhitespace: true})

	assert.Zero(t, prog)
	assert.True(t, errors.Is(err, exprc.ErrUnexpectedEndOfInput))

	var perr *exprc.ParseError
	assert.True(t, errors.As(err, &perr))
	assert.Equal(t, 3, perr.Pos)
}

func TestCompileWithOptions_MaxDepth(t *testing.T) {
	opts := Options{MaxDepth: 2}

	_, err := CompileWithOptions("((1))", opts)
	assert.NoError(t, err)

	_, err = CompileWithOptions("(((1)))", opts)
	assert.True(t, errors.Is(err, exprc.ErrNestingTooDeep))

	var perr *exprc.ParseError
	assert.True(t, errors.As(err, &perr))
	assert.Equal(t, 2, perr.Pos)
}

func TestCompileWithOptions_MaxDepthUnbounded(t *testing.T) {
	depth := 500
	input := strings.Repeat("(", depth) + "1" + strings.Repeat(")", depth)

	prog, err := CompileWithOptions(input, Options{})
	assert.NoError(t, err)
	assert.Equal(t, exprc.Program{exprc.Push(1)}, prog)
}

func TestCompile_Deterministic(t *testing.T) {
	input := "7+3*(2-1)/4"

	first, err := Compile(input)
	assert.NoError(t, err)

	second, err := Compile(input)
	assert.NoError(t, err)

	assert.Equal(t, first.String(), second.String())
}
