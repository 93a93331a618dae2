package parser

import (
	"fmt"

	"github.com/shibukawa/exprc"
)

// emitter accumulates the output program. It only ever appends; nothing is
// removed or reordered after it has been emitted.
type emitter struct {
	instructions exprc.Program
}

func newEmitter() *emitter {
	return &emitter{instructions: make(exprc.Program, 0, 16)}
}

func (e *emitter) emit(inst exprc.Instruction) {
	e.instructions = append(e.instructions, inst)
}

// pushDigit emits the immediate push for a single decimal digit.
func (e *emitter) pushDigit(digit int) {
	e.emit(exprc.Push(digit))
}

// binary emits the four-instruction sequence for one consumed operator: pop
// the right operand into B, pop the left into A, apply the operation into A,
// and push A back onto the stack.
func (e *emitter) binary(op rune) {
	e.emit(exprc.Pop(exprc.RegB))
	e.emit(exprc.Pop(exprc.RegA))
	e.emit(exprc.Binary(translateOperator(op), exprc.RegA, exprc.RegB))
	e.emit(exprc.PushRegister(exprc.RegA))
}

func (e *emitter) program() exprc.Program {
	return e.instructions
}

// translateOperator maps an operator character to its opcode. The parser only
// ever consumes the four grammar operators, so any other input is a bug in
// the parser itself, not a user error.
func translateOperator(op rune) string {
	switch op {
	case '+':
		return exprc.OpAdd
	case '-':
		return exprc.OpSub
	case '*':
		return exprc.OpMul
	case '/':
		return exprc.OpDiv
	default:
		panic(fmt.Sprintf("translateOperator: not an operator: %q", op))
	}
}
