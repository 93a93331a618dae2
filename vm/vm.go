// Package vm executes compiled stack-machine programs. It implements the
// two-register machine the compiler targets: an operand stack of signed
// 64-bit integers and the scratch registers A and B.
package vm

import (
	"errors"
	"fmt"
	"io"

	"github.com/shibukawa/exprc"
)

// Sentinel errors
var (
	// ErrUnknownInstruction is returned for an opcode the machine does not implement.
	ErrUnknownInstruction = errors.New("unknown instruction")
	// ErrUnknownRegister is returned for a register operand other than A or B.
	ErrUnknownRegister = errors.New("unknown register")
	// ErrStackUnderflow is returned when POP runs against an empty stack.
	ErrStackUnderflow = errors.New("stack underflow")
	// ErrDivisionByZero is returned when DIV meets a zero divisor.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrBadResult is returned when a finished program left anything other
	// than exactly one value on the stack.
	ErrBadResult = errors.New("program did not leave exactly one value on the stack")
)

// Machine executes programs. The zero value is ready to use.
type Machine struct {
	a, b  int64
	stack []int64

	// Trace, when non-nil, receives one line per executed instruction with
	// the machine state after the step.
	Trace io.Writer
}

// New creates a machine with empty registers and stack.
func New() *Machine {
	return &Machine{}
}

// Run executes the program from a clean machine state and returns the single
// value it leaves on the stack. A program produced by the compiler always
// satisfies that contract; hand-written programs that do not are rejected
// with ErrBadResult.
func (m *Machine) Run(prog exprc.Program) (int64, error) {
	m.a, m.b = 0, 0
	m.stack = m.stack[:0]

	for pc, inst := range prog {
		if err := m.step(inst); err != nil {
			return 0, fmt.Errorf("error executing instruction at PC %d (%s): %w", pc, inst, err)
		}
		if m.Trace != nil {
			fmt.Fprintf(m.Trace, "%4d  %-10s  A=%d B=%d stack=%v\n", pc, inst, m.a, m.b, m.stack)
		}
	}

	if len(m.stack) != 1 {
		return 0, fmt.Errorf("%w: stack depth %d", ErrBadResult, len(m.stack))
	}

	return m.stack[0], nil
}

// Run executes prog on a fresh machine.
func Run(prog exprc.Program) (int64, error) {
	return New().Run(prog)
}

func (m *Machine) step(inst exprc.Instruction) error {
	switch inst.Op {
	case exprc.OpPush:
		if inst.Value != nil {
			m.push(int64(*inst.Value))
			return nil
		}
		value, err := m.load(inst.Reg)
		if err != nil {
			return err
		}
		m.push(value)
		return nil

	case exprc.OpPop:
		value, err := m.pop()
		if err != nil {
			return err
		}
		return m.store(inst.Reg, value)

	case exprc.OpAdd, exprc.OpSub, exprc.OpMul, exprc.OpDiv:
		dest, err := m.load(inst.Dest)
		if err != nil {
			return err
		}
		src, err := m.load(inst.Src)
		if err != nil {
			return err
		}
		result, err := apply(inst.Op, dest, src)
		if err != nil {
			return err
		}
		return m.store(inst.Dest, result)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownInstruction, inst.Op)
	}
}

func (m *Machine) push(value int64) {
	m.stack = append(m.stack, value)
}

func (m *Machine) pop() (int64, error) {
	if len(m.stack) == 0 {
		return 0, ErrStackUnderflow
	}
	value := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]

	return value, nil
}

func (m *Machine) load(reg exprc.Register) (int64, error) {
	switch reg {
	case exprc.RegA:
		return m.a, nil
	case exprc.RegB:
		return m.b, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRegister, reg)
	}
}

func (m *Machine) store(reg exprc.Register, value int64) error {
	switch reg {
	case exprc.RegA:
		m.a = value
	case exprc.RegB:
		m.b = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRegister, reg)
	}

	return nil
}

// apply computes one binary operation. Division truncates toward zero, the
// behavior of Go's integer division.
func apply(op string, dest, src int64) (int64, error) {
	switch op {
	case exprc.OpAdd:
		return dest + src, nil
	case exprc.OpSub:
		return dest - src, nil
	case exprc.OpMul:
		return dest * src, nil
	case exprc.OpDiv:
		if src == 0 {
			return 0, ErrDivisionByZero
		}
		return dest / src, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownInstruction, op)
	}
}
