package exprc

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Instruction opcodes
const (
	// OpPush pushes a value onto the stack, either an immediate digit or a register
	OpPush = "PUSH"
	// OpPop pops the top of the stack into a register
	OpPop = "POP"
	// OpAdd adds the source register to the destination register
	OpAdd = "ADD"
	// OpSub subtracts the source register from the destination register
	OpSub = "SUB"
	// OpMul multiplies the destination register by the source register
	OpMul = "MUL"
	// OpDiv divides the destination register by the source register, truncating toward zero
	OpDiv = "DIV"
)

// Register identifies one of the two scratch registers of the target machine.
type Register string

// The target machine has exactly two registers. Binary operations load both,
// combine into A, and push A back.
const (
	RegA Register = "A"
	RegB Register = "B"
)

// Instruction represents a single stack-machine instruction. Which operand
// fields are meaningful depends on Op:
//
//	PUSH  Value (immediate digit) or Reg (register source)
//	POP   Reg (target register)
//	ADD, SUB, MUL, DIV  Dest and Src; the result replaces Dest
type Instruction struct {
	Op    string   `json:"op"`              // opcode name
	Value *int     `json:"value,omitempty"` // immediate operand for PUSH, a single decimal digit
	Reg   Register `json:"reg,omitempty"`   // register operand for PUSH and POP
	Dest  Register `json:"dest,omitempty"`  // destination register for binary operations
	Src   Register `json:"src,omitempty"`   // source register for binary operations
}

// Push builds an instruction that pushes an immediate value.
func Push(value int) Instruction {
	v := value
	return Instruction{Op: OpPush, Value: &v}
}

// PushRegister builds an instruction that pushes a register's content.
func PushRegister(reg Register) Instruction {
	return Instruction{Op: OpPush, Reg: reg}
}

// Pop builds an instruction that pops the stack top into a register.
func Pop(reg Register) Instruction {
	return Instruction{Op: OpPop, Reg: reg}
}

// Binary builds a two-register arithmetic instruction. The op must be one of
// OpAdd, OpSub, OpMul or OpDiv.
func Binary(op string, dest, src Register) Instruction {
	return Instruction{Op: op, Dest: dest, Src: src}
}

// String renders the instruction in its assembly text form, such as
// "PUSH 2", "POP B" or "ADD A, B".
func (i Instruction) String() string {
	switch i.Op {
	case OpPush:
		if i.Value != nil {
			return fmt.Sprintf("%s %d", i.Op, *i.Value)
		}
		return fmt.Sprintf("%s %s", i.Op, i.Reg)
	case OpPop:
		return fmt.Sprintf("%s %s", i.Op, i.Reg)
	case OpAdd, OpSub, OpMul, OpDiv:
		return fmt.Sprintf("%s %s, %s", i.Op, i.Dest, i.Src)
	default:
		return i.Op
	}
}

// Program is an ordered sequence of instructions. The compiler only ever
// appends to it, so two compilations of the same input produce identical
// programs.
type Program []Instruction

// String renders the program one instruction per line with a trailing
// newline, the same form the assembler parses.
func (p Program) String() string {
	var builder strings.Builder
	for _, inst := range p {
		builder.WriteString(inst.String())
		builder.WriteString("\n")
	}
	return builder.String()
}

// WriteJSON writes the program as a JSON array of instruction objects.
func (p Program) WriteJSON(w io.Writer, pretty bool) error {
	encoder := json.NewEncoder(w)
	if pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(p)
}
