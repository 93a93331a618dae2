// Package asm converts between the in-memory instruction representation and
// its assembly text form. Format and Parse round-trip: parsing formatted
// output yields the original program.
package asm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shibukawa/exprc"
)

// Sentinel errors
var (
	// ErrUnknownMnemonic is returned for a mnemonic outside the instruction set.
	ErrUnknownMnemonic = errors.New("unknown mnemonic")
	// ErrBadOperand is returned when an instruction's operands do not match its shape.
	ErrBadOperand = errors.New("bad operand")
)

// Format renders the program in the textual form Parse accepts, one
// instruction per line with a trailing newline.
func Format(prog exprc.Program) string {
	return prog.String()
}

// Parse reads assembly text into a program. Mnemonics and register names are
// case-insensitive, a ';' or "//" starts a comment running to the end of the
// line, and blank lines are skipped.
func Parse(src string) (exprc.Program, error) {
	var prog exprc.Program

	for i, raw := range strings.Split(src, "\n") {
		lineNo := i + 1

		line := strings.TrimSpace(stripComment(raw))
		if line == "" {
			continue
		}

		inst, err := parseLine(line, lineNo)
		if err != nil {
			return nil, err
		}

		prog = append(prog, inst)
	}

	return prog, nil
}

func parseLine(line string, lineNo int) (exprc.Instruction, error) {
	// Commas only separate operands, so treating them as spaces makes
	// "ADD A, B" and "ADD A B" equivalent.
	fields := strings.Fields(strings.ReplaceAll(line, ",", " "))
	if len(fields) == 0 {
		return exprc.Instruction{}, fmt.Errorf("%w on line %d: %q", ErrUnknownMnemonic, lineNo, line)
	}

	mnemonic := strings.ToUpper(fields[0])
	operands := fields[1:]

	switch mnemonic {
	case exprc.OpPush:
		if len(operands) != 1 {
			return exprc.Instruction{}, fmt.Errorf("%w on line %d: PUSH expects exactly one operand", ErrBadOperand, lineNo)
		}
		if reg, ok := parseRegister(operands[0]); ok {
			return exprc.PushRegister(reg), nil
		}
		value, err := strconv.Atoi(operands[0])
		if err != nil || value < 0 || value > 9 {
			return exprc.Instruction{}, fmt.Errorf("%w on line %d: %q is neither a register nor a single digit", ErrBadOperand, lineNo, operands[0])
		}
		return exprc.Push(value), nil

	case exprc.OpPop:
		if len(operands) != 1 {
			return exprc.Instruction{}, fmt.Errorf("%w on line %d: POP expects exactly one register operand", ErrBadOperand, lineNo)
		}
		reg, ok := parseRegister(operands[0])
		if !ok {
			return exprc.Instruction{}, fmt.Errorf("%w on line %d: unknown register %q", ErrBadOperand, lineNo, operands[0])
		}
		return exprc.Pop(reg), nil

	case exprc.OpAdd, exprc.OpSub, exprc.OpMul, exprc.OpDiv:
		if len(operands) != 2 {
			return exprc.Instruction{}, fmt.Errorf("%w on line %d: %s expects two register operands", ErrBadOperand, lineNo, mnemonic)
		}
		dest, ok := parseRegister(operands[0])
		if !ok {
			return exprc.Instruction{}, fmt.Errorf("%w on line %d: unknown register %q", ErrBadOperand, lineNo, operands[0])
		}
		src, ok := parseRegister(operands[1])
		if !ok {
			return exprc.Instruction{}, fmt.Errorf("%w on line %d: unknown register %q", ErrBadOperand, lineNo, operands[1])
		}
		return exprc.Binary(mnemonic, dest, src), nil

	default:
		return exprc.Instruction{}, fmt.Errorf("%w on line %d: %q", ErrUnknownMnemonic, lineNo, fields[0])
	}
}

func parseRegister(token string) (exprc.Register, bool) {
	switch strings.ToUpper(token) {
	case "A":
		return exprc.RegA, true
	case "B":
		return exprc.RegB, true
	default:
		return "", false
	}
}

func stripComment(line string) string {
	semicolon := strings.Index(line, ";")
	doubleSlash := strings.Index(line, "//")

	cut := -1
	if semicolon >= 0 {
		cut = semicolon
	}
	if doubleSlash >= 0 && (cut == -1 || doubleSlash < cut) {
		cut = doubleSlash
	}
	if cut >= 0 {
		return line[:cut]
	}

	return line
}
