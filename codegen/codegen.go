// Package codegen lowers compiled programs to standalone Go source. Every
// instruction becomes straight-line code over two int64 variables and a
// slice-backed stack, so the generated function evaluates the expression
// without any interpreter.
package codegen

import (
	"errors"
	"fmt"
	"go/token"
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/shibukawa/exprc"
)

// Sentinel errors
var (
	// ErrInvalidProgram is returned when the program would underflow the
	// stack, leave more than one result, or contains malformed instructions.
	ErrInvalidProgram = errors.New("invalid program")
	// ErrInvalidIdentifier is returned when an option is not a legal Go identifier.
	ErrInvalidIdentifier = errors.New("invalid Go identifier")
)

// assignOp maps the opcodes with a direct Go assignment form.
var assignOp = map[string]string{
	exprc.OpAdd: "+=",
	exprc.OpSub: "-=",
	exprc.OpMul: "*=",
}

// Options configure the generated file.
type Options struct {
	Package  string // package clause, "main" when empty
	Function string // name of the generated function, "Eval" when empty
	Source   string // compiled expression, recorded in the header comment
}

// Generate renders prog as a Go source file containing one function that
// evaluates the program and returns its result. The program is validated
// first; generation never emits code that would underflow its own stack.
func Generate(prog exprc.Program, opts Options) (string, error) {
	if opts.Package == "" {
		opts.Package = "main"
	}
	if opts.Function == "" {
		opts.Function = "Eval"
	}
	if !token.IsIdentifier(opts.Package) {
		return "", fmt.Errorf("%w: package name %q", ErrInvalidIdentifier, opts.Package)
	}
	if !token.IsIdentifier(opts.Function) {
		return "", fmt.Errorf("%w: function name %q", ErrInvalidIdentifier, opts.Function)
	}

	if err := checkStackEffect(prog); err != nil {
		return "", err
	}

	f := jen.NewFile(opts.Package)
	if opts.Source != "" {
		f.HeaderComment(fmt.Sprintf("Code generated by exprc for expression: %s", opts.Source))
	} else {
		f.HeaderComment("Code generated by exprc.")
	}
	f.HeaderComment("DO NOT EDIT.")

	usage := analyzeRegisters(prog)

	body := []jen.Code{
		jen.Var().Defs(declarations(usage)...),
		jen.Line(),
	}

	for pc, inst := range prog {
		code, err := lower(inst)
		if err != nil {
			return "", fmt.Errorf("instruction %d: %w", pc, err)
		}
		body = append(body, code...)
	}

	// A register that is only ever written would trip the unused variable
	// check in the generated file.
	for _, reg := range []exprc.Register{exprc.RegA, exprc.RegB} {
		if usage.written[reg] && !usage.read[reg] {
			name, _ := regName(reg)
			body = append(body, jen.Id("_").Op("=").Id(name))
		}
	}

	body = append(body,
		jen.Line(),
		jen.Return(jen.Id("stack").Index(jen.Lit(0)), jen.Nil()),
	)

	if opts.Source != "" {
		f.Comment(fmt.Sprintf("%s evaluates %q.", opts.Function, opts.Source))
	} else {
		f.Comment(fmt.Sprintf("%s evaluates the compiled expression.", opts.Function))
	}
	f.Func().Id(opts.Function).Params().Params(jen.Int64(), jen.Error()).Block(body...)

	if hasDivision(prog) {
		f.Line()
		f.Var().Id("errDivisionByZero").Op("=").Qual("errors", "New").Call(jen.Lit("division by zero"))
	}

	var buf strings.Builder
	if err := f.Render(&buf); err != nil {
		return "", fmt.Errorf("failed to render generated code: %w", err)
	}

	return buf.String(), nil
}

// checkStackEffect simulates the stack depth of the whole program. Generated
// code indexes the stack without bounds checks, so the shape must be proven
// here.
func checkStackEffect(prog exprc.Program) error {
	depth := 0

	for pc, inst := range prog {
		switch inst.Op {
		case exprc.OpPush:
			depth++
		case exprc.OpPop:
			if depth == 0 {
				return fmt.Errorf("%w: POP on empty stack at instruction %d", ErrInvalidProgram, pc)
			}
			depth--
		case exprc.OpAdd, exprc.OpSub, exprc.OpMul, exprc.OpDiv:
			// Register-only, no stack effect.
		default:
			return fmt.Errorf("%w: unknown instruction %q at instruction %d", ErrInvalidProgram, inst.Op, pc)
		}
	}

	if depth != 1 {
		return fmt.Errorf("%w: program leaves %d values on the stack, want exactly 1", ErrInvalidProgram, depth)
	}

	return nil
}

type registerUsage struct {
	read    map[exprc.Register]bool
	written map[exprc.Register]bool
}

func analyzeRegisters(prog exprc.Program) registerUsage {
	usage := registerUsage{
		read:    make(map[exprc.Register]bool),
		written: make(map[exprc.Register]bool),
	}

	for _, inst := range prog {
		switch inst.Op {
		case exprc.OpPush:
			if inst.Value == nil {
				usage.read[inst.Reg] = true
			}
		case exprc.OpPop:
			usage.written[inst.Reg] = true
		case exprc.OpAdd, exprc.OpSub, exprc.OpMul, exprc.OpDiv:
			usage.read[inst.Dest] = true
			usage.read[inst.Src] = true
			usage.written[inst.Dest] = true
		}
	}

	return usage
}

// declarations builds the var block, declaring only the registers the
// program actually touches.
func declarations(usage registerUsage) []jen.Code {
	var decls []jen.Code

	for _, reg := range []exprc.Register{exprc.RegA, exprc.RegB} {
		if usage.read[reg] || usage.written[reg] {
			name, _ := regName(reg)
			decls = append(decls, jen.Id(name).Int64())
		}
	}

	return append(decls, jen.Id("stack").Index().Int64())
}

func lower(inst exprc.Instruction) ([]jen.Code, error) {
	switch inst.Op {
	case exprc.OpPush:
		if inst.Value != nil {
			return []jen.Code{pushCode(jen.Lit(*inst.Value))}, nil
		}
		name, err := regName(inst.Reg)
		if err != nil {
			return nil, err
		}
		return []jen.Code{pushCode(jen.Id(name))}, nil

	case exprc.OpPop:
		name, err := regName(inst.Reg)
		if err != nil {
			return nil, err
		}
		return []jen.Code{
			jen.Id(name).Op("=").Id("stack").Index(jen.Len(jen.Id("stack")).Op("-").Lit(1)),
			jen.Id("stack").Op("=").Id("stack").Index(jen.Empty(), jen.Len(jen.Id("stack")).Op("-").Lit(1)),
		}, nil

	case exprc.OpAdd, exprc.OpSub, exprc.OpMul:
		dest, src, err := operandNames(inst)
		if err != nil {
			return nil, err
		}
		return []jen.Code{jen.Id(dest).Op(assignOp[inst.Op]).Id(src)}, nil

	case exprc.OpDiv:
		dest, src, err := operandNames(inst)
		if err != nil {
			return nil, err
		}
		return []jen.Code{
			jen.If(jen.Id(src).Op("==").Lit(0)).Block(
				jen.Return(jen.Lit(0), jen.Id("errDivisionByZero")),
			),
			jen.Id(dest).Op("/=").Id(src),
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown instruction %q", ErrInvalidProgram, inst.Op)
	}
}

func pushCode(value jen.Code) jen.Code {
	return jen.Id("stack").Op("=").Append(jen.Id("stack"), value)
}

func operandNames(inst exprc.Instruction) (string, string, error) {
	dest, err := regName(inst.Dest)
	if err != nil {
		return "", "", err
	}
	src, err := regName(inst.Src)
	if err != nil {
		return "", "", err
	}

	return dest, src, nil
}

func regName(reg exprc.Register) (string, error) {
	switch reg {
	case exprc.RegA:
		return "a", nil
	case exprc.RegB:
		return "b", nil
	default:
		return "", fmt.Errorf("%w: unknown register %q", ErrInvalidProgram, reg)
	}
}

func hasDivision(prog exprc.Program) bool {
	for _, inst := range prog {
		if inst.Op == exprc.OpDiv {
			return true
		}
	}

	return false
}
