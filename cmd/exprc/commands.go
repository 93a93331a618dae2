package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/shibukawa/exprc"
	"github.com/shibukawa/exprc/asm"
	"github.com/shibukawa/exprc/codegen"
	"github.com/shibukawa/exprc/mdcheck"
	"github.com/shibukawa/exprc/parser"
	"github.com/shibukawa/exprc/vm"
)

// Sentinel errors
var (
	ErrNoExpression          = errors.New("no expression given: pass one as an argument, via --file, or on stdin")
	ErrExpressionSourceClash = errors.New("pass the expression either as an argument or via --file, not both")
	ErrUnknownFormat         = errors.New("unknown output format")
	ErrChecksFailed          = errors.New("document checks failed")
)

// CompileCmd represents the compile command
type CompileCmd struct {
	Expression string `arg:"" optional:"" help:"Expression to compile (reads stdin when omitted)"`
	File       string `short:"f" help:"Read the expression from a file" type:"path"`
	Format     string `help:"Output format (asm or json), overriding the configuration"`
	Pretty     bool   `help:"Indent JSON output"`
	Output     string `short:"o" help:"Output file (default: stdout)" type:"path"`
}

func (cmd *CompileCmd) Run(ctx *Context) error {
	config, err := exprc.LoadConfig(ctx.Config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	input, err := readExpression(cmd.Expression, cmd.File)
	if err != nil {
		return err
	}

	prog, err := compileInput(ctx, input, config)
	if err != nil {
		return err
	}

	format := config.Output.Format
	if cmd.Format != "" {
		format = cmd.Format
	}
	pretty := config.Output.Pretty || cmd.Pretty

	var buf bytes.Buffer

	switch format {
	case exprc.FormatAsm:
		buf.WriteString(asm.Format(prog))
	case exprc.FormatJSON:
		if err := prog.WriteJSON(&buf, pretty); err != nil {
			return fmt.Errorf("failed to encode program: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q (expected %q or %q)", ErrUnknownFormat, format, exprc.FormatAsm, exprc.FormatJSON)
	}

	if err := writeOutput(cmd.Output, buf.Bytes()); err != nil {
		return err
	}

	if ctx.Verbose && cmd.Output != "" {
		color.Blue("Wrote %d instructions to %s", len(prog), cmd.Output)
	}

	return nil
}

// RunCmd represents the run command
type RunCmd struct {
	Expression string `arg:"" optional:"" help:"Expression to evaluate (reads stdin when omitted)"`
	File       string `short:"f" help:"Read the expression from a file" type:"path"`
	Trace      bool   `help:"Print each instruction as it executes"`
}

func (cmd *RunCmd) Run(ctx *Context) error {
	config, err := exprc.LoadConfig(ctx.Config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	input, err := readExpression(cmd.Expression, cmd.File)
	if err != nil {
		return err
	}

	prog, err := compileInput(ctx, input, config)
	if err != nil {
		return err
	}

	return executeProgram(prog, cmd.Trace)
}

// ExecCmd represents the exec command
type ExecCmd struct {
	File  string `arg:"" help:"Program file, assembly text or JSON (picked by extension)" type:"existingfile"`
	Trace bool   `help:"Print each instruction as it executes"`
}

func (cmd *ExecCmd) Run(ctx *Context) error {
	data, err := os.ReadFile(cmd.File)
	if err != nil {
		return fmt.Errorf("failed to read program file: %w", err)
	}

	var prog exprc.Program
	if strings.EqualFold(filepath.Ext(cmd.File), ".json") {
		if err := json.Unmarshal(data, &prog); err != nil {
			return fmt.Errorf("failed to decode program: %w", err)
		}
	} else {
		prog, err = asm.Parse(string(data))
		if err != nil {
			return err
		}
	}

	if ctx.Verbose {
		color.Blue("Loaded %d instructions from %s", len(prog), cmd.File)
	}

	return executeProgram(prog, cmd.Trace)
}

// GenCmd represents the gen command
type GenCmd struct {
	Expression string `arg:"" optional:"" help:"Expression to compile (reads stdin when omitted)"`
	File       string `short:"f" help:"Read the expression from a file" type:"path"`
	Package    string `help:"Package name of the generated file, overriding the configuration"`
	Function   string `help:"Function name of the generated file, overriding the configuration"`
	Output     string `short:"o" help:"Output file (default: stdout)" type:"path"`
}

func (cmd *GenCmd) Run(ctx *Context) error {
	config, err := exprc.LoadConfig(ctx.Config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	input, err := readExpression(cmd.Expression, cmd.File)
	if err != nil {
		return err
	}

	prog, err := compileInput(ctx, input, config)
	if err != nil {
		return err
	}

	pkg := config.Codegen.Package
	if cmd.Package != "" {
		pkg = cmd.Package
	}
	function := config.Codegen.Function
	if cmd.Function != "" {
		function = cmd.Function
	}

	src, err := codegen.Generate(prog, codegen.Options{
		Package:  pkg,
		Function: function,
		Source:   input,
	})
	if err != nil {
		return fmt.Errorf("code generation failed: %w", err)
	}

	if err := writeOutput(cmd.Output, []byte(src)); err != nil {
		return err
	}

	if ctx.Verbose && cmd.Output != "" {
		color.Blue("Generated %s", cmd.Output)
	}

	return nil
}

// CheckCmd represents the check command
type CheckCmd struct {
	Files            []string `arg:"" help:"Markdown documents to check" type:"existingfile"`
	StrictWhitespace bool     `help:"Reject whitespace inside expressions"`
}

func (cmd *CheckCmd) Run(ctx *Context) error {
	config, err := exprc.LoadConfig(ctx.Config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Documents are prose, so whitespace inside expressions is allowed
	// unless explicitly disabled.
	opts := parserOptions(config)
	opts.SkipWhitespace = !cmd.StrictWhitespace

	total := 0
	failed := 0

	for _, file := range cmd.Files {
		results, err := cmd.checkFile(ctx, file, opts)
		if err != nil {
			return err
		}
		total += len(results)
		failed += mdcheck.CountFailures(results)
	}

	if !ctx.Quiet {
		if failed == 0 {
			color.Green("%d checks passed", total)
		} else {
			color.Red("%d of %d checks failed", failed, total)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrChecksFailed, failed, total)
	}

	return nil
}

func (cmd *CheckCmd) checkFile(ctx *Context, file string, opts parser.Options) ([]mdcheck.Result, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	results, err := mdcheck.Check(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	for _, r := range results {
		switch {
		case r.Err != nil:
			if !ctx.Quiet {
				color.Red("%s:%d: %s: %v", file, r.Line, r.Expr, r.Err)
			}
		case r.Mismatch:
			if !ctx.Quiet {
				color.Red("%s:%d: %s => %d, want %d", file, r.Line, r.Expr, r.Value, *r.Expected)
			}
		default:
			if ctx.Verbose {
				color.Green("%s:%d: %s => %d", file, r.Line, r.Expr, r.Value)
			}
		}
	}

	return results, nil
}

// compileInput compiles one expression, printing the caret diagnostic before
// the error bubbles up to the generic handler in main.
func compileInput(ctx *Context, input string, config *exprc.Config) (exprc.Program, error) {
	prog, err := parser.CompileWithOptions(input, parserOptions(config))
	if err != nil {
		if !ctx.Quiet {
			var perr *exprc.ParseError
			if errors.As(err, &perr) {
				color.Red("%s", perr.DetailedError())
			}
		}
		return nil, err
	}

	return prog, nil
}

func parserOptions(config *exprc.Config) parser.Options {
	return parser.Options{
		SkipWhitespace: config.Parser.SkipWhitespace,
		MaxDepth:       config.Parser.MaxDepth,
	}
}

func executeProgram(prog exprc.Program, trace bool) error {
	machine := vm.New()
	if trace {
		machine.Trace = os.Stderr
	}

	result, err := machine.Run(prog)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}

	fmt.Println(result)

	return nil
}

// readExpression resolves the expression from an argument, a file, or stdin.
// Outer whitespace is trimmed here; whitespace inside the expression is
// governed by the parser options.
func readExpression(arg, file string) (string, error) {
	if arg != "" && file != "" {
		return "", ErrExpressionSourceClash
	}

	var raw string

	switch {
	case arg != "":
		raw = arg
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read expression file: %w", err)
		}
		raw = string(data)
	default:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		raw = string(data)
	}

	expr := strings.TrimSpace(raw)
	if expr == "" {
		return "", ErrNoExpression
	}

	return expr, nil
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	return nil
}
