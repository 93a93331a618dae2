// Package mdcheck extracts arithmetic expressions from Markdown documents
// and verifies them against the compiler and the machine. Expressions live in
// fenced code blocks tagged "expr", one expression per line, optionally
// paired with the value it must evaluate to:
//
//	```expr
//	2+4       => 6
//	7+3*(2-1) => 10
//	(5)
//	```
//
// A line without "=>" is still compiled and executed, it just has nothing to
// compare against. Blank lines and lines starting with '#' are skipped.
package mdcheck

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/shibukawa/exprc"
	"github.com/shibukawa/exprc/parser"
	"github.com/shibukawa/exprc/vm"
)

// ErrBadExpectation is returned when the text after "=>" is not an integer.
var ErrBadExpectation = errors.New("bad expected value")

// Case is one expression line from an expr code block.
type Case struct {
	Expr     string
	Expected *int64 // nil when the line carries no expectation
	Line     int    // 1-based line number in the source document
}

// Result is the outcome of checking one case.
type Result struct {
	Case
	Program  exprc.Program // nil when compilation failed
	Value    int64         // machine result, meaningful when Err is nil
	Err      error         // compile or execution failure
	Mismatch bool          // value differed from the expectation
}

// Failed reports whether the case did not check out.
func (r Result) Failed() bool {
	return r.Err != nil || r.Mismatch
}

// CountFailures returns the number of failed results.
func CountFailures(results []Result) int {
	count := 0
	for _, r := range results {
		if r.Failed() {
			count++
		}
	}

	return count
}

// Scan extracts the expression cases from a Markdown document without
// checking them.
func Scan(r io.Reader) ([]Case, error) {
	source, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
		),
	)
	doc := md.Parser().Parse(text.NewReader(source))

	var cases []Case

	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		codeBlock, ok := n.(*ast.FencedCodeBlock)
		if !ok || !isExprCodeBlock(codeBlock, source) {
			return ast.WalkContinue, nil
		}

		blockCases, err := extractCases(codeBlock, source)
		if err != nil {
			return ast.WalkStop, err
		}
		cases = append(cases, blockCases...)

		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	return cases, nil
}

// Check scans the document and verifies every case: each expression must
// compile and execute, and where an expectation is present the machine result
// must match it.
func Check(r io.Reader, opts parser.Options) ([]Result, error) {
	cases, err := Scan(r)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(cases))
	for _, c := range cases {
		results = append(results, runCase(c, opts))
	}

	return results, nil
}

func runCase(c Case, opts parser.Options) Result {
	result := Result{Case: c}

	prog, err := parser.CompileWithOptions(c.Expr, opts)
	if err != nil {
		result.Err = err
		return result
	}
	result.Program = prog

	value, err := vm.Run(prog)
	if err != nil {
		result.Err = err
		return result
	}
	result.Value = value

	if c.Expected != nil && value != *c.Expected {
		result.Mismatch = true
	}

	return result
}

// isExprCodeBlock checks if a fenced code block is marked as expr
func isExprCodeBlock(codeBlock *ast.FencedCodeBlock, source []byte) bool {
	if codeBlock.Info == nil {
		return false
	}
	segment := codeBlock.Info.Segment
	info := string(source[segment.Start:segment.Stop])

	return strings.TrimSpace(strings.ToLower(info)) == "expr"
}

// extractCases reads the expression lines of one code block.
func extractCases(codeBlock *ast.FencedCodeBlock, source []byte) ([]Case, error) {
	var cases []Case

	lines := codeBlock.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		raw := strings.TrimRight(string(source[segment.Start:segment.Stop]), "\n")
		lineNo := bytes.Count(source[:segment.Start], []byte("\n")) + 1

		c, ok, err := parseCaseLine(raw, lineNo)
		if err != nil {
			return nil, err
		}
		if ok {
			cases = append(cases, c)
		}
	}

	return cases, nil
}

func parseCaseLine(line string, lineNo int) (Case, bool, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return Case{}, false, nil
	}

	expr, expectation, found := strings.Cut(trimmed, "=>")

	c := Case{Expr: strings.TrimSpace(expr), Line: lineNo}
	if found {
		value, err := strconv.ParseInt(strings.TrimSpace(expectation), 10, 64)
		if err != nil {
			return Case{}, false, fmt.Errorf("%w on line %d: %q", ErrBadExpectation, lineNo, strings.TrimSpace(expectation))
		}
		c.Expected = &value
	}

	return c, true, nil
}
