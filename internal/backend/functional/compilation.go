// Package functional is the functional family: Jsonnet programs checked by
// parsing and compiled by evaluating them with go-jsonnet into a JSON
// document written to a named output file.
package functional

import (
	"errors"
	"fmt"

	"github.com/google/go-jsonnet"
	"github.com/google/go-jsonnet/ast"
	"github.com/google/go-jsonnet/formatter"

	"polylab/internal/backend"
	"polylab/internal/diag"
	"polylab/internal/source"
)

var ErrNoSource = errors.New("compilation has no source")

// Compilation keeps the source and the results of the last Check.
type Compilation struct {
	src  *source.File
	opts Options

	raw       ast.Node
	program   ast.Node
	checkDiag []diag.Diagnostic
	checkedAt [32]byte
	checks    int
}

func New(opts Options) *Compilation {
	return &Compilation{opts: opts.Clone()}
}

func (c *Compilation) Family() backend.Family { return backend.FamilyFunctional }

func (c *Compilation) SetSource(file *source.File) {
	c.src = file
}

func (c *Compilation) Source() *source.File { return c.src }

func (c *Compilation) Options() Options { return c.opts.Clone() }

func (c *Compilation) SetOptions(o Options) { c.opts = o.Clone() }

// Check parses the source twice: once keeping surface syntax for tree views,
// once desugared for evaluation. Results are cached per source hash.
func (c *Compilation) Check() []diag.Diagnostic {
	if c.src == nil {
		return nil
	}
	if c.checks > 0 && c.checkedAt == c.src.Hash {
		return c.checkDiag
	}
	c.checks++
	c.checkedAt = c.src.Hash
	c.raw, c.program, c.checkDiag = nil, nil, nil

	text := string(c.src.Content)
	raw, _, err := formatter.SnippetToRawAST(c.src.Path, text)
	if err != nil {
		c.checkDiag = []diag.Diagnostic{c.staticDiagnostic(err)}
		return c.checkDiag
	}
	c.raw = raw
	prog, err := jsonnet.SnippetToAST(c.src.Path, text)
	if err != nil {
		c.checkDiag = []diag.Diagnostic{c.staticDiagnostic(err)}
		return c.checkDiag
	}
	c.program = prog
	return nil
}

// Syntax returns the undesugared tree of the last Check.
func (c *Compilation) Syntax() ast.Node { return c.raw }

// Program returns the desugared tree used for evaluation.
func (c *Compilation) Program() ast.Node { return c.program }

// Checks counts parses actually performed.
func (c *Compilation) Checks() int { return c.checks }

type located interface {
	Loc() ast.LocationRange
}

func (c *Compilation) staticDiagnostic(err error) diag.Diagnostic {
	var le located
	if errors.As(err, &le) {
		loc := le.Loc()
		sp, _ := c.Span(loc)
		return diag.NewError(diag.SynParse, sp, staticMessage(err, loc))
	}
	return diag.NewError(diag.SynParse, c.fileStart(), err.Error())
}

// staticMessage drops the "file:line:col" prefix go-jsonnet puts in front.
func staticMessage(err error, loc ast.LocationRange) string {
	msg := err.Error()
	prefix := fmt.Sprintf("%s ", loc.String())
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}

func (c *Compilation) fileStart() source.Span {
	if c.src == nil {
		return source.Span{}
	}
	return source.Span{File: c.src.ID}
}

// Span converts a go-jsonnet range (1-based line, 1-based byte column) to a
// byte span of the source.
func (c *Compilation) Span(loc ast.LocationRange) (source.Span, bool) {
	if c.src == nil || !loc.IsSet() {
		return c.fileStart(), false
	}
	begin, ok := source.Position(loc.Begin.Line, loc.Begin.Column)
	if !ok {
		return c.fileStart(), false
	}
	start, ok := c.src.Offset(begin.Line, begin.Col)
	if !ok {
		return c.fileStart(), false
	}
	end := start
	if last, ok := source.Position(loc.End.Line, loc.End.Column); ok {
		if off, ok := c.src.Offset(last.Line, last.Col); ok && off >= start {
			end = off
		}
	}
	return source.Span{File: c.src.ID, Start: start, End: end}, true
}
