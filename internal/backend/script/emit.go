package script

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.starlark.net/resolve"
	"go.starlark.net/syntax"

	"polylab/internal/backend"
	"polylab/internal/docxml"
	"polylab/internal/source"
)

// Kind classifies native diagnostics.
type Kind uint8

const (
	KindSyntax Kind = iota
	KindResolve
	KindEntrypoint
	KindDocstring
	KindInternal
)

type Severity uint8

const (
	Error Severity = iota
	Warning
)

// Diagnostic is the backend's own diagnostic shape: positions are line and
// rune column, not offsets.
type Diagnostic struct {
	Kind     Kind
	Severity Severity
	Msg      string
	Pos      syntax.Position
	End      syntax.Position
}

type EmitResult struct {
	Success     bool
	Diagnostics []Diagnostic
}

// Emit resolves and compiles the cached parse. The compiled program goes to
// artifact, a symbol table to symbols (optional), the XML documentation to
// docs (optional). docs is always closed before Emit returns.
func (c *Compilation) Emit(artifact, symbols io.Writer, docs io.WriteCloser) (res EmitResult, err error) {
	if docs != nil {
		defer func() {
			if cerr := docs.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
	}
	if c.src == nil {
		return EmitResult{}, ErrNoSource
	}

	if c.parseErr != nil {
		return EmitResult{Diagnostics: syntaxDiagnostics(c.parseErr)}, nil
	}

	var diags []Diagnostic
	prog, perr := c.program()
	if perr != nil {
		diags = append(diags, resolveDiagnostics(perr)...)
	}

	f := c.parsed
	if c.opts.Output == backend.OutputExecutable {
		if findDef(f, "main") == nil {
			start, end := f.Span()
			diags = append(diags, Diagnostic{
				Kind: KindEntrypoint, Severity: Error, Pos: start, End: end,
				Msg: "executable output requires a top-level def main()",
			})
		}
	}
	diags = append(diags, c.docstringWarnings(f)...)

	for _, d := range diags {
		if d.Severity == Error {
			return EmitResult{Diagnostics: diags}, nil
		}
	}

	if err := prog.Write(artifact); err != nil {
		return EmitResult{}, fmt.Errorf("failed to write program: %w", err)
	}
	if symbols != nil {
		if err := backend.WriteSymbols(symbols, c.symbolTable(f)); err != nil {
			return EmitResult{}, err
		}
	}
	if docs != nil {
		if err := docxml.Write(docs, c.documentation(f)); err != nil {
			return EmitResult{}, err
		}
	}
	return EmitResult{Success: true, Diagnostics: diags}, nil
}

// SyntaxDiagnostics reports the errors of the cached parse.
func (c *Compilation) SyntaxDiagnostics() []Diagnostic {
	if c.src == nil || c.parseErr == nil {
		return nil
	}
	return syntaxDiagnostics(c.parseErr)
}

func syntaxDiagnostics(err error) []Diagnostic {
	var se syntax.Error
	if errors.As(err, &se) {
		return []Diagnostic{{Kind: KindSyntax, Severity: Error, Msg: se.Msg, Pos: se.Pos, End: se.Pos}}
	}
	return []Diagnostic{{Kind: KindInternal, Severity: Error, Msg: err.Error()}}
}

func resolveDiagnostics(err error) []Diagnostic {
	var list resolve.ErrorList
	if errors.As(err, &list) {
		out := make([]Diagnostic, 0, len(list))
		for _, e := range list {
			out = append(out, Diagnostic{Kind: KindResolve, Severity: Error, Msg: e.Msg, Pos: e.Pos, End: e.Pos})
		}
		return out
	}
	return syntaxDiagnostics(err)
}

func findDef(f *syntax.File, name string) *syntax.DefStmt {
	for _, st := range f.Stmts {
		if def, ok := st.(*syntax.DefStmt); ok && def.Name.Name == name {
			return def
		}
	}
	return nil
}

// Docstring returns the leading string literal of a statement list.
func Docstring(stmts []syntax.Stmt) (string, bool) {
	if len(stmts) == 0 {
		return "", false
	}
	es, ok := stmts[0].(*syntax.ExprStmt)
	if !ok {
		return "", false
	}
	lit, ok := es.X.(*syntax.Literal)
	if !ok || lit.Token != syntax.STRING {
		return "", false
	}
	s, _ := lit.Value.(string)
	return strings.TrimSpace(s), true
}

func (c *Compilation) docstringWarnings(f *syntax.File) []Diagnostic {
	var out []Diagnostic
	for _, st := range f.Stmts {
		def, ok := st.(*syntax.DefStmt)
		if !ok || strings.HasPrefix(def.Name.Name, "_") {
			continue
		}
		if _, ok := Docstring(def.Body); !ok {
			start, end := def.Name.Span()
			out = append(out, Diagnostic{
				Kind: KindDocstring, Severity: Warning, Pos: start, End: end,
				Msg: fmt.Sprintf("public function %s has no docstring", def.Name.Name),
			})
		}
	}
	return out
}

func (c *Compilation) symbolTable(f *syntax.File) *backend.SymbolTable {
	t := &backend.SymbolTable{File: c.src.Path, Optimized: c.opts.Optimize}
	add := func(id *syntax.Ident, kind string) {
		start, end := id.Span()
		sp, ok := c.Span(start, end)
		if !ok {
			return
		}
		pos, ok := source.Position(int(start.Line), int(start.Col))
		if !ok {
			return
		}
		t.Symbols = append(t.Symbols, backend.Symbol{
			Name:   id.Name,
			Kind:   kind,
			Line:   pos.Line,
			Column: pos.Col,
			Start:  sp.Start,
			End:    sp.End,
		})
	}
	for _, st := range f.Stmts {
		switch st := st.(type) {
		case *syntax.DefStmt:
			add(st.Name, "def")
		case *syntax.AssignStmt:
			if id, ok := st.LHS.(*syntax.Ident); ok {
				add(id, "global")
			}
		case *syntax.LoadStmt:
			for _, id := range st.To {
				add(id, "load")
			}
		}
	}
	return t
}

func (c *Compilation) documentation(f *syntax.File) *docxml.Doc {
	module := strings.TrimSuffix(c.src.BaseName(), ".star")
	doc := docxml.New(module)
	if s, ok := Docstring(f.Stmts); ok {
		doc.Add(docxml.PrefixType+module, s)
	}
	for _, st := range f.Stmts {
		def, ok := st.(*syntax.DefStmt)
		if !ok || strings.HasPrefix(def.Name.Name, "_") {
			continue
		}
		s, _ := Docstring(def.Body)
		var params []docxml.Param
		for _, p := range def.Params {
			if name := ParamName(p); name != "" {
				params = append(params, docxml.Param{Name: name})
			}
		}
		doc.Add(docxml.PrefixFunc+module+"."+def.Name.Name, s, params...)
	}
	return doc
}

// ParamName extracts the name from a def parameter: x, x=default, *x, **x.
func ParamName(p syntax.Expr) string {
	switch p := p.(type) {
	case *syntax.Ident:
		return p.Name
	case *syntax.BinaryExpr:
		if id, ok := p.X.(*syntax.Ident); ok {
			return id.Name
		}
	case *syntax.UnaryExpr:
		if id, ok := p.X.(*syntax.Ident); ok {
			return p.Op.String() + id.Name
		}
	}
	return ""
}

// DocBuffer is a bytes.Buffer that records Close and rejects writes after it.
// Reading stays valid after Close.
type DocBuffer struct {
	bytes.Buffer
	closed bool
}

var errClosedBuffer = errors.New("write to closed documentation buffer")

func (b *DocBuffer) Write(p []byte) (int, error) {
	if b.closed {
		return 0, errClosedBuffer
	}
	return b.Buffer.Write(p)
}

func (b *DocBuffer) Close() error {
	b.closed = true
	return nil
}

// Closed reports whether Close was called.
func (b *DocBuffer) Closed() bool { return b.closed }
