package script

import (
	"bytes"
	"strings"
	"testing"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"polylab/internal/backend"
	"polylab/internal/docxml"
	"polylab/internal/source"
)

func newCompilation(t *testing.T, src string, opts Options) *Compilation {
	t.Helper()
	fs := source.NewFileSet()
	c := New(opts)
	c.SetSource(fs.Get(fs.AddVirtual("demo.star", []byte(src))))
	return c
}

const documented = `"""Demo module."""

def greet(name, greeting = "hi", *rest, **kw):
    """Greets someone."""
    return greeting + " " + name

def main():
    """Entry point."""
    print(greet("you"))
`

func TestEmit_LibraryClosesDocs(t *testing.T) {
	c := newCompilation(t, documented, Options{})
	var art, sym bytes.Buffer
	docs := &DocBuffer{}
	res, err := c.Emit(&art, &sym, docs)
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	if !res.Success || len(res.Diagnostics) != 0 {
		t.Fatalf("Emit() = %+v", res)
	}
	if !docs.Closed() {
		t.Fatal("docs writer was not closed")
	}
	if art.Len() == 0 {
		t.Fatal("empty artifact")
	}
	if _, err := starlark.CompiledProgram(bytes.NewReader(art.Bytes())); err != nil {
		t.Fatalf("artifact does not load: %v", err)
	}

	table, err := backend.ReadSymbols(&sym)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Symbols) != 2 || table.Symbols[0].Name != "greet" || table.Symbols[0].Line != 3 {
		t.Errorf("symbols = %+v", table.Symbols)
	}

	doc, err := docxml.Read(bytes.NewReader(docs.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	m, ok := doc.Lookup("M:demo.greet")
	if !ok || m.Summary != "Greets someone." || len(m.Params) != 4 || m.Params[2].Name != "*rest" {
		t.Errorf("greet member = %+v, %v", m, ok)
	}
	if m, ok := doc.Lookup("T:demo"); !ok || m.Summary != "Demo module." {
		t.Errorf("module member = %+v, %v", m, ok)
	}
}

func TestEmit_SyntaxErrorStillClosesDocs(t *testing.T) {
	c := newCompilation(t, "def broken(:\n    pass\n", Options{})
	docs := &DocBuffer{}
	var art bytes.Buffer
	res, err := c.Emit(&art, nil, docs)
	if err != nil {
		t.Fatal(err)
	}
	if res.Success || !docs.Closed() || art.Len() != 0 {
		t.Fatalf("res = %+v closed = %v art = %d", res, docs.Closed(), art.Len())
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Kind != KindSyntax || res.Diagnostics[0].Pos.Line != 1 {
		t.Errorf("diagnostics = %+v", res.Diagnostics)
	}
}

func TestEmit_ResolveErrors(t *testing.T) {
	src := "def f():\n    \"\"\"Doc.\"\"\"\n    return undefined_a + undefined_b\n"
	c := newCompilation(t, src, Options{})
	res, err := c.Emit(&bytes.Buffer{}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Fatal("expected failure")
	}
	var n int
	for _, d := range res.Diagnostics {
		if d.Kind == KindResolve {
			n++
		}
	}
	if n != 2 {
		t.Errorf("resolve diagnostics = %+v", res.Diagnostics)
	}
}

func TestEmit_PredeclaredNames(t *testing.T) {
	src := "x = ctx\n"
	c := newCompilation(t, src, Options{})
	res, _ := c.Emit(&bytes.Buffer{}, nil, nil)
	if res.Success {
		t.Fatal("ctx should not resolve without predeclaration")
	}

	c.SetOptions(Options{Predeclared: []string{"ctx"}})
	res, err := c.Emit(&bytes.Buffer{}, nil, nil)
	if err != nil || !res.Success {
		t.Fatalf("Emit() = %+v, %v", res, err)
	}
}

func TestEmit_ExecutableNeedsMain(t *testing.T) {
	c := newCompilation(t, "def helper():\n    \"\"\"Doc.\"\"\"\n    pass\n", Options{Output: backend.OutputExecutable})
	res, err := c.Emit(&bytes.Buffer{}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Success || len(res.Diagnostics) != 1 || res.Diagnostics[0].Kind != KindEntrypoint {
		t.Errorf("Emit() = %+v", res)
	}

	c.SetOptions(Options{Output: backend.OutputLibrary})
	if res, _ := c.Emit(&bytes.Buffer{}, nil, nil); !res.Success {
		t.Errorf("library Emit() = %+v", res)
	}
}

func TestEmit_MissingDocstringIsWarning(t *testing.T) {
	c := newCompilation(t, "def shout(s):\n    return s.upper()\n\ndef _quiet(s):\n    return s\n", Options{})
	res, err := c.Emit(&bytes.Buffer{}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || len(res.Diagnostics) != 1 {
		t.Fatalf("Emit() = %+v", res)
	}
	d := res.Diagnostics[0]
	if d.Kind != KindDocstring || d.Severity != Warning || !strings.Contains(d.Msg, "shout") {
		t.Errorf("diagnostic = %+v", d)
	}
}

func TestEmit_OptimizeOnlyMarksSymbols(t *testing.T) {
	emit := func(optimize bool) ([]byte, *backend.SymbolTable) {
		c := newCompilation(t, documented, Options{Optimize: optimize})
		var art, sym bytes.Buffer
		if res, err := c.Emit(&art, &sym, nil); err != nil || !res.Success {
			t.Fatalf("Emit(optimize=%v) = %+v, %v", optimize, res, err)
		}
		table, err := backend.ReadSymbols(&sym)
		if err != nil {
			t.Fatal(err)
		}
		return art.Bytes(), table
	}
	debugArt, debugSym := emit(false)
	releaseArt, releaseSym := emit(true)
	if !bytes.Equal(debugArt, releaseArt) {
		t.Error("release program differs from debug program")
	}
	if debugSym.Optimized || !releaseSym.Optimized {
		t.Errorf("Optimized = %v/%v, want false/true", debugSym.Optimized, releaseSym.Optimized)
	}
}

func TestSetOptions_ReparsesOnlyOnDialectChange(t *testing.T) {
	src := "x = 1\nwhile x < 3:\n    x += 1\n"
	c := newCompilation(t, src, Options{})
	if res, _ := c.Emit(&bytes.Buffer{}, nil, nil); res.Success {
		t.Fatal("top-level while should not resolve by default")
	}
	c.SetOptions(Options{Optimize: true})
	if c.Parses() != 1 {
		t.Errorf("Parses() = %d after optimize change", c.Parses())
	}
	c.SetOptions(Options{File: fileOptionsWithWhile()})
	if c.Parses() != 2 {
		t.Errorf("Parses() = %d after dialect change", c.Parses())
	}
	if res, err := c.Emit(&bytes.Buffer{}, nil, nil); err != nil || !res.Success {
		t.Errorf("Emit() = %+v, %v", res, err)
	}
}

func TestEmit_NoSource(t *testing.T) {
	docs := &DocBuffer{}
	if _, err := New(Options{}).Emit(&bytes.Buffer{}, nil, docs); err != ErrNoSource {
		t.Errorf("err = %v", err)
	}
	if !docs.Closed() {
		t.Error("docs not closed")
	}
}

func fileOptionsWithWhile() (o syntax.FileOptions) {
	o.While = true
	o.TopLevelControl = true
	o.GlobalReassign = true
	return o
}
