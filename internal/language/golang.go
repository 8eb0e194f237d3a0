package language

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/version"

	"polylab/internal/astview"
	"polylab/internal/backend"
	"polylab/internal/backend/gotypes"
	"polylab/internal/diag"
	"polylab/internal/jsonw"
	"polylab/internal/session"
	"polylab/internal/source"
)

// GoAdapter serves every Go language level through the managed family.
type GoAdapter struct {
	name     string
	version  string
	features []string
	refs     *gotypes.References
}

// NewGo validates goVersion once; an invalid version is a configuration
// error.
func NewGo(name, goVersion string, features []string, refs *gotypes.References) (*GoAdapter, error) {
	if !version.IsValid(goVersion) {
		return nil, fmt.Errorf("%w: %s: invalid Go version %q", ErrInvalidConfig, name, goVersion)
	}
	if refs == nil {
		return nil, fmt.Errorf("%w: %s: no references", ErrInvalidConfig, name)
	}
	return &GoAdapter{
		name:     name,
		version:  version.Lang(goVersion),
		features: cloneStrings(features),
		refs:     refs,
	}, nil
}

func (a *GoAdapter) Name() string           { return a.name }
func (a *GoAdapter) Family() backend.Family { return backend.FamilyManaged }

// GoVersion is the language level compilations are checked at.
func (a *GoAdapter) GoVersion() string { return a.version }

func (a *GoAdapter) baseOptions() gotypes.Options {
	return gotypes.Options{
		GoVersion:  a.version,
		Features:   cloneStrings(a.features),
		References: a.refs,
		// doc comments are optional for snippets
		Suppress: []diag.Code{diag.EmitMissingDoc},
	}
}

func (a *GoAdapter) ConfigureSession(s *session.Session) error {
	if c, ok := s.Compilation.(*gotypes.Compilation); ok {
		c.SetOptions(a.baseOptions())
	} else {
		s.Install(gotypes.New(a.baseOptions()))
	}
	a.SetOptimization(s, s.Optimize)
	a.SetTargetOptions(s, s.Target)
	return nil
}

func (a *GoAdapter) SetOptimization(s *session.Session, mode session.Optimize) {
	s.Optimize = mode
	c, ok := s.Compilation.(*gotypes.Compilation)
	if !ok {
		return
	}
	o := c.Options()
	o.Optimize = mode == session.Release
	o.Defines = Defines(mode)
	c.SetOptions(o)
}

func (a *GoAdapter) SetTargetOptions(s *session.Session, target session.TargetKind) {
	s.Target = target
	c, ok := s.Compilation.(*gotypes.Compilation)
	if !ok {
		return
	}
	o := c.Options()
	o.Output = target.Output()
	o.AllowUnsafe = unsafeAllowed(target)
	c.SetOptions(o)
}

func (a *GoAdapter) ResolveParameterSpans(s *session.Session, line, column int) []int {
	c, ok := s.Compilation.(*gotypes.Compilation)
	if !ok || c.Source() == nil || line < 1 || column < 1 {
		return nil
	}
	fset, f := c.Syntax()
	if f == nil {
		return nil
	}
	pos, ok := source.Position(line, column)
	if !ok {
		return nil
	}
	off, ok := c.Source().Offset(pos.Line, pos.Col)
	if !ok {
		return nil
	}
	fn := innermostFunc(f, c.Pos(off))
	if fn == nil || fn.Params == nil {
		return nil
	}
	lines := make([]int, 0, fn.Params.NumFields())
	for _, field := range fn.Params.List {
		if len(field.Names) == 0 {
			lines = append(lines, fset.Position(field.Type.Pos()).Line)
			continue
		}
		for _, name := range field.Names {
			lines = append(lines, fset.Position(name.Pos()).Line)
		}
	}
	return lines
}

// innermostFunc returns the type of the FuncDecl whose range holds pos.
// Function literals are not declarations: a cursor inside a closure belongs
// to the enclosing FuncDecl.
func innermostFunc(f *ast.File, pos token.Pos) *ast.FuncType {
	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if ok && pos >= fn.Pos() && pos <= fn.End() {
			return fn.Type
		}
	}
	return nil
}

func (a *GoAdapter) WriteAST(s *session.Session, w jsonw.Writer) error {
	c, ok := s.Compilation.(*gotypes.Compilation)
	if !ok {
		return session.ErrNoCompilation
	}
	_, f := c.Syntax()
	var root ast.Node
	if f != nil {
		root = f
	}
	astview.Serialize(root, goShape{c: c}, w)
	return nil
}

func (a *GoAdapter) Sample(target session.TargetKind) string {
	if target == session.TargetExecutable {
		return goExecutableSample
	}
	return goLibrarySample
}

const goLibrarySample = `package demo

import "strings"

// Greeting is returned by Greet.
const Greeting = "Hello"

// Greet builds a greeting for name.
func Greet(name string) string {
	return Greeting + ", " + strings.TrimSpace(name) + "!"
}
`

const goExecutableSample = `package main

import "fmt"

func main() {
	fmt.Println("Hello, world!")
}
`
