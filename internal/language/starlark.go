package language

import (
	"go.starlark.net/syntax"

	"polylab/internal/astview"
	"polylab/internal/backend"
	"polylab/internal/backend/script"
	"polylab/internal/jsonw"
	"polylab/internal/session"
)

type StarlarkAdapter struct {
	file        syntax.FileOptions
	predeclared []string
}

func NewStarlark(s StarlarkSettings) *StarlarkAdapter {
	return &StarlarkAdapter{
		file: syntax.FileOptions{
			Set:             s.Set,
			While:           s.While,
			TopLevelControl: s.TopLevelControl,
			GlobalReassign:  s.GlobalReassign,
			Recursion:       s.Recursion,
		},
		predeclared: cloneStrings(s.Predeclared),
	}
}

func (a *StarlarkAdapter) Name() string           { return LangStarlark }
func (a *StarlarkAdapter) Family() backend.Family { return backend.FamilyScripting }

func (a *StarlarkAdapter) baseOptions() script.Options {
	return script.Options{File: a.file, Predeclared: cloneStrings(a.predeclared)}
}

func (a *StarlarkAdapter) ConfigureSession(s *session.Session) error {
	if c, ok := s.Compilation.(*script.Compilation); ok {
		c.SetOptions(a.baseOptions())
	} else {
		s.Install(script.New(a.baseOptions()))
	}
	a.SetOptimization(s, s.Optimize)
	a.SetTargetOptions(s, s.Target)
	return nil
}

// SetOptimization records mode on the session. Starlark has no optimizer: the
// only effect on output is the Optimized bit of the symbol table, debug and
// release programs are byte-identical.
func (a *StarlarkAdapter) SetOptimization(s *session.Session, mode session.Optimize) {
	s.Optimize = mode
	if c, ok := s.Compilation.(*script.Compilation); ok {
		o := c.Options()
		o.Optimize = mode == session.Release
		c.SetOptions(o)
	}
}

// SetTargetOptions switches the output kind. Starlark has no unsafe subset.
func (a *StarlarkAdapter) SetTargetOptions(s *session.Session, target session.TargetKind) {
	s.Target = target
	if c, ok := s.Compilation.(*script.Compilation); ok {
		o := c.Options()
		o.Output = target.Output()
		c.SetOptions(o)
	}
}

func (a *StarlarkAdapter) ResolveParameterSpans(*session.Session, int, int) []int { return nil }

func (a *StarlarkAdapter) WriteAST(s *session.Session, w jsonw.Writer) error {
	c, ok := s.Compilation.(*script.Compilation)
	if !ok {
		return session.ErrNoCompilation
	}
	var root syntax.Node
	if f := c.Syntax(); f != nil {
		root = f
	}
	astview.Serialize(root, starlarkShape{c: c}, w)
	return nil
}

func (a *StarlarkAdapter) Sample(target session.TargetKind) string {
	if target == session.TargetExecutable {
		return starlarkExecutableSample
	}
	return starlarkLibrarySample
}

const starlarkLibrarySample = `"""Greeting helpers."""

GREETING = "Hello"

def greet(name):
    """Builds a greeting for name."""
    return GREETING + ", " + name.strip() + "!"
`

const starlarkExecutableSample = `"""Prints a greeting."""

def main():
    """Entry point."""
    print("Hello, world!")
`
