package language

import (
	"maps"
	"strings"

	"github.com/google/go-jsonnet/ast"

	"polylab/internal/astview"
	"polylab/internal/backend"
	"polylab/internal/backend/functional"
	"polylab/internal/jsonw"
	"polylab/internal/session"
)

// DefinesExtVar carries the preprocessor set into Jsonnet programs, joined
// by commas: std.extVar("polylab.defines").
const DefinesExtVar = "polylab.defines"

type JsonnetAdapter struct {
	maxStack int
	extVars  map[string]string
}

func NewJsonnet(s JsonnetSettings) *JsonnetAdapter {
	return &JsonnetAdapter{maxStack: s.MaxStack, extVars: maps.Clone(s.ExtVars)}
}

func (a *JsonnetAdapter) Name() string           { return LangJsonnet }
func (a *JsonnetAdapter) Family() backend.Family { return backend.FamilyFunctional }

func (a *JsonnetAdapter) baseOptions() functional.Options {
	return functional.Options{MaxStack: a.maxStack, ExtVars: maps.Clone(a.extVars)}
}

func (a *JsonnetAdapter) ConfigureSession(s *session.Session) error {
	if c, ok := s.Compilation.(*functional.Compilation); ok {
		c.SetOptions(a.baseOptions())
	} else {
		s.Install(functional.New(a.baseOptions()))
	}
	a.SetOptimization(s, s.Optimize)
	a.SetTargetOptions(s, s.Target)
	return nil
}

func (a *JsonnetAdapter) SetOptimization(s *session.Session, mode session.Optimize) {
	s.Optimize = mode
	c, ok := s.Compilation.(*functional.Compilation)
	if !ok {
		return
	}
	o := c.Options()
	o.Optimize = mode == session.Release
	if o.ExtVars == nil {
		o.ExtVars = make(map[string]string, 1)
	}
	o.ExtVars[DefinesExtVar] = strings.Join(Defines(mode), ",")
	c.SetOptions(o)
}

// SetTargetOptions only records the target: Jsonnet output is the same
// document for every target.
func (a *JsonnetAdapter) SetTargetOptions(s *session.Session, target session.TargetKind) {
	s.Target = target
}

func (a *JsonnetAdapter) ResolveParameterSpans(*session.Session, int, int) []int { return nil }

func (a *JsonnetAdapter) WriteAST(s *session.Session, w jsonw.Writer) error {
	c, ok := s.Compilation.(*functional.Compilation)
	if !ok {
		return session.ErrNoCompilation
	}
	c.Check()
	var root ast.Node
	if n := c.Syntax(); n != nil {
		root = n
	}
	astview.Serialize(root, jsonnetShape{c: c}, w)
	return nil
}

func (a *JsonnetAdapter) Sample(session.TargetKind) string {
	return jsonnetSample
}

const jsonnetSample = `local greet(name) = 'Hello, %s!' % name;

{
  greeting: greet('world'),
  defines: std.split(std.extVar('polylab.defines'), ','),
}
`
