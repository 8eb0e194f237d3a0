package language

import (
	"iter"
	"strconv"

	"github.com/google/go-jsonnet/ast"
	"github.com/google/go-jsonnet/toolutils"

	"polylab/internal/astview"
	"polylab/internal/backend/functional"
	"polylab/internal/source"
)

type jsonnetShape struct {
	c *functional.Compilation
}

func (jsonnetShape) Valid(n ast.Node) bool { return !astview.IsNil(n) }

func (jsonnetShape) Kind(n ast.Node) string { return astview.RuntimeKind(n) }

func (j jsonnetShape) Span(n ast.Node) (source.Span, bool) {
	loc := n.Loc()
	if loc == nil {
		return source.Span{}, false
	}
	return j.c.Span(*loc)
}

func (jsonnetShape) Children(n ast.Node) iter.Seq[ast.Node] {
	return func(yield func(ast.Node) bool) {
		for _, child := range toolutils.Children(n) {
			if !yield(child) {
				return
			}
		}
	}
}

func (jsonnetShape) Attributes(n ast.Node, a *astview.Attrs) {
	switch x := n.(type) {
	case *ast.Binary:
		a.Value("Operator", x.Op.String())
	case *ast.Unary:
		a.Value("Operator", x.Op.String())
	case *ast.Var:
		a.Value("Id", string(x.Id))
	case *ast.LiteralString:
		a.Value("Value", x.Value)
	case *ast.LiteralNumber:
		a.Value("Value", x.OriginalString)
	case *ast.LiteralBoolean:
		a.Value("Value", strconv.FormatBool(x.Value))
	case *ast.Index:
		if x.Id != nil {
			a.Value("Id", string(*x.Id))
		}
	case *ast.Local:
		names := make([]string, 0, len(x.Binds))
		for _, b := range x.Binds {
			names = append(names, string(b.Variable))
		}
		a.ValueList("Binds", names)
	case *ast.Function:
		names := make([]string, 0, len(x.Parameters))
		for _, p := range x.Parameters {
			names = append(names, string(p.Name))
		}
		a.ValueList("Parameters", names)
	}
}
