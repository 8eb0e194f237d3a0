package language

import (
	"go/ast"
	"go/types"
	"iter"

	"polylab/internal/astview"
	"polylab/internal/backend/gotypes"
	"polylab/internal/source"
)

type goShape struct {
	c *gotypes.Compilation
}

func (goShape) Valid(n ast.Node) bool { return !astview.IsNil(n) }

func (goShape) Kind(n ast.Node) string { return astview.RuntimeKind(n) }

func (g goShape) Span(n ast.Node) (source.Span, bool) {
	return g.c.Span(n.Pos(), n.End())
}

// Children yields the direct children of n in go/ast walk order.
func (goShape) Children(n ast.Node) iter.Seq[ast.Node] {
	return func(yield func(ast.Node) bool) {
		stopped := false
		ast.Inspect(n, func(m ast.Node) bool {
			if stopped || m == nil {
				return false
			}
			if m == n {
				return true
			}
			if !yield(m) {
				stopped = true
			}
			return false
		})
	}
}

func (g goShape) Attributes(n ast.Node, a *astview.Attrs) {
	switch x := n.(type) {
	case *ast.BinaryExpr:
		a.Value("Operator", x.Op.String())
	case *ast.UnaryExpr:
		a.Value("Operator", x.Op.String())
	case *ast.AssignStmt:
		a.Value("Operator", x.Tok.String())
	case *ast.IncDecStmt:
		a.Value("Operator", x.Tok.String())
	case *ast.BranchStmt:
		a.Value("Token", x.Tok.String())
	case *ast.GenDecl:
		a.Value("Token", x.Tok.String())
	case *ast.Ident:
		if sp, ok := g.Span(x); ok {
			a.Token("Name", x.Name, sp)
		}
	case *ast.BasicLit:
		if sp, ok := g.Span(x); ok {
			a.Token("Value", x.Value, sp)
		}
	case *ast.FuncDecl:
		a.Flag("Exported", x.Name.IsExported())
		a.Flag("Method", x.Recv != nil)
	case *ast.StructType:
		g.embeds(x.Fields, a)
	case *ast.InterfaceType:
		g.embeds(x.Methods, a)
	}
}

// embeds writes the embedded types of a field list as one list attribute.
func (g goShape) embeds(fields *ast.FieldList, a *astview.Attrs) {
	if fields == nil {
		return
	}
	var names []string
	var spans []source.Span
	for _, f := range fields.List {
		if len(f.Names) != 0 {
			continue
		}
		names = append(names, types.ExprString(f.Type))
		if sp, ok := g.Span(f.Type); ok {
			spans = append(spans, sp)
		}
	}
	a.TokenList("Embeds", names, spans)
}
