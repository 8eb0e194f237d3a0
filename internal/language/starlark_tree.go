package language

import (
	"iter"
	"strings"

	"go.starlark.net/syntax"

	"polylab/internal/astview"
	"polylab/internal/backend/script"
	"polylab/internal/source"
)

type starlarkShape struct {
	c *script.Compilation
}

func (starlarkShape) Valid(n syntax.Node) bool { return !astview.IsNil(n) }

func (starlarkShape) Kind(n syntax.Node) string { return astview.RuntimeKind(n) }

func (st starlarkShape) Span(n syntax.Node) (source.Span, bool) {
	start, end := n.Span()
	return st.c.Span(start, end)
}

func (starlarkShape) Children(n syntax.Node) iter.Seq[syntax.Node] {
	return func(yield func(syntax.Node) bool) {
		stopped := false
		syntax.Walk(n, func(m syntax.Node) bool {
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

func (st starlarkShape) Attributes(n syntax.Node, a *astview.Attrs) {
	switch x := n.(type) {
	case *syntax.BinaryExpr:
		a.Value("Operator", x.Op.String())
	case *syntax.UnaryExpr:
		a.Value("Operator", x.Op.String())
	case *syntax.AssignStmt:
		a.Value("Operator", x.Op.String())
	case *syntax.BranchStmt:
		a.Value("Token", x.Token.String())
	case *syntax.Ident:
		if sp, ok := st.Span(x); ok {
			a.Token("Name", x.Name, sp)
		}
	case *syntax.Literal:
		if sp, ok := st.Span(x); ok {
			a.Token("Value", x.Raw, sp)
		}
	case *syntax.DefStmt:
		a.Flag("Public", !strings.HasPrefix(x.Name.Name, "_"))
		_, documented := script.Docstring(x.Body)
		a.Flag("Documented", documented)
	case *syntax.LoadStmt:
		names := make([]string, 0, len(x.To))
		spans := make([]source.Span, 0, len(x.To))
		for _, id := range x.To {
			names = append(names, id.Name)
			if sp, ok := st.Span(id); ok {
				spans = append(spans, sp)
			}
		}
		a.TokenList("Bindings", names, spans)
	case *syntax.Comprehension:
		a.Flag("Curly", x.Curly)
	}
}
