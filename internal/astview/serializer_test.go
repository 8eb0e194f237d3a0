package astview

import (
	"bytes"
	"encoding/json"
	"iter"
	"testing"

	"polylab/internal/jsonw"
	"polylab/internal/source"
)

type testNode struct {
	kind     string
	start    uint32
	end      uint32
	noSpan   bool
	op       string
	names    []string
	nameSpan []source.Span
	children []*testNode
}

type testShape struct{}

func (testShape) Valid(n *testNode) bool { return n != nil }
func (testShape) Kind(n *testNode) string { return n.kind }

func (testShape) Span(n *testNode) (source.Span, bool) {
	return source.Span{Start: n.start, End: n.end}, !n.noSpan
}

func (testShape) Children(n *testNode) iter.Seq[*testNode] {
	return func(yield func(*testNode) bool) {
		for _, c := range n.children {
			if !yield(c) {
				return
			}
		}
	}
}

func (testShape) Attributes(n *testNode, a *Attrs) {
	if n.op != "" {
		a.Value("Operator", n.op)
	}
	a.TokenList("Names", n.names, n.nameSpan)
}

type entry struct {
	Type     string   `json:"type"`
	Kind     string   `json:"kind"`
	Range    *string  `json:"range"`
	Property string   `json:"property"`
	Value    string   `json:"value"`
	Children *[]entry `json:"children"`
}

func serialize(t *testing.T, root *testNode) []entry {
	t.Helper()
	var buf bytes.Buffer
	w := jsonw.New(&buf)
	Serialize[*testNode](root, testShape{}, w)
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	var out []entry
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	return out
}

// checkWellFormed asserts the node/token/value span rules and that no
// children array is ever empty.
func checkWellFormed(t *testing.T, entries []entry) {
	t.Helper()
	for _, e := range entries {
		switch e.Type {
		case "node", "token":
			if e.Range == nil {
				t.Errorf("%s %q has no range", e.Type, e.Kind+e.Property)
			}
		case "value":
			if e.Range != nil {
				t.Errorf("value %q has a range", e.Property)
			}
		default:
			t.Errorf("unknown entry type %q", e.Type)
		}
		if e.Children != nil {
			if len(*e.Children) == 0 {
				t.Errorf("%q has an empty children array", e.Kind)
			}
			checkWellFormed(t, *e.Children)
		}
	}
}

func TestSerialize_BinaryExpression(t *testing.T) {
	root := &testNode{
		kind: "File", start: 0, end: 20,
		children: []*testNode{{
			kind: "BinaryExpr", start: 8, end: 13, op: "+",
			children: []*testNode{
				{kind: "Ident", start: 8, end: 9},
				{kind: "Ident", start: 12, end: 13},
			},
		}},
	}
	out := serialize(t, root)
	checkWellFormed(t, out)

	if len(out) != 1 || out[0].Kind != "File" || *out[0].Range != "0-20" {
		t.Fatalf("unexpected root %+v", out)
	}
	expr := (*out[0].Children)[0]
	kids := *expr.Children
	if len(kids) != 3 {
		t.Fatalf("BinaryExpr has %d children, want 3", len(kids))
	}
	if kids[0].Type != "value" || kids[0].Property != "Operator" || kids[0].Value != "+" {
		t.Errorf("first child = %+v, want operator value", kids[0])
	}
	for _, k := range kids[1:] {
		if k.Type != "node" || k.Children != nil {
			t.Errorf("operand = %+v, want leaf node without children", k)
		}
	}
}

func TestSerialize_TokenListUnion(t *testing.T) {
	tests := []struct {
		name  string
		spans []source.Span
		want  string
	}{
		{"single", []source.Span{{Start: 5, End: 9}}, "5-9"},
		{"unordered", []source.Span{{Start: 20, End: 24}, {Start: 3, End: 7}, {Start: 11, End: 30}}, "3-30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			names := make([]string, len(tt.spans))
			for i := range names {
				names[i] = "I"
			}
			out := serialize(t, &testNode{kind: "Type", end: 40, names: names, nameSpan: tt.spans})
			checkWellFormed(t, out)
			tok := (*out[0].Children)[0]
			if tok.Type != "token" || *tok.Range != tt.want {
				t.Errorf("token = %+v, want range %s", tok, tt.want)
			}
		})
	}

	out := serialize(t, &testNode{kind: "Type", end: 40, names: nil})
	if out[0].Children != nil {
		t.Errorf("empty list must write nothing, got %+v", *out[0].Children)
	}
}

func TestSerialize_NilAndFallbackSpans(t *testing.T) {
	root := &testNode{
		kind: "Block", start: 2, end: 10,
		children: []*testNode{nil, {kind: "Synthetic", noSpan: true}, nil},
	}
	out := serialize(t, root)
	checkWellFormed(t, out)

	kids := *out[0].Children
	if len(kids) != 1 {
		t.Fatalf("got %d children, want 1 (nil entries skipped)", len(kids))
	}
	if *kids[0].Range != "2-10" {
		t.Errorf("span-less child range = %s, want parent range 2-10", *kids[0].Range)
	}

	onlyNil := &testNode{kind: "Block", children: []*testNode{nil}}
	if out := serialize(t, onlyNil); out[0].Children != nil {
		t.Error("children array opened for a node whose only child is nil")
	}

	if out := serialize(t, nil); len(out) != 0 {
		t.Errorf("nil root produced %d entries", len(out))
	}
}

func TestRuntimeKind(t *testing.T) {
	if got := RuntimeKind(&testNode{}); got != "testNode" {
		t.Errorf("RuntimeKind() = %q", got)
	}
	var n *testNode
	if !IsNil(n) || IsNil(testNode{}) {
		t.Error("IsNil mismatch")
	}
}
