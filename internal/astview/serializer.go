package astview

import (
	"strconv"
	"strings"

	"polylab/internal/jsonw"
	"polylab/internal/source"
)

const (
	kindNode  = "node"
	kindToken = "token"
	kindValue = "value"

	listSeparator = ", "
)

// frame tracks whether the "children" array of the node being written has
// been opened.
type frame struct {
	opened bool
}

func (f *frame) open(w jsonw.Writer) {
	if f.opened {
		return
	}
	w.WritePropertyStartArray("children")
	f.opened = true
}

func (f *frame) close(w jsonw.Writer) {
	if f.opened {
		w.WriteEndArray()
	}
}

// Serialize writes root and everything below it to w in one depth-first,
// pre-order pass. An invalid root yields an empty top-level array.
func Serialize[N any](root N, shape Shape[N], w jsonw.Writer) {
	s := serializer[N]{shape: shape, w: w}
	w.WriteStartArray()
	s.visit(root, nil, source.Span{})
	w.WriteEndArray()
}

type serializer[N any] struct {
	shape Shape[N]
	w     jsonw.Writer
}

func (s *serializer[N]) visit(n N, parent *frame, parentSpan source.Span) {
	if !s.shape.Valid(n) {
		return
	}
	sp, ok := s.shape.Span(n)
	if !ok {
		sp = parentSpan
	}

	if parent != nil {
		parent.open(s.w)
	}
	s.w.WriteStartObject()
	s.w.WriteProperty("type", kindNode)
	s.w.WriteProperty("kind", s.shape.Kind(n))
	writeRange(s.w, sp)

	self := &frame{}
	s.shape.Attributes(n, &Attrs{w: s.w, frame: self})
	for child := range s.shape.Children(n) {
		s.visit(child, self, sp)
	}
	self.close(s.w)
	s.w.WriteEndObject()
}

func writeRange(w jsonw.Writer, sp source.Span) {
	w.WritePropertyName("range")
	w.WriteValueFromParts(
		strconv.FormatUint(uint64(sp.Start), 10),
		"-",
		strconv.FormatUint(uint64(sp.End), 10),
	)
}

// Attrs receives the scalar leaves of one node. Every leaf lands in that
// node's children array, opened on first use.
type Attrs struct {
	w     jsonw.Writer
	frame *frame
}

// Value writes an unspanned leaf.
func (a *Attrs) Value(property, value string) {
	a.frame.open(a.w)
	a.w.WriteStartObject()
	a.w.WriteProperty("type", kindValue)
	a.w.WriteProperty("property", property)
	a.w.WriteProperty("value", value)
	a.w.WriteEndObject()
}

// Flag writes property=true for a set flag and nothing otherwise.
func (a *Attrs) Flag(property string, set bool) {
	if set {
		a.Value(property, "true")
	}
}

// Token writes a leaf tied to a source span.
func (a *Attrs) Token(property, value string, sp source.Span) {
	a.frame.open(a.w)
	a.w.WriteStartObject()
	a.w.WriteProperty("type", kindToken)
	a.w.WriteProperty("property", property)
	a.w.WriteProperty("value", value)
	writeRange(a.w, sp)
	a.w.WriteEndObject()
}

// TokenList writes one token for a list attribute. Its span covers every
// element span. An empty list writes nothing.
func (a *Attrs) TokenList(property string, values []string, spans []source.Span) {
	if len(values) == 0 {
		return
	}
	u, ok := source.Union(spans)
	if !ok {
		a.ValueList(property, values)
		return
	}
	a.Token(property, strings.Join(values, listSeparator), u)
}

// ValueList writes one unspanned leaf for a list attribute, nothing if empty.
func (a *Attrs) ValueList(property string, values []string) {
	if len(values) == 0 {
		return
	}
	a.Value(property, strings.Join(values, listSeparator))
}
