package astview

import (
	"iter"
	"reflect"

	"polylab/internal/source"
)

// Shape describes how to read one language's native tree.
type Shape[N any] interface {
	// Valid reports whether n is a real node. Invalid nodes (typed nils,
	// placeholders) produce no output at all.
	Valid(n N) bool
	// Kind is the name written into the "kind" property.
	Kind(n N) string
	// Span returns the node's byte range. ok=false makes the serializer reuse
	// the parent's span.
	Span(n N) (sp source.Span, ok bool)
	// Children yields structural children in source order.
	Children(n N) iter.Seq[N]
	// Attributes writes extra leaves ahead of the structural children.
	Attributes(n N, a *Attrs)
}

// RuntimeKind returns the bare type name of v, without package or pointer.
func RuntimeKind(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "nil"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// IsNil reports whether v is nil or a typed nil pointer/interface.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func:
		return rv.IsNil()
	}
	return false
}
