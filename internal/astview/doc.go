// Package astview turns native syntax trees into one uniform, span-annotated
// node stream.
//
// The traversal is written once against Shape, a minimal view of a tree
// (validity, kind name, span, children, extra attributes). Each input language
// supplies its own Shape; the lazy children arrays, span rendering and list
// span unions live here and are shared.
//
// Output is written straight into a jsonw.Writer as a top-level array with a
// single root entry:
//
//	[{"type":"node","kind":"BinaryExpr","range":"4-9","children":[
//	  {"type":"value","property":"Operator","value":"+"},
//	  {"type":"node","kind":"Ident","range":"4-5"}, ...]}]
//
// A node only gets a "children" property when something is written into it.
package astview
