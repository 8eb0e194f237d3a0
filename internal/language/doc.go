// Package language binds input languages to backend families.
//
// Each supported language has one stateless Adapter. Adapters are collected
// into a Registry once at process start and looked up by name afterwards;
// the registry is never mutated, so lookups need no locking.
//
// Tree shapes (golang_tree.go, starlark_tree.go, jsonnet_tree.go) teach the
// generic astview serializer how to read each native syntax tree.
package language
