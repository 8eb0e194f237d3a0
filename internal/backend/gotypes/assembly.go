package gotypes

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"polylab/internal/docxml"
)

const (
	AssemblyFormat = "polylab-asm/1"
	// ScriptInfoName is the synthetic declaration every assembly carries.
	ScriptInfoName = "__polylab_script_info"
)

// Assembly is the compiled artifact of the managed family.
type Assembly struct {
	Format     string      `msgpack:"format"`
	Name       string      `msgpack:"name"`
	Version    string      `msgpack:"version"`
	Package    string      `msgpack:"package"`
	Kind       string      `msgpack:"kind"`
	Optimized  bool        `msgpack:"optimized"`
	Unsafe     bool        `msgpack:"unsafe"`
	GoVersion  string      `msgpack:"go_version"`
	Features   []string    `msgpack:"features,omitempty"`
	Defines    []string    `msgpack:"defines,omitempty"`
	References []Reference `msgpack:"references,omitempty"`
	Decls      []Decl      `msgpack:"decls"`
}

type Reference struct {
	Path    string `msgpack:"path"`
	Version string `msgpack:"version"`
}

// Decl is one package-level declaration or method.
type Decl struct {
	Kind      string `msgpack:"kind"`
	Name      string `msgpack:"name"`
	Recv      string `msgpack:"recv,omitempty"`
	Signature string `msgpack:"sig"`
	Doc       string `msgpack:"doc,omitempty"`
	Exported  bool   `msgpack:"exported"`
	Line      uint32 `msgpack:"line"`
}

// MemberID is the documentation id of d inside package pkg.
func MemberID(pkg string, d Decl) string {
	switch d.Kind {
	case "type":
		return docxml.PrefixType + pkg + "." + d.Name
	case "func":
		return docxml.PrefixFunc + pkg + "." + d.Name
	case "method":
		return docxml.PrefixFunc + pkg + "." + d.Recv + "." + d.Name
	}
	return docxml.PrefixField + pkg + "." + d.Name
}

func WriteAssembly(w io.Writer, a *Assembly) error {
	if a.Format == "" {
		a.Format = AssemblyFormat
	}
	if err := msgpack.NewEncoder(w).Encode(a); err != nil {
		return fmt.Errorf("failed to encode assembly: %w", err)
	}
	return nil
}

func ReadAssembly(r io.Reader) (*Assembly, error) {
	var a Assembly
	if err := msgpack.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to decode assembly: %w", err)
	}
	if a.Format != AssemblyFormat {
		return nil, fmt.Errorf("not a managed assembly (format %q)", a.Format)
	}
	return &a, nil
}
