// Package backend holds what every compilation backend family shares: the
// family tags, the compilation contract sessions carry, and the symbol table
// format.
package backend

import (
	"context"
	"fmt"
	"io"

	"polylab/internal/diag"
	"polylab/internal/source"
)

// Family is the closed set of backend families.
type Family uint8

const (
	FamilyManaged Family = iota
	FamilyScripting
	FamilyFunctional
)

func (f Family) String() string {
	switch f {
	case FamilyManaged:
		return "managed"
	case FamilyScripting:
		return "scripting"
	case FamilyFunctional:
		return "functional"
	}
	return fmt.Sprintf("Family(%d)", uint8(f))
}

// OutputKind selects what a compile produces.
type OutputKind uint8

const (
	OutputLibrary OutputKind = iota
	OutputExecutable
)

func (k OutputKind) String() string {
	if k == OutputExecutable {
		return "executable"
	}
	return "library"
}

// Compilation is the backend-native compilation object a session carries.
// Each family has its own concrete type; the dispatcher tells them apart by
// type, never by language name.
type Compilation interface {
	Family() Family
	// SetSource replaces the source text. Options are kept.
	SetSource(file *source.File)
	// Source returns the file the compilation was last given, or nil.
	Source() *source.File
}

// EmitResult is what default-path backends return from Emit.
type EmitResult struct {
	Success     bool
	Diagnostics []diag.Diagnostic
}

// Emitter is the default emission path. symbols and docs may be nil.
type Emitter interface {
	Compilation
	Emit(ctx context.Context, artifact, symbols, docs io.Writer) (EmitResult, error)
}
