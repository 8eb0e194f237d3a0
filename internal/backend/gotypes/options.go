package gotypes

import (
	"slices"

	"polylab/internal/backend"
	"polylab/internal/diag"
)

// Options configure a managed compilation. Changing them never reparses.
type Options struct {
	// Name is the assembly name; the package name is used when empty.
	Name      string
	Version   string
	GoVersion string
	Features  []string
	Defines   []string
	Optimize  bool
	Output    backend.OutputKind
	// AllowUnsafe permits importing package unsafe.
	AllowUnsafe bool
	References  *References
	Suppress    []diag.Code
}

// Clone returns a deep copy; References stay shared.
func (o Options) Clone() Options {
	o.Features = slices.Clone(o.Features)
	o.Defines = slices.Clone(o.Defines)
	o.Suppress = slices.Clone(o.Suppress)
	return o
}

func (o Options) defined(tag string) bool {
	return slices.Contains(o.Defines, tag)
}

func (o Options) suppressed(code diag.Code) bool {
	return slices.Contains(o.Suppress, code)
}
