package gotypes

import (
	"fmt"
	"go/importer"
	"go/token"
	"go/types"
	"runtime"
	"sync"
)

// References resolves imports for every compilation of one adapter. The
// underlying source importer is not safe for concurrent use, so imports are
// serialized; resolved packages are shared.
type References struct {
	mu      sync.Mutex
	fset    *token.FileSet
	imp     types.Importer
	version string
}

// NewReferences builds a reference set backed by GOROOT sources.
func NewReferences() *References {
	fset := token.NewFileSet()
	return &References{
		fset:    fset,
		imp:     importer.ForCompiler(fset, "source", nil),
		version: runtime.Version(),
	}
}

// Import implements types.Importer.
func (r *References) Import(path string) (*types.Package, error) {
	if path == "unsafe" {
		return types.Unsafe, nil
	}
	if r == nil {
		return nil, fmt.Errorf("package %q is not available: no references configured", path)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.imp.Import(path)
}

// Version is the toolchain version imported packages are built from.
func (r *References) Version() string {
	if r == nil {
		return ""
	}
	return r.version
}
