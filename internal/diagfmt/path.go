package diagfmt

import (
	"path/filepath"

	"polylab/internal/source"
)

const autoPathLimit = 40

// fileOf returns the file a span points into, or nil for spans that do not
// belong to fs.
func fileOf(fs *source.FileSet, span source.Span) *source.File {
	if fs == nil || int(span.File) >= fs.Len() {
		return nil
	}
	return fs.Get(span.File)
}

func formatPath(f *source.File, mode PathMode) string {
	if f == nil {
		return "<unknown>"
	}
	switch mode {
	case PathModeBasename:
		return f.BaseName()
	case PathModeAuto:
		if len(f.Path) > autoPathLimit && filepath.IsAbs(f.Path) {
			return f.BaseName()
		}
	}
	return filepath.ToSlash(f.Path)
}
