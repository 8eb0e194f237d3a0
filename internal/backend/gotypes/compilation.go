// Package gotypes is the managed backend family: Go source checked with
// go/types and emitted as a msgpack assembly.
package gotypes

import (
	"errors"
	"go/ast"
	"go/parser"
	"go/token"

	"fortio.org/safecast"

	"polylab/internal/backend"
	"polylab/internal/source"
)

var ErrNoSource = errors.New("compilation has no source")

// Compilation keeps the last parse across option changes. It is owned by one
// session.
type Compilation struct {
	file     *source.File
	fset     *token.FileSet
	base     int
	parsed   *ast.File
	parseErr error
	parsedAt [32]byte
	parses   int

	opts Options
}

func New(opts Options) *Compilation {
	return &Compilation{opts: opts.Clone()}
}

func (c *Compilation) Family() backend.Family { return backend.FamilyManaged }

// SetSource parses file unless its content matches the cached parse.
func (c *Compilation) SetSource(file *source.File) {
	c.file = file
	if c.parsed != nil && c.parsedAt == file.Hash {
		return
	}
	c.fset = token.NewFileSet()
	c.base = c.fset.Base()
	c.parsed, c.parseErr = parser.ParseFile(c.fset, file.Path, file.Content, parser.ParseComments|parser.SkipObjectResolution)
	c.parsedAt = file.Hash
	c.parses++
}

func (c *Compilation) Source() *source.File { return c.file }

// Options returns a copy of the current options.
func (c *Compilation) Options() Options { return c.opts.Clone() }

// SetOptions replaces the options wholesale. The cached parse is kept.
func (c *Compilation) SetOptions(o Options) { c.opts = o.Clone() }

// Syntax returns the cached parse. f may be partial when the source has
// syntax errors.
func (c *Compilation) Syntax() (fset *token.FileSet, f *ast.File) {
	return c.fset, c.parsed
}

// Parses counts how many times the source was actually parsed.
func (c *Compilation) Parses() int { return c.parses }

// Offset converts a position in the cached parse to a byte offset.
func (c *Compilation) Offset(p token.Pos) (uint32, bool) {
	if !p.IsValid() || c.file == nil {
		return 0, false
	}
	off, err := safecast.Conv[uint32](int(p) - c.base)
	if err != nil {
		return 0, false
	}
	return min(off, c.file.Size()), true
}

// Span converts a node range to a source span.
func (c *Compilation) Span(pos, end token.Pos) (source.Span, bool) {
	start, ok := c.Offset(pos)
	if !ok {
		return source.Span{}, false
	}
	stop, ok := c.Offset(end)
	if !ok || stop < start {
		stop = start
	}
	return source.Span{File: c.file.ID, Start: start, End: stop}, true
}

// Pos converts a byte offset to a position in the cached parse.
func (c *Compilation) Pos(off uint32) token.Pos {
	return token.Pos(c.base + int(off))
}
