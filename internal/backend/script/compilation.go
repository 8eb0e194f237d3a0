// Package script is the ahead-of-time scripting family: Starlark source
// resolved and compiled with go.starlark.net.
//
// Emit has one contract callers must know about: it closes the docs writer
// before returning, whatever the outcome.
package script

import (
	"errors"
	"slices"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"polylab/internal/backend"
	"polylab/internal/source"
)

var ErrNoSource = errors.New("compilation has no source")

// Options configure a scripting compilation.
type Options struct {
	// File holds the dialect switches; changing them reparses.
	File        syntax.FileOptions
	Optimize    bool
	Output      backend.OutputKind
	Predeclared []string
}

func (o Options) Clone() Options {
	o.Predeclared = slices.Clone(o.Predeclared)
	return o
}

type Compilation struct {
	src      *source.File
	opts     Options
	parsed   *syntax.File
	parseErr error
	parsedAt [32]byte
	parsedBy syntax.FileOptions
	parses   int

	// resolution mutates the tree, so the program is built once per parse
	prog    *starlark.Program
	progErr error
	progFor []string
}

func New(opts Options) *Compilation {
	return &Compilation{opts: opts.Clone()}
}

func (c *Compilation) Family() backend.Family { return backend.FamilyScripting }

func (c *Compilation) SetSource(file *source.File) {
	c.src = file
	c.parse()
}

func (c *Compilation) Source() *source.File { return c.src }

func (c *Compilation) Options() Options { return c.opts.Clone() }

// SetOptions replaces the options; only a change of File options reparses.
func (c *Compilation) SetOptions(o Options) {
	c.opts = o.Clone()
	c.parse()
}

func (c *Compilation) parse() {
	if c.src == nil {
		return
	}
	if c.parses > 0 && c.parsedAt == c.src.Hash && c.parsedBy == c.opts.File {
		return
	}
	opts := c.opts.File
	c.parsed, c.parseErr = opts.Parse(c.src.Path, c.src.Content, 0)
	c.parsedAt = c.src.Hash
	c.parsedBy = c.opts.File
	c.parses++
	c.prog, c.progErr, c.progFor = nil, nil, nil
}

// Syntax returns the cached parse, nil when the source did not parse.
func (c *Compilation) Syntax() *syntax.File { return c.parsed }

// Parses counts actual parses.
func (c *Compilation) Parses() int { return c.parses }

func (c *Compilation) program() (*starlark.Program, error) {
	if c.prog != nil || c.progErr != nil {
		if slices.Equal(c.progFor, c.opts.Predeclared) {
			return c.prog, c.progErr
		}
		// predeclared set changed; resolve a fresh tree
		opts := c.opts.File
		c.parsed, c.parseErr = opts.Parse(c.src.Path, c.src.Content, 0)
		c.parses++
		if c.parseErr != nil {
			return nil, c.parseErr
		}
	}
	predeclared := c.opts.Predeclared
	c.prog, c.progErr = starlark.FileProgram(c.parsed, func(name string) bool {
		return slices.Contains(predeclared, name)
	})
	c.progFor = slices.Clone(predeclared)
	return c.prog, c.progErr
}

// Offset converts a Starlark position (1-based line, 1-based rune column)
// to a byte offset in the source.
func (c *Compilation) Offset(p syntax.Position) (uint32, bool) {
	if c.src == nil || !p.IsValid() {
		return 0, false
	}
	pos, ok := source.Position(int(p.Line), int(p.Col))
	if !ok {
		return 0, false
	}
	return c.src.RuneOffset(pos.Line, pos.Col)
}

// Span converts a node's start/end positions to a source span.
func (c *Compilation) Span(start, end syntax.Position) (source.Span, bool) {
	s, ok := c.Offset(start)
	if !ok {
		return source.Span{}, false
	}
	e, ok := c.Offset(end)
	if !ok || e < s {
		e = s
	}
	return source.Span{File: c.src.ID, Start: s, End: e}, true
}
