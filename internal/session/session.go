// Package session holds the per-editing-context state: the fixed input
// language, the current source text and the mutable target/optimization pair.
//
// A session is owned by one caller and is not safe for concurrent use.
package session

import (
	"errors"
	"fmt"
	"strings"

	"polylab/internal/backend"
	"polylab/internal/source"
)

var ErrNoCompilation = errors.New("session has no compilation")

// TargetKind is what a request should produce.
type TargetKind uint8

const (
	TargetLibrary TargetKind = iota
	TargetExecutable
	TargetAST
	TargetInspect
)

func (t TargetKind) String() string {
	switch t {
	case TargetLibrary:
		return "library"
	case TargetExecutable:
		return "executable"
	case TargetAST:
		return "ast"
	case TargetInspect:
		return "inspect"
	}
	return fmt.Sprintf("TargetKind(%d)", uint8(t))
}

// Output maps the target to the backend output kind. Only executable targets
// produce executables; AST and inspect compile as libraries.
func (t TargetKind) Output() backend.OutputKind {
	if t == TargetExecutable {
		return backend.OutputExecutable
	}
	return backend.OutputLibrary
}

// ParseTarget accepts the CLI and config spellings of a target.
func ParseTarget(s string) (TargetKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "library", "lib", "":
		return TargetLibrary, nil
	case "executable", "exe", "console":
		return TargetExecutable, nil
	case "ast", "syntax":
		return TargetAST, nil
	case "inspect", "il", "binary":
		return TargetInspect, nil
	}
	return TargetLibrary, fmt.Errorf("unknown target %q (expected: library|executable|ast|inspect)", s)
}

// Optimize is the optimization mode.
type Optimize uint8

const (
	Debug Optimize = iota
	Release
)

func (o Optimize) String() string {
	if o == Release {
		return "release"
	}
	return "debug"
}

func ParseOptimize(s string) (Optimize, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "":
		return Debug, nil
	case "release":
		return Release, nil
	}
	return Debug, fmt.Errorf("unknown optimization mode %q (expected: debug|release)", s)
}

// Session is one user editing context.
type Session struct {
	language string
	path     string
	files    *source.FileSet
	current  source.FileID
	hasText  bool

	Target   TargetKind
	Optimize Optimize

	// Compilation is installed by the language adapter.
	Compilation backend.Compilation
}

// New creates a session for language. path names the virtual source file.
func New(language, path string) *Session {
	return &Session{
		language: language,
		path:     path,
		files:    source.NewFileSet(),
	}
}

// Language is fixed for the session's lifetime.
func (s *Session) Language() string { return s.language }

func (s *Session) Path() string { return s.path }

func (s *Session) Files() *source.FileSet { return s.files }

// SetText stores the source and hands it to the compilation. The session keeps
// one slot per path: an edit overwrites the previous text and keeps its FileID.
func (s *Session) SetText(text []byte) source.FileID {
	if id, ok := s.files.GetLatest(s.path); ok {
		s.files.Replace(id, text)
		s.current = id
	} else {
		s.current = s.files.AddVirtual(s.path, text)
	}
	s.hasText = true
	if s.Compilation != nil {
		s.Compilation.SetSource(s.files.Get(s.current))
	}
	return s.current
}

// File returns the current source version, or nil before SetText.
func (s *Session) File() *source.File {
	if !s.hasText {
		return nil
	}
	return s.files.Get(s.current)
}

// Text returns the current source text.
func (s *Session) Text() []byte {
	if f := s.File(); f != nil {
		return f.Content
	}
	return nil
}

// Install sets the compilation and feeds it the current text, if any.
func (s *Session) Install(c backend.Compilation) {
	s.Compilation = c
	if f := s.File(); f != nil && c != nil {
		c.SetSource(f)
	}
}
