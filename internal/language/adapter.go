package language

import (
	"errors"
	"slices"

	"polylab/internal/backend"
	"polylab/internal/jsonw"
	"polylab/internal/session"
)

const (
	LangGo       = "Go"
	LangGo117    = "Go1.17"
	LangStarlark = "Starlark"
	LangJsonnet  = "Jsonnet"
)

var (
	ErrUnknownLanguage   = errors.New("unknown language")
	ErrDuplicateLanguage = errors.New("duplicate language")
	ErrInvalidConfig     = errors.New("invalid adapter configuration")
)

// DefineExperimental is always set; DefineDebug only in debug builds.
const (
	DefineExperimental = "polylab_experimental"
	DefineDebug        = "debug"
)

// Defines returns the preprocessor set for mode. The release set is the
// debug set without DefineDebug.
func Defines(mode session.Optimize) []string {
	if mode == session.Release {
		return []string{DefineExperimental}
	}
	return []string{DefineExperimental, DefineDebug}
}

// Adapter configures sessions for one input language.
//
// Unsupported optional queries return empty results, never errors.
type Adapter interface {
	Name() string
	Family() backend.Family
	// ConfigureSession installs a compilation built from the adapter's
	// precomputed settings and applies the session's current optimization and
	// target. Calling it again leaves the observable configuration unchanged.
	ConfigureSession(s *session.Session) error
	SetOptimization(s *session.Session, mode session.Optimize)
	SetTargetOptions(s *session.Session, target session.TargetKind)
	// ResolveParameterSpans returns the 1-based line of every formal parameter
	// of the innermost callable enclosing line:column (both 1-based).
	ResolveParameterSpans(s *session.Session, line, column int) []int
}

// ASTProvider streams the session's syntax tree through the serializer.
type ASTProvider interface {
	WriteAST(s *session.Session, w jsonw.Writer) error
}

// Sampler returns starter code for a target.
type Sampler interface {
	Sample(target session.TargetKind) string
}

func unsafeAllowed(target session.TargetKind) bool {
	return target == session.TargetExecutable
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	return slices.Clone(in)
}
