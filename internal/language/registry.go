package language

import (
	"fmt"
	"slices"
	"strings"

	"polylab/internal/backend/gotypes"
	"polylab/internal/session"
)

// Registry maps language names to adapters. Build it once with NewRegistry;
// it is read-only afterwards.
type Registry struct {
	byName map[string]Adapter
	names  []string
}

// NewRegistry fails on a nil adapter or when two adapters share a name
// (compared case-insensitively).
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{byName: make(map[string]Adapter, len(adapters))}
	for i, a := range adapters {
		if a == nil {
			return nil, fmt.Errorf("%w: adapter #%d is nil", ErrInvalidConfig, i)
		}
		key := strings.ToLower(a.Name())
		if _, dup := r.byName[key]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateLanguage, a.Name())
		}
		r.byName[key] = a
		r.names = append(r.names, a.Name())
	}
	return r, nil
}

// Lookup finds the adapter for name.
func (r *Registry) Lookup(name string) (Adapter, error) {
	if a, ok := r.byName[strings.ToLower(name)]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownLanguage, name, strings.Join(r.names, ", "))
}

// Names lists languages in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

// Open creates a session for language and lets its adapter configure it.
func (r *Registry) Open(language, path string, target session.TargetKind, mode session.Optimize) (*session.Session, Adapter, error) {
	a, err := r.Lookup(language)
	if err != nil {
		return nil, nil, err
	}
	s := session.New(a.Name(), path)
	s.Target = target
	s.Optimize = mode
	if err := a.ConfigureSession(s); err != nil {
		return nil, nil, fmt.Errorf("configure %s session: %w", a.Name(), err)
	}
	return s, a, nil
}

// Settings is the per-language configuration the default registry is built
// from.
type Settings struct {
	Go       GoSettings
	Go117    GoSettings
	Starlark StarlarkSettings
	Jsonnet  JsonnetSettings
}

type GoSettings struct {
	Version  string
	Features []string
}

type StarlarkSettings struct {
	Set             bool
	While           bool
	TopLevelControl bool
	GlobalReassign  bool
	Recursion       bool
	Predeclared     []string
}

type JsonnetSettings struct {
	MaxStack int
	ExtVars  map[string]string
}

func DefaultSettings() Settings {
	return Settings{
		Go:       GoSettings{Version: "go1.22", Features: []string{"generics", "rangefunc"}},
		Go117:    GoSettings{Version: "go1.17"},
		Starlark: StarlarkSettings{Set: true, Recursion: true},
		Jsonnet:  JsonnetSettings{MaxStack: 500},
	}
}

// NewDefaultRegistry builds the process-wide registry. The two Go adapters
// share one reference set.
func NewDefaultRegistry(s Settings) (*Registry, error) {
	refs := gotypes.NewReferences()
	goAdapter, err := NewGo(LangGo, s.Go.Version, s.Go.Features, refs)
	if err != nil {
		return nil, err
	}
	go117, err := NewGo(LangGo117, s.Go117.Version, s.Go117.Features, refs)
	if err != nil {
		return nil, err
	}
	return NewRegistry(
		goAdapter,
		go117,
		NewStarlark(s.Starlark),
		NewJsonnet(s.Jsonnet),
	)
}
