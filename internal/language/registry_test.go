package language

import (
	"errors"
	"slices"
	"testing"

	"polylab/internal/backend"
	"polylab/internal/backend/gotypes"
	"polylab/internal/session"
)

func defaultRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewDefaultRegistry(DefaultSettings())
	if err != nil {
		t.Fatalf("NewDefaultRegistry() error = %v", err)
	}
	return r
}

func TestDefaultRegistry(t *testing.T) {
	r := defaultRegistry(t)
	want := []string{LangGo, LangGo117, LangStarlark, LangJsonnet}
	if got := r.Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	tests := []struct {
		name   string
		family backend.Family
	}{
		{"Go", backend.FamilyManaged},
		{"go1.17", backend.FamilyManaged},
		{"starlark", backend.FamilyScripting},
		{"Jsonnet", backend.FamilyFunctional},
	}
	for _, tt := range tests {
		a, err := r.Lookup(tt.name)
		if err != nil {
			t.Errorf("Lookup(%q) error = %v", tt.name, err)
			continue
		}
		if a.Family() != tt.family {
			t.Errorf("Lookup(%q).Family() = %v, want %v", tt.name, a.Family(), tt.family)
		}
	}

	if _, err := r.Lookup("Cobol"); !errors.Is(err, ErrUnknownLanguage) {
		t.Errorf("Lookup(Cobol) error = %v", err)
	}
}

func TestGoAdaptersShareReferences(t *testing.T) {
	r := defaultRegistry(t)
	a, _ := r.Lookup(LangGo)
	b, _ := r.Lookup(LangGo117)
	if a.(*GoAdapter).refs != b.(*GoAdapter).refs {
		t.Error("Go adapters should share one reference set")
	}
	if v := b.(*GoAdapter).GoVersion(); v != "go1.17" {
		t.Errorf("GoVersion() = %q", v)
	}
}

func TestNewRegistry_Errors(t *testing.T) {
	refs := gotypes.NewReferences()
	a, err := NewGo("Go", "go1.22", nil, refs)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := NewGo("go", "go1.21", nil, refs)
	if _, err := NewRegistry(a, b); !errors.Is(err, ErrDuplicateLanguage) {
		t.Errorf("duplicate error = %v", err)
	}
	if _, err := NewRegistry(a, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("nil adapter error = %v", err)
	}

	s := DefaultSettings()
	s.Go117.Version = "1.17"
	if _, err := NewDefaultRegistry(s); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("invalid version error = %v", err)
	}
}

func TestRegistryOpen(t *testing.T) {
	r := defaultRegistry(t)
	s, a, err := r.Open("starlark", "demo.star", session.TargetExecutable, session.Release)
	if err != nil {
		t.Fatal(err)
	}
	if s.Language() != LangStarlark || a.Name() != LangStarlark {
		t.Errorf("language = %q / %q", s.Language(), a.Name())
	}
	if s.Compilation == nil || s.Compilation.Family() != backend.FamilyScripting {
		t.Errorf("compilation = %#v", s.Compilation)
	}
	if _, _, err := r.Open("Cobol", "x", session.TargetLibrary, session.Debug); !errors.Is(err, ErrUnknownLanguage) {
		t.Errorf("Open(Cobol) error = %v", err)
	}
}

func TestSamplesCompileTargetsExist(t *testing.T) {
	r := defaultRegistry(t)
	for _, name := range r.Names() {
		a, _ := r.Lookup(name)
		sm, ok := a.(Sampler)
		if !ok {
			t.Errorf("%s has no samples", name)
			continue
		}
		for _, target := range []session.TargetKind{session.TargetLibrary, session.TargetExecutable} {
			if sm.Sample(target) == "" {
				t.Errorf("%s: empty %s sample", name, target)
			}
		}
	}
}
