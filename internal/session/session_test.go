package session

import (
	"testing"

	"polylab/internal/backend"
	"polylab/internal/source"
)

type fakeCompilation struct {
	sources []string
}

func (f *fakeCompilation) Family() backend.Family { return backend.FamilyManaged }
func (f *fakeCompilation) SetSource(file *source.File) {
	f.sources = append(f.sources, string(file.Content))
}

func (f *fakeCompilation) Source() *source.File { return nil }

func TestSession_TextFlowsToCompilation(t *testing.T) {
	s := New("Go", "main.go")
	if s.File() != nil || s.Text() != nil {
		t.Fatal("new session must have no text")
	}

	s.SetText([]byte("package a"))
	c := &fakeCompilation{}
	s.Install(c)
	s.SetText([]byte("package b"))

	if len(c.sources) != 2 || c.sources[0] != "package a" || c.sources[1] != "package b" {
		t.Fatalf("compilation saw %q", c.sources)
	}
	if s.Language() != "Go" || string(s.Text()) != "package b" {
		t.Errorf("Language() = %q, Text() = %q", s.Language(), s.Text())
	}
	if s.Files().Len() != 1 {
		t.Errorf("FileSet has %d versions, want 1", s.Files().Len())
	}
}

func TestSession_EditsReuseFileSlot(t *testing.T) {
	s := New("Go", "main.go")
	first := s.SetText([]byte("package a
"))
	hash := s.File().Hash
	for _, text := range []string{"package b
", "package c

var x int
", "package d
"} {
		if id := s.SetText([]byte(text)); id != first {
			t.Fatalf("SetText(%q) = %d, want %d", text, id, first)
		}
	}
	if n := s.Files().Len(); n != 1 {
		t.Fatalf("FileSet has %d versions after edits, want 1", n)
	}
	f := s.File()
	if string(f.Content) != "package d
" || f.Hash == hash {
		t.Errorf("File() = %q hash unchanged=%v", f.Content, f.Hash == hash)
	}
	if lc := f.LineCol(f.Size()); lc.Line != 2 {
		t.Errorf("line index not rebuilt: end at line %d", lc.Line)
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in      string
		want    TargetKind
		wantErr bool
	}{
		{"library", TargetLibrary, false},
		{"", TargetLibrary, false},
		{"Executable", TargetExecutable, false},
		{"ast", TargetAST, false},
		{"inspect", TargetInspect, false},
		{"wasm", TargetLibrary, true},
	}
	for _, tt := range tests {
		got, err := ParseTarget(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseTarget(%q) = %v, %v", tt.in, got, err)
		}
	}
	if TargetAST.Output() != backend.OutputLibrary || TargetExecutable.Output() != backend.OutputExecutable {
		t.Error("Output() mapping is wrong")
	}
}

func TestParseOptimize(t *testing.T) {
	if o, err := ParseOptimize("Release"); err != nil || o != Release {
		t.Errorf("ParseOptimize(Release) = %v, %v", o, err)
	}
	if _, err := ParseOptimize("fast"); err == nil {
		t.Error("expected error")
	}
}
