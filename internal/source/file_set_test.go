package source

import (
	"testing"
)

func TestFileSetVersioning(t *testing.T) {
	fs := NewFileSet()

	id1 := fs.AddVirtual("main.go", []byte("hello world"))
	id2 := fs.AddVirtual("main.go", []byte("hello universe"))
	if id1 == id2 {
		t.Fatalf("expected distinct ids, got %d twice", id1)
	}

	latest, ok := fs.GetLatest("main.go")
	if !ok || latest != id2 {
		t.Fatalf("GetLatest() = %d, %v; want %d, true", latest, ok, id2)
	}
	if got := string(fs.Get(id1).Content); got != "hello world" {
		t.Errorf("old version content = %q", got)
	}
	if fs.Get(id2).Flags&FileVirtual == 0 {
		t.Error("expected FileVirtual flag")
	}
}

func TestFile_LineColAndOffset(t *testing.T) {
	fs := NewFileSet()
	content := "package p\r\n\r\nfunc F(a int,\n\tb string) {}\n"
	f := fs.Get(fs.AddVirtual("p.go", []byte(content)))

	tests := []struct {
		name string
		off  uint32
		want LineCol
	}{
		{"start of file", 0, LineCol{Line: 1, Col: 1}},
		{"carriage return stays on line", 9, LineCol{Line: 1, Col: 10}},
		{"newline byte ends line 1", 10, LineCol{Line: 1, Col: 11}},
		{"empty line", 12, LineCol{Line: 2, Col: 2}},
		{"third line", 13, LineCol{Line: 3, Col: 1}},
		{"tab indented line", 28, LineCol{Line: 4, Col: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.LineCol(tt.off); got != tt.want {
				t.Errorf("LineCol(%d) = %+v, want %+v", tt.off, got, tt.want)
			}
			back, ok := f.Offset(tt.want.Line, tt.want.Col)
			if !ok || back != tt.off {
				t.Errorf("Offset(%d, %d) = %d, %v; want %d", tt.want.Line, tt.want.Col, back, ok, tt.off)
			}
		})
	}

	if _, ok := f.Offset(99, 1); ok {
		t.Error("Offset() on a missing line must fail")
	}
}

func TestFile_RuneOffset(t *testing.T) {
	fs := NewFileSet()
	f := fs.Get(fs.AddVirtual("s.star", []byte("x = \"🌄\" + y\n")))

	// column 9 in runes is the '+' that follows the 4-byte emoji
	off, ok := f.RuneOffset(1, 9)
	if !ok {
		t.Fatal("RuneOffset failed")
	}
	if f.Content[off] != '+' {
		t.Errorf("RuneOffset(1, 9) points at %q, want '+'", f.Content[off])
	}
}

func TestFile_GetLine(t *testing.T) {
	fs := NewFileSet()
	f := fs.Get(fs.AddVirtual("a", []byte("one\ntwo\nthree")))

	for line, want := range map[uint32]string{1: "one", 2: "two", 3: "three", 4: "", 0: ""} {
		if got := f.GetLine(line); got != want {
			t.Errorf("GetLine(%d) = %q, want %q", line, got, want)
		}
	}
}
