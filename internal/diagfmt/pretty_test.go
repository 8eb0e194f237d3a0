package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"polylab/internal/diag"
	"polylab/internal/source"
)

func typeErrorFixture() (*source.FileSet, []diag.Diagnostic) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("main.go", []byte("package demo\n\nvar a int = \"x\"\n"))
	d := diag.NewError(diag.SemaTypeCheck, source.Span{File: id, Start: 26, End: 29}, "cannot use \"x\" as int value")
	d = d.WithNote(source.Span{File: id, Start: 0, End: 7}, "declared in package demo")
	return fs, []diag.Diagnostic{d}
}

func TestPretty_HeaderAndCaret(t *testing.T) {
	fs, items := typeErrorFixture()
	var buf bytes.Buffer
	Pretty(&buf, items, fs, PrettyOpts{PathMode: PathModeBasename})

	want := "main.go:3:13: ERROR SEM2001: cannot use \"x\" as int value\n" +
		" 3 | var a int = \"x\"\n" +
		"   | " + strings.Repeat(" ", 12) + "^~~\n"
	if got := buf.String(); got != want {
		t.Errorf("Pretty() =\n%s\nwant\n%s", got, want)
	}
}

func TestPretty_NotesAndContext(t *testing.T) {
	fs, items := typeErrorFixture()
	var buf bytes.Buffer
	Pretty(&buf, items, fs, PrettyOpts{PathMode: PathModeAuto, Context: 5, ShowNotes: true})
	out := buf.String()

	for _, want := range []string{" 1 | package demo\n", " 2 | \n", " 3 | var a int", "note: main.go:1:1: declared in package demo"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPretty_CaretAlignment(t *testing.T) {
	tests := []struct {
		name    string
		content string
		span    source.Span
		want    string
	}{
		{"wide runes", "s := \"日本\" + 1\n", source.Span{Start: 16, End: 17}, "   | " + strings.Repeat(" ", 14) + "^\n"},
		{"tabs", "\tx\n", source.Span{Start: 1, End: 2}, "   | \t^\n"},
		{"empty span", "abc\n", source.Span{Start: 1, End: 1}, "   |  ^\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := source.NewFileSet()
			tt.span.File = fs.AddVirtual("f.star", []byte(tt.content))
			var buf bytes.Buffer
			Pretty(&buf, []diag.Diagnostic{diag.New(diag.SevWarning, diag.SynParse, tt.span, "x")}, fs, PrettyOpts{})
			if !strings.HasSuffix(buf.String(), tt.want) {
				t.Errorf("output =\n%q\nwant suffix %q", buf.String(), tt.want)
			}
		})
	}
}

func TestPretty_UnknownFile(t *testing.T) {
	var buf bytes.Buffer
	d := diag.NewError(diag.IntInternal, source.Span{File: 3}, "boom")
	Pretty(&buf, []diag.Diagnostic{d}, source.NewFileSet(), PrettyOpts{})
	if got := buf.String(); got != "<unknown>: ERROR INT9001: boom\n" {
		t.Errorf("Pretty() = %q", got)
	}
}

func TestPretty_Color(t *testing.T) {
	fs, items := typeErrorFixture()
	var plain, colored bytes.Buffer
	Pretty(&plain, items, fs, PrettyOpts{})
	Pretty(&colored, items, fs, PrettyOpts{Color: true})
	if strings.Contains(plain.String(), "\x1b[") {
		t.Error("escape codes without Color")
	}
	if !strings.Contains(colored.String(), "\x1b[") {
		t.Error("no escape codes with Color")
	}
}

func TestSummary(t *testing.T) {
	items := []diag.Diagnostic{
		{Severity: diag.SevError},
		{Severity: diag.SevWarning},
		{Severity: diag.SevWarning},
		{Severity: diag.SevInfo},
	}
	var buf bytes.Buffer
	Summary(&buf, items, false)
	if got := buf.String(); got != "1 error, 2 warnings\n" {
		t.Errorf("Summary() = %q", got)
	}
}

func TestPathModeAuto(t *testing.T) {
	fs := source.NewFileSet()
	short := fs.Get(fs.AddVirtual("cfg/main.jsonnet", nil))
	long := fs.Get(fs.AddVirtual("/very/long/absolute/path/to/some/nested/directory/file.jsonnet", nil))
	if got := formatPath(short, PathModeAuto); got != "cfg/main.jsonnet" {
		t.Errorf("short = %q", got)
	}
	if got := formatPath(long, PathModeAuto); got != "file.jsonnet" {
		t.Errorf("long = %q", got)
	}
	if got := formatPath(long, PathModeAbsolute); !strings.HasPrefix(got, "/very/long") {
		t.Errorf("absolute = %q", got)
	}
}
