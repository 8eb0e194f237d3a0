package compile

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/google/go-jsonnet"
	"github.com/google/go-jsonnet/ast"

	"polylab/internal/backend"
	"polylab/internal/backend/functional"
	"polylab/internal/backend/script"
	"polylab/internal/diag"
	"polylab/internal/language"
	"polylab/internal/session"
	"polylab/internal/source"
	"polylab/internal/trace"
)

func open(t *testing.T, lang, path, src string, target session.TargetKind, mode session.Optimize) (*session.Session, language.Adapter) {
	t.Helper()
	reg, err := language.NewDefaultRegistry(language.DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}
	s, a, err := reg.Open(lang, path, target, mode)
	if err != nil {
		t.Fatal(err)
	}
	s.SetText([]byte(src))
	return s, a
}

func compile(t *testing.T, s *session.Session, opts Options) (Result, *diag.Bag) {
	t.Helper()
	sink := diag.NewBag(0)
	res, err := Compile(context.Background(), s, diag.BagReporter{Bag: sink}, opts)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return res, sink
}

func TestCompile_GoMinimalLibrary(t *testing.T) {
	s, _ := open(t, language.LangGo, "demo.go", "package demo\n\nfunc Answer() int { return 42 }\n", session.TargetLibrary, session.Debug)
	res, sink := compile(t, s, Options{Symbols: true, Docs: true})
	if !res.Success || len(res.Artifact) == 0 {
		t.Fatalf("Compile() = %+v", res)
	}
	if len(res.Diagnostics) != 0 || sink.Len() != 0 {
		t.Errorf("diagnostics = %+v", res.Diagnostics)
	}
	if len(res.Symbols) == 0 || len(res.Docs) == 0 {
		t.Errorf("symbols=%d docs=%d", len(res.Symbols), len(res.Docs))
	}
}

func TestCompile_GoSyntaxError(t *testing.T) {
	s, _ := open(t, language.LangGo, "demo.go", "package demo\n\nfunc Answer() int { return 42 \n", session.TargetLibrary, session.Debug)
	res, sink := compile(t, s, Options{})
	if res.Success || res.Artifact != nil {
		t.Fatalf("Compile() = %+v", res)
	}
	if len(res.Errors()) == 0 {
		t.Fatalf("no error diagnostics: %+v", res.Diagnostics)
	}
	if sink.Len() != len(res.Diagnostics) {
		t.Errorf("sink got %d, result has %d", sink.Len(), len(res.Diagnostics))
	}
}

func TestCompile_OptimizationKeepsStructuralErrors(t *testing.T) {
	src := "package demo\n\nfunc F() int { return \"nope\" }\n"
	s, a := open(t, language.LangGo, "demo.go", src, session.TargetLibrary, session.Debug)
	debug, _ := compile(t, s, Options{})
	a.SetOptimization(s, session.Release)
	release, _ := compile(t, s, Options{})

	msgs := func(r Result) []string {
		var out []string
		for _, d := range r.Errors() {
			out = append(out, d.Message)
		}
		return out
	}
	if len(msgs(debug)) == 0 || !slices.Equal(msgs(debug), msgs(release)) {
		t.Errorf("debug %v vs release %v", msgs(debug), msgs(release))
	}
}

func TestCompile_UnsafeFollowsTarget(t *testing.T) {
	src := "package main\n\nimport \"unsafe\"\n\nvar size = unsafe.Sizeof(0)\n\nfunc main() { _ = size }\n"
	s, a := open(t, language.LangGo, "main.go", src, session.TargetExecutable, session.Debug)
	if res, _ := compile(t, s, Options{}); !res.Success {
		t.Fatalf("executable: %+v", res.Diagnostics)
	}
	a.SetTargetOptions(s, session.TargetLibrary)
	res, _ := compile(t, s, Options{})
	if res.Success {
		t.Fatal("library compile should reject unsafe")
	}
	var found bool
	for _, d := range res.Diagnostics {
		found = found || d.Code == diag.SemaUnsafeImport
	}
	if !found {
		t.Errorf("diagnostics = %+v", res.Diagnostics)
	}
	a.SetTargetOptions(s, session.TargetExecutable)
	if res, _ := compile(t, s, Options{}); !res.Success {
		t.Errorf("back to executable: %+v", res.Diagnostics)
	}
}

const starlarkSource = `"""Tools."""

def double(x):
    """Doubles x."""
    return x * 2

def undocumented(y):
    return y
`

func TestCompile_ScriptDocsMatchBackendBytes(t *testing.T) {
	s, _ := open(t, language.LangStarlark, "tools.star", starlarkSource, session.TargetLibrary, session.Debug)
	res, _ := compile(t, s, Options{Docs: true, Symbols: true})
	if !res.Success || len(res.Docs) == 0 {
		t.Fatalf("Compile() = %+v", res)
	}

	// what the backend writes into its own, internally closed, stream
	fs := source.NewFileSet()
	direct := script.New(s.Compilation.(*script.Compilation).Options())
	direct.SetSource(fs.Get(fs.AddVirtual("tools.star", []byte(starlarkSource))))
	buf := &script.DocBuffer{}
	if _, err := direct.Emit(&bytes.Buffer{}, nil, buf); err != nil {
		t.Fatal(err)
	}
	if !buf.Closed() {
		t.Fatal("backend did not close the docs writer")
	}
	if !bytes.Equal(res.Docs, buf.Bytes()) {
		t.Errorf("docs differ:\n%s\n---\n%s", res.Docs, buf.Bytes())
	}
}

func TestCompile_ScriptDiagnosticsNormalized(t *testing.T) {
	s, _ := open(t, language.LangStarlark, "tools.star", starlarkSource, session.TargetLibrary, session.Debug)
	res, _ := compile(t, s, Options{})
	if !res.Success || len(res.Warnings()) != 1 {
		t.Fatalf("Compile() = %+v", res)
	}
	w := res.Warnings()[0]
	if w.Code != diag.EmitMissingDoc {
		t.Errorf("code = %v", w.Code)
	}
	f := s.File()
	if got := string(f.Content[w.Primary.Start:w.Primary.End]); got != "undocumented" {
		t.Errorf("span covers %q", got)
	}

	s.SetText([]byte("def f(:\n"))
	res, _ = compile(t, s, Options{})
	if res.Success || len(res.Errors()) != 1 || res.Errors()[0].Code != diag.SynParse {
		t.Errorf("syntax error result = %+v", res)
	}
}

func withEvaluator(s *session.Session, eval functional.Evaluator) {
	c := s.Compilation.(*functional.Compilation)
	o := c.Options()
	o.Evaluator = eval
	c.SetOptions(o)
}

func TestCompile_FunctionalEmptyOutputFails(t *testing.T) {
	s, _ := open(t, language.LangJsonnet, "conf.jsonnet", "{}", session.TargetLibrary, session.Debug)
	withEvaluator(s, func(*jsonnet.VM, ast.Node) (string, error) { return "", nil })
	res, _ := compile(t, s, Options{})
	if res.Success {
		t.Fatal("empty output should fail")
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Code != diag.EmitEmptyArtifact {
		t.Errorf("diagnostics = %+v", res.Diagnostics)
	}
}

func TestCompile_FunctionalTracesVirtualOutput(t *testing.T) {
	s, _ := open(t, language.LangJsonnet, "conf.jsonnet", "{ a: 1 }", session.TargetLibrary, session.Debug)
	tr, err := trace.New(trace.Config{Level: trace.LevelDebug, Mode: trace.ModeRing, RingSize: 64})
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	ctx := trace.WithTracer(context.Background(), tr)
	res, err := Compile(ctx, s, nil, Options{})
	if err != nil || !res.Success {
		t.Fatalf("Compile() = %+v, %v", res, err)
	}
	var details []string
	for _, ev := range tr.(*trace.Recorder).Snapshot() {
		if ev.Name == "vfs" {
			details = append(details, ev.Detail)
		}
	}
	if !slices.Equal(details, []string{"/conf.json writes=1"}) {
		t.Errorf("vfs events = %q", details)
	}
}

func TestCompile_FunctionalForwardsOnlyErrors(t *testing.T) {
	s, _ := open(t, language.LangJsonnet, "conf.jsonnet", "{ a: std.trace(\"hello\", 1) }", session.TargetLibrary, session.Release)
	res, _ := compile(t, s, Options{})
	if !res.Success || string(res.Artifact) != `{"a":1}` {
		t.Fatalf("Compile() = %+v (%s)", res, res.Artifact)
	}
	if len(res.Diagnostics) != 0 {
		t.Errorf("trace output leaked: %+v", res.Diagnostics)
	}

	s.SetText([]byte("{ a: error \"bad\" }"))
	res, _ = compile(t, s, Options{})
	if res.Success || len(res.Errors()) != 1 || res.Errors()[0].Code != diag.EvalRuntime {
		t.Errorf("runtime error result = %+v", res)
	}
}

func TestCompile_FunctionalDefinesExtVar(t *testing.T) {
	src := "std.extVar(\"polylab.defines\")"
	s, a := open(t, language.LangJsonnet, "conf.jsonnet", src, session.TargetLibrary, session.Debug)
	res, _ := compile(t, s, Options{})
	if !res.Success || !bytes.Contains(res.Artifact, []byte("polylab_experimental,debug")) {
		t.Fatalf("debug = %s", res.Artifact)
	}
	a.SetOptimization(s, session.Release)
	res, _ = compile(t, s, Options{})
	if !res.Success || string(res.Artifact) != `"polylab_experimental"` {
		t.Errorf("release = %s", res.Artifact)
	}
}

func TestCompile_FunctionalCancellation(t *testing.T) {
	s, _ := open(t, language.LangJsonnet, "conf.jsonnet", "{}", session.TargetLibrary, session.Debug)
	release := make(chan struct{})
	defer close(release)
	withEvaluator(s, func(*jsonnet.VM, ast.Node) (string, error) {
		<-release
		return "{}", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Compile(ctx, s, nil, Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

type bareCompilation struct{ src *source.File }

func (b *bareCompilation) Family() backend.Family   { return backend.FamilyManaged }
func (b *bareCompilation) SetSource(f *source.File) { b.src = f }
func (b *bareCompilation) Source() *source.File     { return b.src }

func TestCompile_Errors(t *testing.T) {
	if _, err := Compile(context.Background(), session.New("x", "x"), nil, Options{}); !errors.Is(err, session.ErrNoCompilation) {
		t.Errorf("no compilation: %v", err)
	}
	s := session.New("x", "x")
	s.Install(&bareCompilation{})
	s.SetText([]byte("x"))
	if _, err := Compile(context.Background(), s, nil, Options{}); !errors.Is(err, ErrUnsupportedCompilation) {
		t.Errorf("bare compilation: %v", err)
	}
}

func TestSyntaxDiagnostics(t *testing.T) {
	tests := []struct {
		lang, path, src string
	}{
		{language.LangGo, "a.go", "package a\nfunc {"},
		{language.LangStarlark, "a.star", "def ("},
		{language.LangJsonnet, "a.jsonnet", "{ a: }"},
	}
	for _, tt := range tests {
		s, _ := open(t, tt.lang, tt.path, tt.src, session.TargetAST, session.Debug)
		ds := SyntaxDiagnostics(s)
		if len(ds) == 0 || ds[0].Code != diag.SynParse {
			t.Errorf("%s: %+v", tt.lang, ds)
		}
	}
}

func TestOutputName(t *testing.T) {
	tests := map[string]string{
		"conf.jsonnet":        "conf.json",
		"dir/sub/x.libsonnet": "x.json",
		`C:\work\y.jsonnet`:   "y.json",
		"":                    "output.json",
	}
	for in, want := range tests {
		if got := outputName(in, ".json"); got != want {
			t.Errorf("outputName(%q) = %q, want %q", in, got, want)
		}
	}
}
