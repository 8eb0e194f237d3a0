package functional

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-jsonnet"
	"github.com/google/go-jsonnet/ast"

	"polylab/internal/diag"
	"polylab/internal/source"
	"polylab/internal/vfs"
)

func newCompilation(t *testing.T, fs *source.FileSet, name, src string) *Compilation {
	t.Helper()
	c := New(Options{})
	c.SetSource(fs.Get(fs.AddVirtual(name, []byte(src))))
	return c
}

func newDisk(t *testing.T) *vfs.Disk {
	t.Helper()
	d := vfs.NewDisk()
	if err := d.Register("out.json"); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestCheck_CachesPerSource(t *testing.T) {
	fs := source.NewFileSet()
	c := newCompilation(t, fs, "a.jsonnet", "{ a: 1 + 2 }")
	if ds := c.Check(); len(ds) != 0 {
		t.Fatalf("Check() = %+v", ds)
	}
	c.Check()
	if c.Checks() != 1 {
		t.Errorf("Checks() = %d, want 1", c.Checks())
	}
	if _, ok := c.Syntax().(*ast.Object); !ok {
		t.Errorf("Syntax() = %T", c.Syntax())
	}
	if c.Program() == nil {
		t.Error("Program() = nil")
	}
}

func TestCheck_SyntaxErrorHasLocation(t *testing.T) {
	fs := source.NewFileSet()
	c := newCompilation(t, fs, "bad.jsonnet", "{\n  a: ,\n}")
	ds := c.Check()
	if len(ds) != 1 || ds[0].Code != diag.SynParse || ds[0].Severity != diag.SevError {
		t.Fatalf("Check() = %+v", ds)
	}
	if lc := c.Source().LineCol(ds[0].Primary.Start); lc.Line != 2 {
		t.Errorf("error line = %d, want 2", lc.Line)
	}
}

func TestCompile_WritesOutput(t *testing.T) {
	fs := source.NewFileSet()
	main := newCompilation(t, fs, "main.jsonnet", `local lib = import "lib.libsonnet"; { sum: lib.add(2, 3), who: std.extVar("who") }`)
	lib := newCompilation(t, fs, "lib.libsonnet", `{ add(a, b):: a + b }`)
	disk := newDisk(t)

	k := NewChecker(Options{ExtVars: map[string]string{"who": "polylab"}, Optimize: true})
	res, err := k.Compile(context.Background(), disk, []*Compilation{main, lib}, "out.json")
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("Compile() = %+v", res)
	}
	data, err := disk.Read("out.json")
	if err != nil {
		t.Fatal(err)
	}
	if strings.ContainsAny(string(data), "\n ") {
		t.Errorf("release output not compact: %q", data)
	}
	var got struct {
		Sum int    `json:"sum"`
		Who string `json:"who"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Sum != 5 || got.Who != "polylab" {
		t.Errorf("output = %+v", got)
	}
}

func TestCompile_RuntimeErrorAndTrace(t *testing.T) {
	fs := source.NewFileSet()
	c := newCompilation(t, fs, "main.jsonnet", "std.trace(\"checkpoint\", 1) + error \"boom\"")
	disk := newDisk(t)

	res, err := NewChecker(Options{}).Compile(context.Background(), disk, []*Compilation{c}, "out.json")
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode == 0 {
		t.Fatal("expected non-zero exit code")
	}
	var sawTrace, sawErr bool
	for _, d := range res.Diagnostics {
		switch d.Code {
		case diag.EvalTrace:
			sawTrace = d.Severity == diag.SevInfo && strings.Contains(d.Message, "checkpoint")
		case diag.EvalRuntime:
			sawErr = strings.Contains(d.Message, "boom")
		}
	}
	if !sawTrace || !sawErr {
		t.Errorf("diagnostics = %+v", res.Diagnostics)
	}
	if disk.Writes("out.json") != 0 {
		t.Error("failed evaluation should not write output")
	}
}

func TestCompile_CancelDiscardsLateWrite(t *testing.T) {
	fs := source.NewFileSet()
	c := newCompilation(t, fs, "main.jsonnet", "{}")
	disk := newDisk(t)

	release := make(chan struct{})
	finished := make(chan struct{})
	slow := func(vm *jsonnet.VM, node ast.Node) (string, error) {
		defer close(finished)
		<-release
		return `{"late": true}`, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := NewChecker(Options{Evaluator: slow}).Compile(ctx, disk, []*Compilation{c}, "out.json")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	close(release)
	<-finished
	if n := disk.Writes("out.json"); n != 0 {
		t.Errorf("Writes() = %d after cancellation", n)
	}
}

func TestCompile_EmptyEvaluation(t *testing.T) {
	fs := source.NewFileSet()
	c := newCompilation(t, fs, "main.jsonnet", "{}")
	disk := newDisk(t)
	empty := func(*jsonnet.VM, ast.Node) (string, error) { return "", nil }

	res, err := NewChecker(Options{Evaluator: empty}).Compile(context.Background(), disk, []*Compilation{c}, "out.json")
	if err != nil || res.ExitCode != 0 {
		t.Fatalf("Compile() = %+v, %v", res, err)
	}
	if n, _ := disk.Size("out.json"); n != 0 {
		t.Errorf("Size() = %d", n)
	}
}

func TestCompile_NoInputs(t *testing.T) {
	if _, err := NewChecker(Options{}).Compile(context.Background(), vfs.NewDisk(), nil, "out.json"); !errors.Is(err, ErrNoSource) {
		t.Errorf("err = %v", err)
	}
}

func TestSpan_RejectsNegativeLocation(t *testing.T) {
	fs := source.NewFileSet()
	c := newCompilation(t, fs, "a.jsonnet", "{ a: 1 }\n")
	loc := ast.LocationRange{
		FileName: "a.jsonnet",
		Begin:    ast.Location{Line: -4, Column: 2},
		End:      ast.Location{Line: 1, Column: 5},
	}
	sp, ok := c.Span(loc)
	if ok {
		t.Fatalf("Span(%v) ok, want !ok", loc)
	}
	if sp.File != c.Source().ID || sp.Start != 0 || sp.End != 0 {
		t.Errorf("Span(%v) = %+v, want file start", loc, sp)
	}

	loc.Begin = ast.Location{Line: 1, Column: 3}
	loc.End = ast.Location{Line: 1, Column: -1}
	sp, ok = c.Span(loc)
	if !ok || sp.Start != 2 || sp.End != 2 {
		t.Errorf("Span(%v) = %+v, %v; want empty span at 2", loc, sp, ok)
	}
}
