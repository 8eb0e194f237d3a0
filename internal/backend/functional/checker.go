package functional

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"strings"

	"github.com/google/go-jsonnet"
	"github.com/google/go-jsonnet/ast"

	"polylab/internal/diag"
	"polylab/internal/trace"
)

// Evaluator turns a desugared program into its JSON text. Trace output of
// std.trace goes to traceOut.
type Evaluator func(vm *jsonnet.VM, node ast.Node) (string, error)

func vmEvaluate(vm *jsonnet.VM, node ast.Node) (string, error) {
	return vm.Evaluate(node)
}

type Options struct {
	MaxStack int
	ExtVars  map[string]string
	// Release output is compacted JSON.
	Optimize bool
	// Evaluator replaces the VM evaluation; nil uses go-jsonnet.
	Evaluator Evaluator
}

func (o Options) Clone() Options {
	o.ExtVars = maps.Clone(o.ExtVars)
	return o
}

// OutputFS is the only way compiled output leaves the checker.
type OutputFS interface {
	Create(name string) (io.WriteCloser, error)
}

// Result is the checker's answer: an exit code and every diagnostic it
// produced, including trace output at info severity.
type Result struct {
	ExitCode    int
	Diagnostics []diag.Diagnostic
}

type Checker struct {
	opts Options
}

func NewChecker(opts Options) *Checker {
	return &Checker{opts: opts.Clone()}
}

type evalResult struct {
	json  string
	trace []byte
	err   error
}

// Compile evaluates inputs[0] with the other inputs importable by path and
// writes the JSON to outputPath on out. Cancelling ctx returns ctx.Err()
// immediately; the evaluation goroutine may still finish, but its result is
// dropped and nothing is written.
func (k *Checker) Compile(ctx context.Context, out OutputFS, inputs []*Compilation, outputPath string) (Result, error) {
	if len(inputs) == 0 || inputs[0].Source() == nil {
		return Result{}, ErrNoSource
	}
	main := inputs[0]

	span, ctx := trace.Start(ctx, trace.ScopeBackend, "functional_compile")
	span.Set("output", outputPath)
	defer span.End("")

	var res Result
	for _, in := range inputs {
		res.Diagnostics = append(res.Diagnostics, in.Check()...)
	}
	if hasErrors(res.Diagnostics) {
		res.ExitCode = 1
		return res, nil
	}

	vm := jsonnet.MakeVM()
	if k.opts.MaxStack > 0 {
		vm.MaxStack = k.opts.MaxStack
	}
	for key, val := range k.opts.ExtVars {
		vm.ExtVar(key, val)
	}
	imports := make(map[string]jsonnet.Contents, len(inputs)-1)
	for _, in := range inputs[1:] {
		imports[in.Source().Path] = jsonnet.MakeContents(string(in.Source().Content))
	}
	vm.Importer(&jsonnet.MemoryImporter{Data: imports})

	eval := k.opts.Evaluator
	if eval == nil {
		eval = vmEvaluate
	}
	node := main.Program()

	done := make(chan evalResult, 1)
	go func() {
		var traceBuf bytes.Buffer
		vm.SetTraceOut(&traceBuf)
		s, err := eval(vm, node)
		done <- evalResult{json: s, trace: traceBuf.Bytes(), err: err}
	}()

	var r evalResult
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r = <-done:
	}

	res.Diagnostics = append(res.Diagnostics, main.traceDiagnostics(r.trace)...)
	if r.err != nil {
		res.Diagnostics = append(res.Diagnostics, main.runtimeDiagnostic(r.err))
		res.ExitCode = 1
		return res, nil
	}

	text := r.json
	if k.opts.Optimize && text != "" {
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(strings.TrimSpace(text))); err != nil {
			return res, fmt.Errorf("failed to compact output: %w", err)
		}
		text = buf.String()
	}

	w, err := out.Create(outputPath)
	if err != nil {
		return res, fmt.Errorf("failed to open %s: %w", outputPath, err)
	}
	if _, err := io.WriteString(w, text); err != nil {
		_ = w.Close()
		return res, fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	if err := w.Close(); err != nil {
		return res, fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	return res, nil
}

func hasErrors(ds []diag.Diagnostic) bool {
	for _, d := range ds {
		if d.Severity >= diag.SevError {
			return true
		}
	}
	return false
}

func (c *Compilation) traceDiagnostics(out []byte) []diag.Diagnostic {
	var ds []diag.Diagnostic
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		ds = append(ds, diag.New(diag.SevInfo, diag.EvalTrace, c.fileStart(), line))
	}
	return ds
}

func (c *Compilation) runtimeDiagnostic(err error) diag.Diagnostic {
	var rt jsonnet.RuntimeError
	if errors.As(err, &rt) {
		primary := c.fileStart()
		var notes []diag.Note
		for i, frame := range rt.StackTrace {
			sp, ok := c.Span(frame.Loc)
			if !ok {
				continue
			}
			if i == 0 {
				primary = sp
				continue
			}
			notes = append(notes, diag.Note{Span: sp, Msg: "called from " + frame.Name})
		}
		d := diag.NewError(diag.EvalRuntime, primary, rt.Msg)
		d.Notes = notes
		return d
	}
	return diag.NewError(diag.EvalRuntime, c.fileStart(), firstLine(err.Error()))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
