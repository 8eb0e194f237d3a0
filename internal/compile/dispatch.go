package compile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"polylab/internal/backend"
	"polylab/internal/backend/functional"
	"polylab/internal/backend/script"
	"polylab/internal/diag"
	"polylab/internal/session"
	"polylab/internal/source"
	"polylab/internal/trace"
	"polylab/internal/vfs"
)

var ErrUnsupportedCompilation = errors.New("compilation does not support emission")

// collector keeps every diagnostic for the Result and forwards it to the
// caller's sink as it arrives.
type collector struct {
	bag  *diag.Bag
	sink diag.Reporter
}

func (c collector) Report(code diag.Code, sev diag.Severity, primary source.Span, msg string, notes []diag.Note) {
	diag.BagReporter{Bag: c.bag}.Report(code, sev, primary, msg, notes)
	if c.sink != nil {
		c.sink.Report(code, sev, primary, msg, notes)
	}
}

// Compile emits the session's compilation. sink may be nil. The returned
// error means the request could not run (no compilation, cancellation, I/O);
// compile problems are diagnostics in the Result.
func Compile(ctx context.Context, s *session.Session, sink diag.Reporter, opts Options) (Result, error) {
	if s == nil || s.Compilation == nil {
		return Result{}, session.ErrNoCompilation
	}
	if s.Compilation.Source() == nil {
		return Result{}, fmt.Errorf("%w: no source text", session.ErrNoCompilation)
	}

	span, ctx := trace.Start(ctx, trace.ScopeRequest, "compile")
	span.Set("family", s.Compilation.Family().String())

	r := collector{bag: diag.NewBag(0), sink: sink}
	var (
		res Result
		err error
	)
	switch c := s.Compilation.(type) {
	case *functional.Compilation:
		res, err = compileFunctional(ctx, c, r)
	case *script.Compilation:
		res, err = compileScript(c, r, opts)
	case backend.Emitter:
		res, err = compileDefault(ctx, c, r, opts)
	default:
		err = fmt.Errorf("%w: %T", ErrUnsupportedCompilation, c)
	}
	if err != nil {
		span.End("error")
		return Result{}, err
	}
	res.Diagnostics = r.bag.Items()
	span.End(fmt.Sprintf("success=%t", res.Success))
	return res, nil
}

func compileFunctional(ctx context.Context, c *functional.Compilation, r diag.Reporter) (Result, error) {
	disk := vfs.NewDisk()
	name := outputName(c.Source().Path, ".json")
	if err := disk.Register(name); err != nil {
		return Result{}, err
	}
	defer disk.Unregister(name)

	out, err := functional.NewChecker(c.Options()).Compile(ctx, disk, []*functional.Compilation{c}, name)
	if err != nil {
		return Result{}, err
	}
	// warnings were already surfaced by Check
	diag.ReportAll(diag.FilterReporter{Next: r, Min: diag.SevError}, out.Diagnostics)

	trace.Point(ctx, trace.ScopeBackend, "vfs",
		fmt.Sprintf("%s writes=%d", strings.Join(disk.List(), ","), disk.Writes(name)))
	data, err := disk.Read(name)
	if err != nil {
		return Result{}, err
	}
	if len(data) == 0 {
		if !hasErrors(out.Diagnostics) {
			diag.ReportError(r, diag.EmitEmptyArtifact, source.Span{File: c.Source().ID},
				fmt.Sprintf("output %s is empty (exit code %d)", name, out.ExitCode)).Emit()
		}
		return Result{}, nil
	}
	return Result{Success: true, Artifact: data}, nil
}

func compileScript(c *script.Compilation, r diag.Reporter, opts Options) (Result, error) {
	var art, sym bytes.Buffer
	var symW io.Writer
	if opts.Symbols {
		symW = &sym
	}
	// Emit closes the docs writer; hand it a scratch buffer and copy the
	// bytes out before it is dropped. Only a closed buffer holds a complete
	// document.
	var scratch *script.DocBuffer
	var docsW io.WriteCloser
	if opts.Docs {
		scratch = &script.DocBuffer{}
		docsW = scratch
	}

	er, err := c.Emit(&art, symW, docsW)
	var docs []byte
	if scratch != nil && scratch.Closed() {
		docs = bytes.Clone(scratch.Bytes())
	}
	if err != nil {
		return Result{}, err
	}
	for _, d := range er.Diagnostics {
		nd := NormalizeScript(c, d)
		r.Report(nd.Code, nd.Severity, nd.Primary, nd.Message, nd.Notes)
	}
	if !er.Success {
		return Result{}, nil
	}
	if art.Len() == 0 {
		diag.ReportError(r, diag.EmitEmptyArtifact, source.Span{File: c.Source().ID},
			"scripting backend produced an empty program").Emit()
		return Result{}, nil
	}

	res := Result{Success: true, Artifact: art.Bytes()}
	if opts.Symbols {
		res.Symbols = sym.Bytes()
	}
	if opts.Docs {
		res.Docs = docs
	}
	return res, nil
}

func compileDefault(ctx context.Context, c backend.Emitter, r diag.Reporter, opts Options) (Result, error) {
	var art, sym, docs bytes.Buffer
	var symW, docsW io.Writer
	if opts.Symbols {
		symW = &sym
	}
	if opts.Docs {
		docsW = &docs
	}
	er, err := c.Emit(ctx, &art, symW, docsW)
	if err != nil {
		return Result{}, err
	}
	diag.ReportAll(r, er.Diagnostics)
	if !er.Success {
		return Result{}, nil
	}
	res := Result{Success: true, Artifact: art.Bytes()}
	if opts.Symbols {
		res.Symbols = sym.Bytes()
	}
	if opts.Docs {
		res.Docs = docs.Bytes()
	}
	return res, nil
}

// NormalizeScript converts a scripting diagnostic to the common shape.
func NormalizeScript(c *script.Compilation, d script.Diagnostic) diag.Diagnostic {
	sev := diag.SevError
	if d.Severity == script.Warning {
		sev = diag.SevWarning
	}
	code := diag.IntInternal
	switch d.Kind {
	case script.KindSyntax:
		code = diag.SynParse
	case script.KindResolve:
		code = diag.SemaResolve
	case script.KindEntrypoint:
		code = diag.SemaNoEntrypoint
	case script.KindDocstring:
		code = diag.EmitMissingDoc
	}
	sp, ok := c.Span(d.Pos, d.End)
	if !ok && c.Source() != nil {
		sp = source.Span{File: c.Source().ID}
	}
	return diag.New(sev, code, sp, d.Msg)
}

// SyntaxDiagnostics returns parse problems of the session's compilation
// without emitting anything.
func SyntaxDiagnostics(s *session.Session) []diag.Diagnostic {
	switch c := s.Compilation.(type) {
	case *functional.Compilation:
		return c.Check()
	case *script.Compilation:
		native := c.SyntaxDiagnostics()
		out := make([]diag.Diagnostic, 0, len(native))
		for _, d := range native {
			out = append(out, NormalizeScript(c, d))
		}
		return out
	case interface{ SyntaxDiagnostics() []diag.Diagnostic }:
		return c.SyntaxDiagnostics()
	}
	return nil
}

func outputName(src, ext string) string {
	base := path.Base(strings.ReplaceAll(src, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "output"
	}
	return strings.TrimSuffix(base, path.Ext(base)) + ext
}

func hasErrors(ds []diag.Diagnostic) bool {
	for _, d := range ds {
		if d.Severity >= diag.SevError {
			return true
		}
	}
	return false
}
