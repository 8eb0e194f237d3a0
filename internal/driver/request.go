package driver

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"polylab/internal/compile"
	"polylab/internal/diag"
	"polylab/internal/jsonw"
	"polylab/internal/language"
	"polylab/internal/observ"
	"polylab/internal/session"
	"polylab/internal/source"
	"polylab/internal/telemetry"
	"polylab/internal/trace"
)

// Request is one unit of work on a fresh session.
type Request struct {
	Language string
	// Path names the virtual source file; it defaults to a name derived from
	// the language.
	Path     string
	Text     []byte
	Target   session.TargetKind
	Optimize session.Optimize
	Timings  bool
}

// Result is what a request produced. Output holds the decompiled text, the
// AST JSON or the hex dump, depending on the target.
type Result struct {
	Language    string
	Path        string
	Target      session.TargetKind
	Optimize    session.Optimize
	Success     bool
	Output      string
	Artifact    []byte
	Symbols     []byte
	Docs        []byte
	Diagnostics []diag.Diagnostic
	Files       *source.FileSet
	Timing      *observ.Report
}

// Errors lists error diagnostics.
func (r Result) Errors() []diag.Diagnostic { return r.bySeverity(diag.SevError) }

// Warnings lists warning diagnostics.
func (r Result) Warnings() []diag.Diagnostic { return r.bySeverity(diag.SevWarning) }

func (r Result) bySeverity(sev diag.Severity) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

func defaultPath(lang string) string {
	switch lang {
	case language.LangStarlark:
		return "main.star"
	case language.LangJsonnet:
		return "main.jsonnet"
	}
	return "main.go"
}

// Open creates a session for req and loads its text.
func (d *Driver) Open(req Request) (*session.Session, language.Adapter, error) {
	path := req.Path
	if path == "" {
		a, err := d.registry.Lookup(req.Language)
		if err != nil {
			return nil, nil, err
		}
		path = defaultPath(a.Name())
	}
	s, a, err := d.registry.Open(req.Language, path, req.Target, req.Optimize)
	if err != nil {
		return nil, nil, err
	}
	s.SetText(req.Text)
	return s, a, nil
}

// Process runs req. The error is reserved for requests that could not run
// (unknown language, cancellation); compile problems are diagnostics.
func (d *Driver) Process(ctx context.Context, req Request) (Result, error) {
	span, ctx := trace.Start(ctx, trace.ScopeRequest, "request")
	span.Set("language", req.Language).Set("target", req.Target.String())

	ctx, otelSpan := d.telemetry.Start(ctx, telemetry.SpanRequest,
		attribute.String("polylab.language", req.Language),
		attribute.String("polylab.target", req.Target.String()),
		attribute.String("polylab.optimize", req.Optimize.String()),
	)
	defer otelSpan.End()

	ph := newPhases(req.Path, req.Timings, d.observer)

	done := ph.begin("open")
	s, a, err := d.Open(req)
	if err != nil {
		done("error")
		ph.finish(false)
		span.End("error")
		otelSpan.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	done(a.Name())

	res := Result{
		Language: a.Name(),
		Path:     s.Path(),
		Target:   s.Target,
		Optimize: s.Optimize,
		Files:    s.Files(),
	}
	switch s.Target {
	case session.TargetAST:
		err = d.processAST(ctx, s, a, ph, &res)
	case session.TargetInspect:
		err = d.processInspect(ctx, s, ph, &res)
	default:
		err = d.processCompile(ctx, s, ph, &res)
	}
	if err != nil {
		ph.finish(false)
		span.End("error")
		otelSpan.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	res.Diagnostics = d.limit(res.Diagnostics)
	res.Timing = ph.report()
	d.telemetry.RecordDiagnostics(ctx, res.Language, res.Diagnostics)
	otelSpan.SetAttributes(attribute.Bool("polylab.success", res.Success))
	ph.finish(res.Success)
	span.End(fmt.Sprintf("success=%t", res.Success))
	return res, nil
}

func (d *Driver) compile(ctx context.Context, s *session.Session, ph *phases) (compile.Result, error) {
	ctx, otelSpan := d.telemetry.Start(ctx, telemetry.SpanCompile,
		attribute.String("polylab.family", s.Compilation.Family().String()))
	defer otelSpan.End()

	done := ph.begin("compile")
	started := time.Now()
	cr, err := compile.Compile(ctx, s, nil, compile.Options{Symbols: true, Docs: true})
	if err != nil {
		done("error")
		otelSpan.SetStatus(codes.Error, err.Error())
		return compile.Result{}, err
	}
	d.telemetry.RecordCompile(ctx, s.Language(), cr.Success, time.Since(started))
	done(fmt.Sprintf("%d bytes", len(cr.Artifact)))
	return cr, nil
}

func (d *Driver) processCompile(ctx context.Context, s *session.Session, ph *phases, res *Result) error {
	cr, err := d.compile(ctx, s, ph)
	if err != nil {
		return err
	}
	res.Success = cr.Success
	res.Artifact, res.Symbols, res.Docs = cr.Artifact, cr.Symbols, cr.Docs
	res.Diagnostics = cr.Diagnostics
	if !cr.Success {
		return nil
	}

	ctx, otelSpan := d.telemetry.Start(ctx, telemetry.SpanDecompile)
	defer otelSpan.End()
	done := ph.begin("decompile")
	text, err := d.decompiler.Decompile(ctx, s.Compilation.Family(), cr.Artifact, cr.Docs)
	if err != nil {
		done("error")
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// the artifact is unreadable: a backend fault, not a crash
		res.Success = false
		res.Diagnostics = append(res.Diagnostics, diag.NewError(diag.IntInternal, source.Span{File: s.File().ID}, err.Error()))
		return nil
	}
	done("")
	res.Output = text
	return nil
}

// processAST streams the syntax tree. The result is successful even when the
// source has syntax errors; they are reported next to the tree.
func (d *Driver) processAST(ctx context.Context, s *session.Session, a language.Adapter, ph *phases, res *Result) error {
	_, otelSpan := d.telemetry.Start(ctx, telemetry.SpanAST)
	defer otelSpan.End()

	res.Success = true
	p, ok := a.(language.ASTProvider)
	if !ok {
		return nil
	}
	done := ph.begin("ast")
	var buf bytes.Buffer
	w := jsonw.New(&buf)
	if err := p.WriteAST(s, w); err != nil {
		done("error")
		return fmt.Errorf("write %s syntax tree: %w", a.Name(), err)
	}
	if err := w.Flush(); err != nil {
		done("error")
		return err
	}
	done(fmt.Sprintf("%d bytes", buf.Len()))
	res.Output = buf.String()
	res.Diagnostics = compile.SyntaxDiagnostics(s)
	return ctx.Err()
}

func (d *Driver) processInspect(ctx context.Context, s *session.Session, ph *phases, res *Result) error {
	cr, err := d.compile(ctx, s, ph)
	if err != nil {
		return err
	}
	res.Success = cr.Success
	res.Artifact, res.Symbols, res.Docs = cr.Artifact, cr.Symbols, cr.Docs
	res.Diagnostics = cr.Diagnostics
	if cr.Success {
		done := ph.begin("inspect")
		res.Output = hex.Dump(cr.Artifact)
		done("")
	}
	return nil
}

func (d *Driver) limit(ds []diag.Diagnostic) []diag.Diagnostic {
	bag := diag.NewBag(0)
	bag.AddAll(ds)
	bag.Sort()
	bag.Dedup()
	items := bag.Items()
	if d.maxDiagnostics > 0 && len(items) > d.maxDiagnostics {
		items = items[:d.maxDiagnostics]
	}
	return items
}

// ParameterLines answers a parameter-line query at a 1-based position.
// Languages without the capability return an empty result.
func (d *Driver) ParameterLines(language string, text []byte, line, column int) ([]int, error) {
	s, a, err := d.Open(Request{Language: language, Text: text})
	if err != nil {
		return nil, err
	}
	return a.ResolveParameterSpans(s, line, column), nil
}
