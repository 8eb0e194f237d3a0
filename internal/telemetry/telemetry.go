// Package telemetry exports request spans and metrics with OpenTelemetry.
//
// With a directory configured, traces and metrics are written as JSON by the
// stdout exporters into size-rotated files. Without one every call is a
// no-op.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"polylab/internal/diag"
)

const (
	instrumentation = "polylab"

	SpanRequest   = "polylab.request"
	SpanCompile   = "polylab.compile"
	SpanDecompile = "polylab.decompile"
	SpanAST       = "polylab.ast"
)

// Config controls where telemetry goes.
type Config struct {
	// Dir receives traces.log and metrics.log. Empty disables telemetry.
	Dir            string
	ServiceVersion string
	MaxSizeMB      int
	MaxBackups     int
	// Interval between metric exports; Shutdown always flushes.
	Interval time.Duration
}

type Telemetry struct {
	tracer          trace.Tracer
	compileDuration metric.Float64Histogram
	diagnostics     metric.Int64Counter
	shutdown        []func(context.Context) error
}

// Disabled returns telemetry backed by no-op providers.
func Disabled() *Telemetry {
	t, _ := newTelemetry(tracenoop.NewTracerProvider().Tracer(instrumentation),
		metricnoop.NewMeterProvider().Meter(instrumentation))
	return t
}

func newTelemetry(tracer trace.Tracer, meter metric.Meter) (*Telemetry, error) {
	hist, err := meter.Float64Histogram("polylab.compile.duration",
		metric.WithDescription("Compile request duration in milliseconds"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram: %w", err)
	}
	counter, err := meter.Int64Counter("polylab.diagnostics",
		metric.WithDescription("Diagnostics reported to callers"))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	return &Telemetry{tracer: tracer, compileDuration: hist, diagnostics: counter}, nil
}

func rotating(dir, name string, cfg Config) *lumberjack.Logger {
	size := cfg.MaxSizeMB
	if size <= 0 {
		size = 10
	}
	backups := cfg.MaxBackups
	if backups <= 0 {
		backups = 3
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    size,
		MaxBackups: backups,
		MaxAge:     28,
		Compress:   true,
	}
}

// Init sets up exporters and registers the providers globally.
func Init(ctx context.Context, cfg Config) (*Telemetry, error) {
	if cfg.Dir == "" {
		return Disabled(), nil
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}
	version := cfg.ServiceVersion
	if version == "" {
		version = "dev"
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(instrumentation),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	traceFile := rotating(cfg.Dir, "traces.log", cfg)
	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(traceFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)

	metricsFile := rotating(cfg.Dir, "metrics.log", cfg)
	metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(metricsFile))
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	t, err := newTelemetry(tp.Tracer(instrumentation), mp.Meter(instrumentation))
	if err != nil {
		return nil, err
	}
	t.shutdown = []func(context.Context) error{
		tp.Shutdown,
		mp.Shutdown,
		func(context.Context) error { return traceFile.Close() },
		func(context.Context) error { return metricsFile.Close() },
	}
	return t, nil
}

// Start opens a span named name.
func (t *Telemetry) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordCompile records one compile request.
func (t *Telemetry) RecordCompile(ctx context.Context, language string, success bool, d time.Duration) {
	t.compileDuration.Record(ctx, float64(d)/float64(time.Millisecond), metric.WithAttributes(
		attribute.String("language", language),
		attribute.Bool("success", success),
	))
}

// RecordDiagnostics counts ds by severity.
func (t *Telemetry) RecordDiagnostics(ctx context.Context, language string, ds []diag.Diagnostic) {
	var counts [diag.SevError + 1]int64
	for _, d := range ds {
		if d.Severity <= diag.SevError {
			counts[d.Severity]++
		}
	}
	for sev := diag.Severity(0); sev <= diag.SevError; sev++ {
		n := counts[sev]
		if n == 0 {
			continue
		}
		t.diagnostics.Add(ctx, n, metric.WithAttributes(
			attribute.String("language", language),
			attribute.String("severity", sev.String()),
		))
	}
}

// Shutdown flushes exporters and closes the files.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range t.shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	t.shutdown = nil
	return errors.Join(errs...)
}
