package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"polylab/internal/diag"
)

func TestDisabledIsNoop(t *testing.T) {
	tel := Disabled()
	ctx, span := tel.Start(context.Background(), SpanCompile)
	tel.RecordCompile(ctx, "Go", true, time.Millisecond)
	tel.RecordDiagnostics(ctx, "Go", []diag.Diagnostic{{Severity: diag.SevError}})
	span.End()
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestInitWritesFiles(t *testing.T) {
	dir := t.TempDir()
	tel, err := Init(context.Background(), Config{Dir: dir, ServiceVersion: "test", Interval: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	ctx, span := tel.Start(context.Background(), SpanRequest, attribute.String("language", "Go"))
	_, child := tel.Start(ctx, SpanCompile)
	tel.RecordCompile(ctx, "Go", false, 3*time.Millisecond)
	tel.RecordDiagnostics(ctx, "Go", []diag.Diagnostic{
		{Severity: diag.SevError},
		{Severity: diag.SevWarning},
		{Severity: diag.SevError},
	})
	child.End()
	span.End()
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}

	traces, err := os.ReadFile(filepath.Join(dir, "traces.log"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{SpanRequest, SpanCompile} {
		if !strings.Contains(string(traces), want) {
			t.Errorf("traces.log lacks %s", want)
		}
	}
	metrics, err := os.ReadFile(filepath.Join(dir, "metrics.log"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"polylab.compile.duration", "polylab.diagnostics"} {
		if !strings.Contains(string(metrics), want) {
			t.Errorf("metrics.log lacks %s", want)
		}
	}
}

func TestInitWithoutDirIsDisabled(t *testing.T) {
	tel, err := Init(context.Background(), Config{})
	if err != nil {
		t.Fatal(err)
	}
	if len(tel.shutdown) != 0 {
		t.Error("disabled telemetry should own nothing")
	}
}
