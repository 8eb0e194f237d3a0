// Package diag defines the diagnostic model every compilation backend is
// normalized into.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity: info, warning or error (severity.go).
//   - Code: compact numeric identifier with a stable string form (codes.go).
//   - Message: short human oriented text.
//   - Primary: source.Span pointing at the issue, half-open byte range.
//   - Notes: optional secondary spans with extra context.
//
// Backends keep their own native diagnostic shapes; only the compilation
// dispatcher converts them into Diagnostic values before they reach callers.
//
// # Emitting diagnostics
//
// Producers report through a Reporter. BagReporter stores into a Bag, which
// enforces a size limit and supports sorting, deduplication and filtering.
// FilterReporter drops everything below a severity threshold; the functional
// backend path uses it to forward errors only.
//
// Package diag does no rendering. Pretty and JSON output lives in
// internal/diagfmt; FormatShortDiagnostics is the single-line form printed by
// `--format short`.
package diag
