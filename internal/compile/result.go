package compile

import (
	"polylab/internal/diag"
)

// Result is the normalized answer of one compile request.
type Result struct {
	Success  bool
	Artifact []byte
	// Symbols and Docs are nil when not requested or not produced.
	Symbols     []byte
	Docs        []byte
	Diagnostics []diag.Diagnostic
}

// Errors returns the error-severity diagnostics.
func (r Result) Errors() []diag.Diagnostic {
	return r.bySeverity(diag.SevError)
}

// Warnings returns the warning-severity diagnostics.
func (r Result) Warnings() []diag.Diagnostic {
	return r.bySeverity(diag.SevWarning)
}

func (r Result) bySeverity(sev diag.Severity) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

// Options select the optional outputs.
type Options struct {
	Symbols bool
	Docs    bool
}
