package diag

import (
	"polylab/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

// Diagnostic is the normalized shape every backend diagnostic is turned into
// before it leaves the compilation dispatcher.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
}

// New builds a diagnostic without notes.
func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Message:  msg,
		Primary:  primary,
	}
}

// NewError is a shortcut for SevError diagnostics.
func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

// WithNote returns a copy of d with an extra note.
func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(append([]Note(nil), d.Notes...), Note{Span: sp, Msg: msg})
	return d
}
