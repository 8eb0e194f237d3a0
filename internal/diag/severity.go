package diag

import "fmt"

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	// SevInfo is for informational diagnostics.
	SevInfo Severity = iota
	// SevWarning is for warning diagnostics.
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "info"
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	}
	return "unknown"
}

// ParseSeverity is the inverse of Severity.String.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "info", "INFO", "hidden":
		return SevInfo, nil
	case "warning", "WARNING":
		return SevWarning, nil
	case "error", "ERROR":
		return SevError, nil
	}
	return SevInfo, fmt.Errorf("unknown severity %q (expected: info|warning|error)", s)
}
