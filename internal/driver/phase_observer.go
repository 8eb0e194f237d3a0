package driver

import "time"

// PhaseStatus reports whether a phase started or finished.
type PhaseStatus int

const (
	// PhaseStart indicates that a request phase has begun.
	PhaseStart PhaseStatus = iota
	PhaseEnd
)

// Terminal event names. Every request ends with exactly one PhaseEnd event
// named PhaseDone or PhaseFailed.
const (
	PhaseDone   = "done"
	PhaseFailed = "failed"
)

// PhaseEvent describes a timing phase boundary of one request.
type PhaseEvent struct {
	Path    string
	Name    string
	Status  PhaseStatus
	Elapsed time.Duration
}

// PhaseObserver receives phase events emitted during Process. It may be
// called from several goroutines when requests run in parallel.
type PhaseObserver func(PhaseEvent)
