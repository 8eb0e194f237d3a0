// Package observ measures request phases (open, compile, decompile, ast,
// inspect) for --timings output.
package observ

import (
	"fmt"
	"strings"
	"time"
)

// Phase is one measured step of a request.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer collects phases of a single request. Not safe for concurrent use;
// each request owns its timer.
type Timer struct {
	phases []Phase
	now    func() time.Time
}

func NewTimer() *Timer {
	return &Timer{phases: make([]Phase, 0, 4), now: time.Now}
}

// Start opens a phase; the returned func closes it with an optional note.
func (t *Timer) Start(name string) func(note string) {
	if t == nil {
		return func(string) {}
	}
	t.phases = append(t.phases, Phase{Name: name, Start: t.now()})
	idx := len(t.phases) - 1
	return func(note string) {
		p := &t.phases[idx]
		if p.Dur != 0 {
			return
		}
		p.Dur = t.now().Sub(p.Start)
		p.Note = note
	}
}

// Phases returns the recorded phases in start order.
func (t *Timer) Phases() []Phase {
	if t == nil {
		return nil
	}
	return append([]Phase(nil), t.phases...)
}

// Total sums phase durations.
func (t *Timer) Total() time.Duration {
	var total time.Duration
	for _, p := range t.Phases() {
		total += p.Dur
	}
	return total
}

// Summary renders a small table for the terminal.
func (t *Timer) Summary() string {
	var b strings.Builder
	b.WriteString("timings:\n")
	for _, p := range t.Phases() {
		fmt.Fprintf(&b, "  %-12s %8.2f ms", p.Name, millis(p.Dur))
		if p.Note != "" {
			b.WriteString("  " + p.Note)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "  %-12s %8.2f ms\n", "total", millis(t.Total()))
	return b.String()
}

// PhaseReport is the JSON form of one phase.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

func (t *Timer) Report() Report {
	phases := t.Phases()
	r := Report{Phases: make([]PhaseReport, 0, len(phases))}
	for _, p := range phases {
		r.Phases = append(r.Phases, PhaseReport{Name: p.Name, DurationMS: millis(p.Dur), Note: p.Note})
	}
	r.TotalMS = millis(t.Total())
	return r
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
