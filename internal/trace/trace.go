// Package trace is polylab's debug event log: nested spans and instant
// events for the driver, the compile dispatcher and the backends.
//
// A Tracer travels in the context. Start opens a span under the span already
// in the context; End closes it. Which spans are recorded depends on the
// Level:
//
//	phase   driver and request spans
//	detail  plus backend spans
//	debug   plus per-node events
//
// Usage:
//
//	polylab compile --trace=- --trace-level=detail main.go
//	polylab ast --trace=out/trace.ndjson --trace-mode=both job.jsonnet
package trace

import (
	"context"
	"fmt"
	"strings"
)

type Level uint8

const (
	LevelOff Level = iota
	LevelError
	LevelPhase
	LevelDetail
	LevelDebug
)

var levelNames = [...]string{"off", "error", "phase", "detail", "debug"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

func ParseLevel(s string) (Level, error) {
	for l := LevelOff; int(l) < len(levelNames); l++ {
		if strings.EqualFold(s, levelNames[l]) {
			return l, nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: %s)", s, strings.Join(levelNames[:], "|"))
}

// Scope is the granularity of an event; coarser scopes have smaller values.
type Scope uint8

const (
	ScopeDriver Scope = iota + 1
	ScopeRequest
	ScopeBackend
	ScopeNode
)

var scopeNames = [...]string{ScopeDriver: "driver", ScopeRequest: "request", ScopeBackend: "backend", ScopeNode: "node"}

func (s Scope) String() string {
	if s > 0 && int(s) < len(scopeNames) {
		return scopeNames[s]
	}
	return "unknown"
}

// deepest maps a level to the finest scope it records. LevelError records
// nothing on its own; the ring is dumped when a command fails.
var deepest = [...]Scope{LevelPhase: ScopeRequest, LevelDetail: ScopeBackend, LevelDebug: ScopeNode}

// Records reports whether events of scope are kept at level l.
func (l Level) Records(scope Scope) bool {
	if int(l) >= len(deepest) {
		return false
	}
	return scope <= deepest[l]
}

// Tracer receives events. Implementations are safe for concurrent use.
type Tracer interface {
	Emit(ev *Event)
	Level() Level
	Close() error
}

type nopTracer struct{}

func (nopTracer) Emit(*Event)  {}
func (nopTracer) Level() Level { return LevelOff }
func (nopTracer) Close() error { return nil }

// Nop drops everything.
var Nop Tracer = nopTracer{}

type tracerKey struct{}

type spanKey struct{}

func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// FromContext returns the tracer in ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
		return t
	}
	return Nop
}

// CurrentSpan returns the id of the innermost open span in ctx, 0 if none.
func CurrentSpan(ctx context.Context) uint64 {
	if ctx == nil {
		return 0
	}
	id, _ := ctx.Value(spanKey{}).(uint64)
	return id
}
