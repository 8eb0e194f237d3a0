package trace

import (
	"context"
	"sync/atomic"
	"time"
)

type Kind uint8

const (
	KindBegin Kind = iota + 1
	KindEnd
	KindPoint
	KindHeartbeat
)

var kindNames = [...]string{KindBegin: "begin", KindEnd: "end", KindPoint: "point", KindHeartbeat: "heartbeat"}

func (k Kind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Attr is one key/value pair attached to an end event.
type Attr struct {
	Key, Value string
}

type Event struct {
	Time   time.Time
	Seq    uint64
	Kind   Kind
	Scope  Scope
	Span   uint64
	Parent uint64
	Name   string // "request", "compile", "gotypes_emit"...
	Detail string
	Attrs  []Attr
}

var (
	seq     atomic.Uint64
	spanIDs atomic.Uint64
)

func newEvent(kind Kind, scope Scope, name string) *Event {
	return &Event{Time: time.Now(), Seq: seq.Add(1), Kind: kind, Scope: scope, Name: name}
}

// Span is an open span. A nil *Span is valid and does nothing, which is what
// Start returns when the scope is not recorded.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	scope   Scope
	name    string
	started time.Time
	attrs   []Attr
}

// Start opens a span under the current span of ctx and returns the context
// carrying it.
func Start(ctx context.Context, scope Scope, name string) (*Span, context.Context) {
	t := FromContext(ctx)
	if !t.Level().Records(scope) {
		return nil, ctx
	}
	s := &Span{
		tracer:  t,
		id:      spanIDs.Add(1),
		parent:  CurrentSpan(ctx),
		scope:   scope,
		name:    name,
		started: time.Now(),
	}
	ev := newEvent(KindBegin, scope, name)
	ev.Span, ev.Parent, ev.Time = s.id, s.parent, s.started
	t.Emit(ev)
	return s, context.WithValue(ctx, spanKey{}, s.id)
}

// Set attaches key=value to the end event.
func (s *Span) Set(key, value string) *Span {
	if s != nil {
		s.attrs = append(s.attrs, Attr{Key: key, Value: value})
	}
	return s
}

// End emits the end event and returns the span's duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil {
		return 0
	}
	d := time.Since(s.started)
	ev := newEvent(KindEnd, s.scope, s.name)
	ev.Span, ev.Parent, ev.Detail, ev.Attrs = s.id, s.parent, detail, s.attrs
	s.tracer.Emit(ev)
	return d
}

func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Point emits an instant event under the current span of ctx.
func Point(ctx context.Context, scope Scope, name, detail string) {
	t := FromContext(ctx)
	if !t.Level().Records(scope) {
		return
	}
	ev := newEvent(KindPoint, scope, name)
	ev.Parent, ev.Detail = CurrentSpan(ctx), detail
	t.Emit(ev)
}
