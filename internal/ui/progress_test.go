package ui

import (
	"strings"
	"testing"

	"polylab/internal/driver"
)

func TestProgressModel_Statuses(t *testing.T) {
	events := make(chan driver.PhaseEvent)
	m := NewProgressModel("compile", []string{"a.go", "", "c.jsonnet"}, events).(*progressModel)

	m.applyEvent(driver.PhaseEvent{Path: "a.go", Name: "compile", Status: driver.PhaseStart})
	m.applyEvent(driver.PhaseEvent{Path: "", Name: driver.PhaseFailed, Status: driver.PhaseEnd})
	m.applyEvent(driver.PhaseEvent{Path: "c.jsonnet", Name: driver.PhaseDone, Status: driver.PhaseEnd})
	m.applyEvent(driver.PhaseEvent{Path: "unknown.star", Name: "open", Status: driver.PhaseStart})

	want := []string{"compiling", statusFailed, statusDone}
	for i, item := range m.items {
		if item.status != want[i] {
			t.Errorf("items[%d].status = %q, want %q", i, item.status, want[i])
		}
	}

	view := m.View()
	for _, s := range []string{"compiling", "<stdin>", "c.jsonnet"} {
		if !strings.Contains(view, s) {
			t.Errorf("view missing %q:\n%s", s, view)
		}
	}
}

func TestProgressModel_QuitsWhenEventsClose(t *testing.T) {
	events := make(chan driver.PhaseEvent)
	close(events)
	m := NewProgressModel("ast", []string{"x.star"}, events).(*progressModel)
	if msg := m.listenForEvent()(); msg != (doneMsg{}) {
		t.Fatalf("msg = %#v", msg)
	}
	m.Update(doneMsg{})
	if !m.done || !strings.HasPrefix(stripANSI(m.View()), "done: ast") {
		t.Errorf("view = %q", m.View())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("internal/very/long/path.go", 10); got != "interna..." {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("short.go", 10); got != "short.go" {
		t.Errorf("truncate() = %q", got)
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			inEscape = false
		case !inEscape:
			b.WriteRune(r)
		}
	}
	return b.String()
}
