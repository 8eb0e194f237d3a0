package driver

import (
	"time"

	"polylab/internal/observ"
)

// phases wraps observ.Timer and mirrors boundaries to the observer.
type phases struct {
	path     string
	timer    *observ.Timer
	observer PhaseObserver
	started  time.Time
}

func newPhases(path string, enabled bool, observer PhaseObserver) *phases {
	p := &phases{path: path, observer: observer, started: time.Now()}
	if enabled {
		p.timer = observ.NewTimer()
	}
	return p
}

func (p *phases) begin(name string) func(note string) {
	started := time.Now()
	if p.observer != nil {
		p.observer(PhaseEvent{Path: p.path, Name: name, Status: PhaseStart})
	}
	done := p.timer.Start(name)
	return func(note string) {
		done(note)
		if p.observer != nil {
			p.observer(PhaseEvent{Path: p.path, Name: name, Status: PhaseEnd, Elapsed: time.Since(started)})
		}
	}
}

// finish reports the terminal event of the request.
func (p *phases) finish(success bool) {
	if p.observer == nil {
		return
	}
	name := PhaseDone
	if !success {
		name = PhaseFailed
	}
	p.observer(PhaseEvent{Path: p.path, Name: name, Status: PhaseEnd, Elapsed: time.Since(p.started)})
}

func (p *phases) report() *observ.Report {
	if p.timer == nil {
		return nil
	}
	r := p.timer.Report()
	return &r
}
