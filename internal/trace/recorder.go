package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Mode selects where a Recorder keeps events.
type Mode uint8

const (
	ModeStream Mode = iota + 1 // write each event as it happens
	ModeRing                   // keep the last RingSize events in memory
	ModeBoth
)

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "stream":
		return ModeStream, nil
	case "ring":
		return ModeRing, nil
	case "both":
		return ModeBoth, nil
	}
	return 0, fmt.Errorf("invalid trace mode: %q (expected: stream|ring|both)", s)
}

type Config struct {
	Level  Level
	Mode   Mode
	Format Format // FormatAuto picks by OutputPath extension
	// Output wins over OutputPath. OutputPath "-" or "" means stderr; files
	// rotate after MaxSizeMB (default 100).
	Output     io.Writer
	OutputPath string
	MaxSizeMB  int
	RingSize   int           // default 4096
	Heartbeat  time.Duration // 0 disables heartbeats
}

// Recorder is the Tracer behind the --trace flags. It streams events to a
// writer, keeps a ring of recent ones, or both.
type Recorder struct {
	level  Level
	format Format

	mu   sync.Mutex
	out  io.Writer
	ring []Event
	next int
	full bool

	stopBeat chan struct{}
	beatDone sync.WaitGroup
	closed   bool
}

// New builds a Recorder from cfg, or returns Nop for LevelOff.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	r := &Recorder{level: cfg.Level, format: cfg.Format}
	if r.format == FormatAuto {
		r.format = formatForPath(cfg.OutputPath)
	}
	switch cfg.Mode {
	case ModeStream, ModeBoth, ModeRing:
	default:
		return nil, fmt.Errorf("unknown trace mode %d", cfg.Mode)
	}
	if cfg.Mode != ModeRing {
		out, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		r.out = out
	}
	if cfg.Mode != ModeStream {
		size := cfg.RingSize
		if size <= 0 {
			size = 4096
		}
		r.ring = make([]Event, size)
	}
	if cfg.Heartbeat > 0 {
		r.startHeartbeat(cfg.Heartbeat)
	}
	return r, nil
}

func openOutput(cfg Config) (io.Writer, error) {
	if cfg.Output != nil {
		return cfg.Output, nil
	}
	if cfg.OutputPath == "" || cfg.OutputPath == "-" {
		return os.Stderr, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.OutputPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	size := cfg.MaxSizeMB
	if size <= 0 {
		size = 100
	}
	return &lumberjack.Logger{Filename: cfg.OutputPath, MaxSize: size, MaxBackups: 3}, nil
}

func (r *Recorder) Level() Level { return r.level }

func (r *Recorder) Emit(ev *Event) {
	if ev.Kind != KindHeartbeat && !r.level.Records(ev.Scope) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ring != nil {
		r.ring[r.next] = *ev
		r.next = (r.next + 1) % len(r.ring)
		r.full = r.full || r.next == 0
	}
	if r.out != nil {
		// ошибки записи трассы не должны ронять запрос
		_, _ = r.out.Write(Encode(ev, r.format))
	}
}

// Buffered reports whether r keeps a ring of recent events.
func (r *Recorder) Buffered() bool { return r.ring != nil }

// Snapshot returns the ring contents, oldest first.
func (r *Recorder) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]Event(nil), r.ring[:r.next]...)
	}
	out := make([]Event, 0, len(r.ring))
	out = append(out, r.ring[r.next:]...)
	return append(out, r.ring[:r.next]...)
}

// Dump writes the ring contents to w.
func (r *Recorder) Dump(w io.Writer, format Format) error {
	for _, ev := range r.Snapshot() {
		if _, err := w.Write(Encode(&ev, format)); err != nil {
			return err
		}
	}
	return nil
}

// Close stops the heartbeat and closes a file output. Standard streams and
// caller-supplied writers other than closers stay open.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	stop := r.stopBeat
	r.mu.Unlock()

	if stop != nil {
		close(stop)
		r.beatDone.Wait()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.out == os.Stderr || r.out == os.Stdout {
		return nil
	}
	var errs []error
	if f, ok := r.out.(interface{ Flush() error }); ok {
		errs = append(errs, f.Flush())
	}
	if c, ok := r.out.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// startHeartbeat emits a heartbeat every interval until Close. A request
// stuck in evaluation shows up as heartbeats with no matching span end.
func (r *Recorder) startHeartbeat(interval time.Duration) {
	r.stopBeat = make(chan struct{})
	r.beatDone.Add(1)
	go func() {
		defer r.beatDone.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for n := 1; ; n++ {
			select {
			case <-ticker.C:
				ev := newEvent(KindHeartbeat, ScopeDriver, "heartbeat")
				ev.Detail = fmt.Sprintf("#%d", n)
				r.Emit(ev)
			case <-r.stopBeat:
				return
			}
		}
	}()
}
