// Package prof collects CPU, heap and runtime-trace profiles for one
// command run.
package prof

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// Options name the output files. Empty paths disable the profile.
type Options struct {
	CPU   string
	Mem   string
	Trace string
}

func (o Options) Enabled() bool {
	return o.CPU != "" || o.Mem != "" || o.Trace != ""
}

// Profiler owns the files of an active profiling run.
type Profiler struct {
	cpu     *os.File
	trace   *os.File
	memPath string
	stopped bool
}

// Start begins the profiles requested by opts. On error nothing is left
// running.
func Start(opts Options) (*Profiler, error) {
	p := &Profiler{memPath: opts.Mem}
	if opts.CPU != "" {
		f, err := os.Create(opts.CPU)
		if err != nil {
			return nil, fmt.Errorf("cpu profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("cpu profile: %w", err)
		}
		p.cpu = f
	}
	if opts.Trace != "" {
		f, err := os.Create(opts.Trace)
		if err != nil {
			_ = p.Stop()
			return nil, fmt.Errorf("runtime trace: %w", err)
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			_ = p.Stop()
			return nil, fmt.Errorf("runtime trace: %w", err)
		}
		p.trace = f
	}
	return p, nil
}

// Stop ends the running profiles and writes the heap profile. Calling it
// again is a no-op.
func (p *Profiler) Stop() error {
	if p == nil || p.stopped {
		return nil
	}
	p.stopped = true

	var errs []error
	if p.trace != nil {
		trace.Stop()
		errs = append(errs, p.trace.Close())
		p.trace = nil
	}
	if p.cpu != nil {
		pprof.StopCPUProfile()
		errs = append(errs, p.cpu.Close())
		p.cpu = nil
	}
	if p.memPath != "" {
		errs = append(errs, writeHeap(p.memPath))
	}
	return errors.Join(errs...)
}

func writeHeap(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("heap profile: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("heap profile: %w", err)
	}
	return nil
}
