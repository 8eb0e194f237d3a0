// Package driver runs requests against language sessions: it opens the
// session, compiles or serializes according to the target and collects
// diagnostics, timings and telemetry.
package driver

import (
	"errors"

	"polylab/internal/decompile"
	"polylab/internal/language"
	"polylab/internal/telemetry"
)

var ErrNoRegistry = errors.New("driver needs a language registry")

// Options configure a Driver.
type Options struct {
	Registry *language.Registry
	// Decompiler defaults to one backed by the shared reference cache.
	Decompiler *decompile.Decompiler
	// Telemetry defaults to telemetry.Disabled().
	Telemetry *telemetry.Telemetry
	// MaxDiagnostics limits diagnostics per request; 0 means unlimited.
	MaxDiagnostics int
	Observer       PhaseObserver
}

// Driver is safe for concurrent use; every request gets its own session.
type Driver struct {
	registry       *language.Registry
	decompiler     *decompile.Decompiler
	telemetry      *telemetry.Telemetry
	maxDiagnostics int
	observer       PhaseObserver
}

func New(opts Options) (*Driver, error) {
	if opts.Registry == nil {
		return nil, ErrNoRegistry
	}
	d := &Driver{
		registry:       opts.Registry,
		decompiler:     opts.Decompiler,
		telemetry:      opts.Telemetry,
		maxDiagnostics: max(opts.MaxDiagnostics, 0),
		observer:       opts.Observer,
	}
	if d.decompiler == nil {
		dec, err := decompile.New(decompile.Options{})
		if err != nil {
			return nil, err
		}
		d.decompiler = dec
	}
	if d.telemetry == nil {
		d.telemetry = telemetry.Disabled()
	}
	return d, nil
}

// Registry returns the registry requests are opened against.
func (d *Driver) Registry() *language.Registry { return d.registry }

// WithObserver returns a driver sharing d's registry, decompiler and
// telemetry that reports phase events to observer.
func (d *Driver) WithObserver(observer PhaseObserver) *Driver {
	cp := *d
	cp.observer = observer
	return &cp
}
