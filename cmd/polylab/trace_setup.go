package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"polylab/internal/trace"
)

// setupTracing attaches a tracer built from the --trace* flags to the
// command context. The returned cleanup dumps the ring, if any, and closes
// the tracer.
func setupTracing(cmd *cobra.Command) (func(), error) {
	flags := cmd.Root().PersistentFlags()
	output, err := flags.GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := flags.GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, err
	}
	if level == trace.LevelOff {
		if output == "" {
			cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
			return func() {}, nil
		}
		// --trace без уровня означает phase
		level = trace.LevelPhase
	}

	modeStr, err := flags.GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, err
	}
	ringSize, err := flags.GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeat, err := flags.GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: output,
		RingSize:   ringSize,
		Heartbeat:  heartbeat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	return func() {
		stderr := cmd.ErrOrStderr()
		if rec, ok := tracer.(*trace.Recorder); ok && mode == trace.ModeRing && rec.Buffered() {
			if err := rec.Dump(stderr, trace.FormatText); err != nil {
				fmt.Fprintf(stderr, "trace: dump error: %v\n", err)
			}
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(stderr, "trace: close error: %v\n", err)
		}
	}, nil
}
