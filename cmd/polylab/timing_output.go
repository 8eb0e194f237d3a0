package main

import (
	"fmt"
	"io"

	"polylab/internal/observ"
)

func printTimings(out io.Writer, path string, r observ.Report) {
	fmt.Fprintf(out, "timings %s:\n", path)
	for _, p := range r.Phases {
		fmt.Fprintf(out, "  %-10s %8.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			fmt.Fprintf(out, "  %s", p.Note)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "  %-10s %8.2f ms\n", "total", r.TotalMS)
}
