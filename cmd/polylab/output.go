package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"polylab/internal/diag"
	"polylab/internal/diagfmt"
	"polylab/internal/driver"
	"polylab/internal/observ"
	"polylab/internal/version"
)

type resultPayload struct {
	Path     string                   `json:"path"`
	Language string                   `json:"language"`
	Target   string                   `json:"target"`
	Optimize string                   `json:"optimize"`
	Success  bool                     `json:"success"`
	Output   string                   `json:"output,omitempty"`
	Errors   []diagfmt.DiagnosticJSON `json:"errors"`
	Warnings []diagfmt.DiagnosticJSON `json:"warnings"`
	Timing   *observ.Report           `json:"timing,omitempty"`
}

func render(cmd *cobra.Command, f requestFlags, results []driver.Result) error {
	if len(results) == 0 {
		return nil
	}
	switch f.format {
	case "json":
		return renderJSON(cmd.OutOrStdout(), f, results)
	case "short":
		return renderShort(cmd.OutOrStdout(), f, results)
	case "sarif":
		var all []diag.Diagnostic
		for _, res := range results {
			all = append(all, res.Diagnostics...)
		}
		files := results[0].Files
		if len(results) > 1 {
			// у каждого запроса свой FileSet, SARIF строим по первому
			fmt.Fprintln(cmd.ErrOrStderr(), "sarif: locations are resolved for the first input only")
		}
		return diagfmt.Sarif(cmd.OutOrStdout(), all, files, diagfmt.SarifRunMeta{
			ToolName:       "polylab",
			ToolVersion:    version.Version,
			InvocationArgs: os.Args[1:],
		})
	}
	return renderPretty(cmd, f, results)
}

func renderJSON(w io.Writer, f requestFlags, results []driver.Result) error {
	opts := diagfmt.JSONOpts{IncludePositions: true, PathMode: diagfmt.PathModeAuto, IncludeNotes: f.withNotes}
	payload := make([]resultPayload, 0, len(results))
	for _, res := range results {
		payload = append(payload, resultPayload{
			Path:     res.Path,
			Language: res.Language,
			Target:   res.Target.String(),
			Optimize: res.Optimize.String(),
			Success:  res.Success,
			Output:   res.Output,
			Errors:   diagfmt.BuildDiagnosticsOutput(res.Errors(), res.Files, opts).Diagnostics,
			Warnings: diagfmt.BuildDiagnosticsOutput(res.Warnings(), res.Files, opts).Diagnostics,
			Timing:   res.Timing,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

// renderShort prints one line per diagnostic and no compiler output.
func renderShort(w io.Writer, f requestFlags, results []driver.Result) error {
	for _, res := range results {
		text := diag.FormatShortDiagnostics(res.Diagnostics, res.Files, f.withNotes)
		if text == "" {
			continue
		}
		if _, err := fmt.Fprintln(w, text); err != nil {
			return err
		}
	}
	return nil
}

func renderPretty(cmd *cobra.Command, f requestFlags, results []driver.Result) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	colorOut, err := useColor(cmd, os.Stderr)
	if err != nil {
		return err
	}
	for _, res := range results {
		if len(results) > 1 {
			fmt.Fprintf(out, "== %s\n", requestSummary(res))
		}
		if res.Output != "" {
			fmt.Fprint(out, res.Output)
			if res.Output[len(res.Output)-1] != '\n' {
				fmt.Fprintln(out)
			}
		}
		if len(res.Diagnostics) > 0 {
			diagfmt.Pretty(errOut, res.Diagnostics, res.Files, diagfmt.PrettyOpts{
				Color:     colorOut,
				Context:   1,
				PathMode:  diagfmt.PathModeAuto,
				ShowNotes: f.withNotes,
			})
			diagfmt.Summary(errOut, res.Diagnostics, colorOut)
		}
		if res.Timing != nil {
			printTimings(errOut, res.Path, *res.Timing)
		}
	}
	return nil
}
