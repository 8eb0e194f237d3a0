package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"polylab/internal/driver"
	"polylab/internal/language"
	"polylab/internal/session"
)

var errRequestFailed = errors.New("one or more requests failed")

var compileCmd = &cobra.Command{
	Use:   "compile [flags] <file|->...",
	Short: "Compile sources and print the decompiled artifact",
	RunE:  func(cmd *cobra.Command, args []string) error { return runRequests(cmd, args, nil) },
}

var astCmd = &cobra.Command{
	Use:   "ast [flags] <file|->...",
	Short: "Print the syntax tree as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		t := session.TargetAST
		return runRequests(cmd, args, &t)
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [flags] <file|->...",
	Short: "Compile sources and hex-dump the artifact",
	RunE: func(cmd *cobra.Command, args []string) error {
		t := session.TargetInspect
		return runRequests(cmd, args, &t)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{compileCmd, astCmd, inspectCmd} {
		cmd.Flags().StringP("language", "l", "", "input language (default: from extension, then config)")
		cmd.Flags().StringP("optimize", "O", "", "optimization mode (debug|release)")
		cmd.Flags().Bool("sample", false, "use the built-in sample for the language instead of files")
		cmd.Flags().String("format", "pretty", "output format (pretty|short|json|sarif)")
		cmd.Flags().Int("jobs", 0, "max parallel sessions (0=auto)")
		cmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
		cmd.Flags().String("ui", "auto", "progress UI for several inputs (auto|on|off)")
	}
	compileCmd.Flags().StringP("target", "t", "", "target (library|executable|ast|inspect, default: from config)")
}

type requestFlags struct {
	language  string
	target    session.TargetKind
	optimize  session.Optimize
	sample    bool
	format    string
	jobs      int
	withNotes bool
	timings   bool
	ui        uiMode
}

func readRequestFlags(cmd *cobra.Command, a *app, fixed *session.TargetKind) (requestFlags, error) {
	f := requestFlags{target: a.cfg.Target(), optimize: a.cfg.Optimize()}
	var err error
	if f.language, err = cmd.Flags().GetString("language"); err != nil {
		return f, err
	}
	if fixed != nil {
		f.target = *fixed
	} else if t, _ := cmd.Flags().GetString("target"); t != "" {
		if f.target, err = session.ParseTarget(t); err != nil {
			return f, err
		}
	}
	if o, _ := cmd.Flags().GetString("optimize"); o != "" {
		if f.optimize, err = session.ParseOptimize(o); err != nil {
			return f, err
		}
	}
	if f.sample, err = cmd.Flags().GetBool("sample"); err != nil {
		return f, err
	}
	if f.format, err = cmd.Flags().GetString("format"); err != nil {
		return f, err
	}
	switch f.format {
	case "pretty", "short", "json", "sarif":
	default:
		return f, fmt.Errorf("unsupported format %q (must be pretty, short, json or sarif)", f.format)
	}
	if f.jobs, err = cmd.Flags().GetInt("jobs"); err != nil {
		return f, err
	}
	if f.withNotes, err = cmd.Flags().GetBool("with-notes"); err != nil {
		return f, err
	}
	if f.timings, err = cmd.Root().PersistentFlags().GetBool("timings"); err != nil {
		return f, err
	}
	mode, err := cmd.Flags().GetString("ui")
	if err != nil {
		return f, err
	}
	if f.ui, err = readUIMode(mode); err != nil {
		return f, err
	}
	return f, nil
}

// buildRequests turns arguments into driver requests. The language comes
// from --language, the file extension or the config default, in that order.
func buildRequests(cmd *cobra.Command, a *app, f requestFlags, args []string) ([]driver.Request, error) {
	base := driver.Request{Target: f.target, Optimize: f.optimize, Timings: f.timings}
	if f.sample {
		lang := f.language
		if lang == "" {
			lang = a.cfg.Defaults.Language
		}
		adapter, err := a.registry.Lookup(lang)
		if err != nil {
			return nil, err
		}
		sampler, ok := adapter.(language.Sampler)
		if !ok {
			return nil, fmt.Errorf("%s has no sample", adapter.Name())
		}
		base.Language = adapter.Name()
		base.Text = []byte(sampler.Sample(f.target))
		return []driver.Request{base}, nil
	}
	if len(args) == 0 {
		return nil, errors.New("no input files (pass files, - for stdin, or --sample)")
	}

	reqs := make([]driver.Request, 0, len(args))
	for _, path := range args {
		text, err := readInput(cmd.InOrStdin(), path)
		if err != nil {
			return nil, err
		}
		req := base
		req.Text = text
		req.Language = f.language
		if path != "-" {
			req.Path = path
		}
		if req.Language == "" {
			if lang, ok := languageForPath(path); ok {
				req.Language = lang
			} else {
				req.Language = a.cfg.Defaults.Language
			}
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func runRequests(cmd *cobra.Command, args []string, target *session.TargetKind) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		f, err := readRequestFlags(cmd, a, target)
		if err != nil {
			return err
		}
		reqs, err := buildRequests(cmd, a, f, args)
		if err != nil {
			return err
		}
		var results []driver.Result
		if shouldUseTUI(f.ui, f.format, len(reqs)) {
			results, err = processWithUI(ctx, cmd.Name(), a.driver, reqs, f.jobs)
		} else {
			results, err = a.driver.ProcessAll(ctx, reqs, f.jobs)
		}
		if err != nil {
			return err
		}
		if err := render(cmd, f, results); err != nil {
			return err
		}
		for _, res := range results {
			if !res.Success {
				return errRequestFailed
			}
		}
		return nil
	})
}

func requestSummary(res driver.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s, %s, %s]", res.Path, res.Language, res.Target, res.Optimize)
	if res.Success {
		b.WriteString(" ok")
	} else {
		b.WriteString(" failed")
	}
	return b.String()
}
