package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"polylab/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "polylab",
	Short:         "Multi-language compile, AST and inspection workbench",
	Long:          `polylab compiles Go, Starlark and Jsonnet snippets, renders their syntax trees and dumps compiled artifacts`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(astCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(paramsCmd)
	rootCmd.AddCommand(languagesCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 0, "maximum number of diagnostics per file (0 = from config)")
	rootCmd.PersistentFlags().String("config", "", "path to polylab.toml (default: search upwards from the working directory)")
	rootCmd.PersistentFlags().String("telemetry-dir", "", "write OpenTelemetry traces and metrics to this directory")
	rootCmd.PersistentFlags().String("trace", "", "trace output file (- for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-mode", "stream", "trace storage (stream|ring|both)")
	rootCmd.PersistentFlags().Int("trace-ring-size", 4096, "ring buffer size for --trace-mode ring|both")
	rootCmd.PersistentFlags().Duration("trace-heartbeat", 0, "emit a heartbeat event at this interval (0 = off)")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write CPU profile to file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write heap profile to file")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write Go runtime trace to file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func useColor(cmd *cobra.Command, f *os.File) (bool, error) {
	flag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, err
	}
	switch flag {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "auto":
		return isTerminal(f), nil
	}
	return false, fmt.Errorf("invalid --color %q (expected: auto|on|off)", flag)
}
