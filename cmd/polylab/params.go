package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var paramsCmd = &cobra.Command{
	Use:   "params [flags] <file|-> <line:column>",
	Short: "Print the lines of the parameters of the function enclosing a position",
	Args:  cobra.ExactArgs(2),
	RunE:  runParams,
}

func init() {
	paramsCmd.Flags().StringP("language", "l", "", "input language (default: from extension, then config)")
}

func parsePosition(s string) (line, column int, err error) {
	l, c, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid position %q (expected line:column)", s)
	}
	if line, err = strconv.Atoi(l); err != nil || line < 1 {
		return 0, 0, fmt.Errorf("invalid line in %q", s)
	}
	if column, err = strconv.Atoi(c); err != nil || column < 1 {
		return 0, 0, fmt.Errorf("invalid column in %q", s)
	}
	return line, column, nil
}

func runParams(cmd *cobra.Command, args []string) error {
	line, column, err := parsePosition(args[1])
	if err != nil {
		return err
	}
	return withApp(cmd, func(_ context.Context, a *app) error {
		lang, err := cmd.Flags().GetString("language")
		if err != nil {
			return err
		}
		if lang == "" {
			if guessed, ok := languageForPath(args[0]); ok {
				lang = guessed
			} else {
				lang = a.cfg.Defaults.Language
			}
		}
		text, err := readInput(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		lines, err := a.driver.ParameterLines(lang, text, line, column)
		if err != nil {
			return err
		}
		for _, l := range lines {
			fmt.Fprintln(cmd.OutOrStdout(), l)
		}
		return nil
	})
}
