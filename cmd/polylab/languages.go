package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List registered input languages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(_ context.Context, a *app) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LANGUAGE\tFAMILY\tDETAILS")
			for _, name := range a.registry.Names() {
				adapter, err := a.registry.Lookup(name)
				if err != nil {
					return err
				}
				details := ""
				if v, ok := adapter.(interface{ GoVersion() string }); ok {
					details = v.GoVersion()
				}
				if strings.EqualFold(name, a.cfg.Defaults.Language) {
					details += " (default)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", name, adapter.Family(), details)
			}
			return tw.Flush()
		})
	},
}
