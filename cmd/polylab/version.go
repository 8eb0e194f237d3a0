package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"polylab/internal/version"
)

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show polylab build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return err
		}
		switch strings.ToLower(format) {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(versionPayload{
				Tool:      "polylab",
				Version:   version.Version,
				GitCommit: version.GitCommit,
				BuildDate: version.BuildDate,
			})
		case "pretty":
			colored, err := useColor(cmd, os.Stdout)
			if err != nil {
				return err
			}
			color.NoColor = !colored
			line := version.String()
			if colored {
				line = strings.Replace(line, version.Version, version.Colored(), 1)
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
			return nil
		}
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	},
}

func init() {
	versionCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}
