package main

import (
	"github.com/spf13/cobra"

	"codefacts/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeResponse(cmd.OutOrStdout(), &versionInfo{
			Version:   version.Version,
			Commit:    version.Commit,
			BuildDate: version.BuildDate,
		}, OutputFormat(formatFlag))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
