package main

import (
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear the result cache",
	Long: `The cache holds scan, tree and analysis results in memory and in the
persistent tier under the configured cache directory. Only the persistent tier
outlives a single command.`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cache entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "")
		if err != nil {
			return err
		}
		defer a.Close()

		c := a.scanner.Cache()
		n := c.Size()
		c.Clear()
		a.logger.Info("cache cleared", "root", a.root, "entries", n)
		return writeResponse(cmd.OutOrStdout(), &invalidation{Pattern: ".*", Removed: n}, OutputFormat(formatFlag))
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate <pattern>",
	Short: "Remove entries whose key matches a regular expression",
	Long: `Remove entries whose hash or logical key matches pattern. Keys are the JSON
form of the request, so a project path or an operation name works as a pattern.

Examples:
  codefacts cache invalidate '"op":"analyze"'
  codefacts cache invalidate /home/me/web`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.scanner.Cache().Invalidate(args[0])
		if err != nil {
			return err
		}
		return writeResponse(cmd.OutOrStdout(), &invalidation{Pattern: args[0], Removed: n}, OutputFormat(formatFlag))
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show entry counts per cache tier",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "")
		if err != nil {
			return err
		}
		defer a.Close()

		return writeResponse(cmd.OutOrStdout(), a.scanner.Cache().Stats(), OutputFormat(formatFlag))
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd, cacheInvalidateCmd, cacheStatsCmd)
	rootCmd.AddCommand(cacheCmd)
}
