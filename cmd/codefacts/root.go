package main

import (
	"github.com/spf13/cobra"

	"codefacts/internal/version"
)

var (
	// formatFlag is the --format flag shared by every command
	formatFlag string
	// rootFlag overrides the directory configuration is loaded from
	rootFlag    string
	verboseFlag int
	quietFlag   bool
	logFileFlag string
)

var rootCmd = &cobra.Command{
	Use:   "codefacts",
	Short: "codefacts - static facts about a source tree",
	Long: `codefacts scans a project directory and reports what it finds: the project
type and layout, per-file imports, exports, declarations and comments for
JavaScript, TypeScript and Python, the dependency graph between files and
complexity metrics.

Results are cached in memory and on disk; repeated requests for an unchanged
tree are served from the cache.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("codefacts version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "human", "Output format (json, human)")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "",
		"Directory to load .codefacts.* and .env from; also the default allowed root")
	rootCmd.PersistentFlags().CountVarP(&verboseFlag, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress log output")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "", "Also write logs to this rotated file")
}
