package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"codefacts/internal/project"
)

var (
	scanDepth   int
	scanInclude []string
	scanExclude []string
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Detect the project type, layout and metadata",
	Long: `Detect the project type (Node.js, Python, Maven, Gradle, Java, monorepo) and
report its configuration: package manager, build tool, source and test
directories, entry points and workspaces, plus file totals, git state and
manifest metadata.

Examples:
  codefacts scan
  codefacts scan ../service --format=json
  codefacts scan --exclude='**/fixtures/**'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	addRequestFlags(scanCmd, &scanDepth, &scanInclude, &scanExclude)
	rootCmd.AddCommand(scanCmd)
}

// addRequestFlags registers the flags shared by scan and analyze
func addRequestFlags(cmd *cobra.Command, depth *int, include, exclude *[]string) {
	cmd.Flags().IntVar(depth, "depth", 0, "Maximum directory depth (0 for the configured default)")
	cmd.Flags().StringSliceVar(include, "include", nil, "Glob patterns of files to include (default from config)")
	cmd.Flags().StringSliceVar(exclude, "exclude", nil, "Glob patterns to exclude in addition to the configured ones")
}

func runScan(cmd *cobra.Command, args []string) error {
	target, err := filepath.Abs(targetArg(args))
	if err != nil {
		return err
	}
	a, err := newApp(cmd, target)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := newContext()
	defer cancel()

	d, err := a.scanner.ScanProject(ctx, project.ScanRequest{
		ProjectPath:     target,
		Depth:           scanDepth,
		IncludePatterns: scanInclude,
		ExcludePatterns: scanExclude,
	})
	if err != nil {
		return err
	}
	return writeResponse(cmd.OutOrStdout(), d, OutputFormat(formatFlag))
}
