package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"codefacts/internal/project"
)

var (
	analyzeDepth   int
	analyzeInclude []string
	analyzeExclude []string
	analyzeMetrics bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Analyze every supported source file in a project",
	Long: `Run the language analyzers over every matching file. The result lists per-file
facts, the dependency graph between project files and, unless disabled, a
complexity summary.

Files that fail to analyze are reported and do not stop the run.

Examples:
  codefacts analyze
  codefacts analyze ./web --include='src/**'
  codefacts analyze --metrics=false --format=json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	addRequestFlags(analyzeCmd, &analyzeDepth, &analyzeInclude, &analyzeExclude)
	analyzeCmd.Flags().BoolVar(&analyzeMetrics, "metrics", true, "Include the complexity summary")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
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

	res, err := a.scanner.AnalyzeProject(ctx, project.ScanRequest{
		ProjectPath:      target,
		Depth:            analyzeDepth,
		IncludePatterns:  analyzeInclude,
		ExcludePatterns:  analyzeExclude,
		CalculateMetrics: analyzeMetrics,
	})
	if err != nil {
		return err
	}
	return writeResponse(cmd.OutOrStdout(), res, OutputFormat(formatFlag))
}
