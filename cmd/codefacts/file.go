package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"codefacts/internal/analyzer"
	"codefacts/internal/errors"
)

var fileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Analyze a single source file",
	Long: `Report every fact derived from one file: imports, exports, functions,
classes, variables, comments, dependencies and complexity metrics.

The analyzer is chosen by file extension. Files outside --root (default: the
working directory) are rejected.

Examples:
  codefacts file src/index.ts
  codefacts file app/models.py --format=json`,
	Args: cobra.ExactArgs(1),
	RunE: runFile,
}

var depsCmd = &cobra.Command{
	Use:   "deps <path>",
	Short: "List the dependencies of a source file",
	Long: `List import, require and dynamic import specifiers of one file. Relative
specifiers are resolved against the file system when resolution is enabled.

Examples:
  codefacts deps src/index.js
  codefacts deps lib/app.py --format=json`,
	Args: cobra.ExactArgs(1),
	RunE: runDeps,
}

var complexityCmd = &cobra.Command{
	Use:   "complexity <path>",
	Short: "Get code complexity metrics for a source file",
	Long: `Get cyclomatic, cognitive and Halstead metrics for a file and each of its
functions.

Examples:
  codefacts complexity src/server.ts
  codefacts complexity worker.py --format=json`,
	Args: cobra.ExactArgs(1),
	RunE: runComplexity,
}

func init() {
	rootCmd.AddCommand(fileCmd)
	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(complexityCmd)
}

// withAnalyzer resolves path, picks its analyzer and runs fn
func withAnalyzer(cmd *cobra.Command, path string, fn func(a analyzer.Analyzer, path string) (any, error)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	env, err := newApp(cmd, "")
	if err != nil {
		return err
	}
	defer env.Close()

	an, ok := env.scanner.Registry().ForPath(abs)
	if !ok {
		return errors.Newf(errors.UnsupportedLanguage, "no analyzer for %q files", filepath.Ext(abs)).WithPath(path)
	}
	resp, err := fn(an, abs)
	if err != nil {
		return err
	}
	return writeResponse(cmd.OutOrStdout(), resp, OutputFormat(formatFlag))
}

func runFile(cmd *cobra.Command, args []string) error {
	return withAnalyzer(cmd, args[0], func(a analyzer.Analyzer, path string) (any, error) {
		ctx, cancel := newContext()
		defer cancel()
		return a.AnalyzeFile(ctx, path)
	})
}

func runDeps(cmd *cobra.Command, args []string) error {
	return withAnalyzer(cmd, args[0], func(a analyzer.Analyzer, path string) (any, error) {
		ctx, cancel := newContext()
		defer cancel()
		deps, err := a.ExtractDependencies(ctx, path)
		if err != nil {
			return nil, err
		}
		return &dependencyList{File: args[0], Dependencies: deps}, nil
	})
}

func runComplexity(cmd *cobra.Command, args []string) error {
	return withAnalyzer(cmd, args[0], func(a analyzer.Analyzer, path string) (any, error) {
		ctx, cancel := newContext()
		defer cancel()
		return a.CalculateComplexity(ctx, path)
	})
}

// relTo returns path relative to root in slash form, or path unchanged
func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
