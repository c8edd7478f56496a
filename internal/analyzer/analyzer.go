// Package analyzer defines the per-language analysis contract, the
// tree-sitter backed implementations and the registry that selects them.
package analyzer

import (
	"context"

	"codefacts/internal/complexity"
)

// Analyzer analyzes source files of one language
type Analyzer interface {
	// Language is the tag used for registry lookup
	Language() string
	// Extensions are the claimed file extensions, lowercase with a leading dot
	Extensions() []string
	// Priority breaks ties when two analyzers claim an extension; higher wins
	Priority() int

	AnalyzeFile(ctx context.Context, path string) (*FileAnalysis, error)
	// AnalyzeBatch records per-file failures instead of returning them.
	// The error is non-nil only when ctx ends before every chunk ran.
	AnalyzeBatch(ctx context.Context, paths []string) (*BatchResult, error)
	ExtractDependencies(ctx context.Context, path string) ([]Dependency, error)
	CalculateComplexity(ctx context.Context, path string) (*complexity.FileComplexity, error)
}

// Source is the file access an analyzer needs; *fsaccess.Accessor satisfies it
type Source interface {
	ReadFile(path string) ([]byte, error)
	Exists(path string) bool
}
