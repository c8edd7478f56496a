package analyzer

import (
	"strings"
	"time"

	"codefacts/internal/complexity"
	"codefacts/internal/syntax"
)

// DependencyKind classifies a dependency edge
type DependencyKind string

const (
	KindImport        DependencyKind = "import"
	KindRequire       DependencyKind = "require"
	KindDynamicImport DependencyKind = "dynamic-import"
	KindInherit       DependencyKind = "inherit"
	KindImplement     DependencyKind = "implement"
	KindCompose       DependencyKind = "compose"
	KindAggregate     DependencyKind = "aggregate"
)

// Location is a one-based source range
type Location struct {
	Line      int `json:"line"`
	Column    int `json:"column"`
	EndLine   int `json:"endLine,omitempty"`
	EndColumn int `json:"endColumn,omitempty"`
}

// LocationOf converts a node's range
func LocationOf(n *syntax.Node) Location {
	return Location{
		Line:      n.Start.Row + 1,
		Column:    n.Start.Column + 1,
		EndLine:   n.End.Row + 1,
		EndColumn: n.End.Column + 1,
	}
}

// Dependency is a reference from one file to a module specifier
type Dependency struct {
	Source       string         `json:"source"`
	Target       string         `json:"target"`
	Kind         DependencyKind `json:"kind"`
	Resolved     bool           `json:"resolved"`
	ResolvedPath string         `json:"resolvedPath,omitempty"`
	External     bool           `json:"external"`
	Location     Location       `json:"location"`
}

// IsExternal reports whether a specifier names a package rather than a path
func IsExternal(target string) bool {
	return !(strings.HasPrefix(target, ".") || strings.HasPrefix(target, "/"))
}

// NewDependency builds an unresolved edge with External derived from target
func NewDependency(source, target string, kind DependencyKind, loc Location) Dependency {
	return Dependency{
		Source:   source,
		Target:   target,
		Kind:     kind,
		External: IsExternal(target),
		Location: loc,
	}
}

// ImportSpecifier is one binding introduced by an import
type ImportSpecifier struct {
	Name  string `json:"name"`
	Alias string `json:"alias,omitempty"`
	// Kind is "default", "namespace" or "named"
	Kind string `json:"kind"`
}

// ImportInfo is one import declaration
type ImportInfo struct {
	Source     string            `json:"source"`
	Specifiers []ImportSpecifier `json:"specifiers"`
	TypeOnly   bool              `json:"typeOnly,omitempty"`
	Location   Location          `json:"location"`
}

// ExportInfo is one exported name
type ExportInfo struct {
	Name string `json:"name"`
	// Kind is the exported declaration kind, or "named", "reexport", "all", "commonjs"
	Kind     string   `json:"kind"`
	Default  bool     `json:"default,omitempty"`
	Source   string   `json:"source,omitempty"`
	Location Location `json:"location"`
}

// FunctionInfo is one function, method or lambda
type FunctionInfo struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Params     []string `json:"params"`
	Async      bool     `json:"async,omitempty"`
	Generator  bool     `json:"generator,omitempty"`
	Exported   bool     `json:"exported,omitempty"`
	Cyclomatic int      `json:"cyclomatic"`
	Cognitive  int      `json:"cognitive"`
	Location   Location `json:"location"`
}

// ClassInfo is one class declaration
type ClassInfo struct {
	Name       string   `json:"name"`
	Extends    []string `json:"extends,omitempty"`
	Implements []string `json:"implements,omitempty"`
	Methods    []string `json:"methods"`
	Exported   bool     `json:"exported,omitempty"`
	Location   Location `json:"location"`
}

// VariableInfo is one module-level binding
type VariableInfo struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Exported bool     `json:"exported,omitempty"`
	Location Location `json:"location"`
}

// Comment is one source comment or docstring
type Comment struct {
	Text string `json:"text"`
	// Kind is "line", "block" or "doc"
	Kind     string   `json:"kind"`
	Location Location `json:"location"`
}

// FileAnalysis holds every fact derived from one file
type FileAnalysis struct {
	Path            string             `json:"path"`
	Language        string             `json:"language"`
	Dependencies    []Dependency       `json:"dependencies"`
	Exports         []ExportInfo       `json:"exports"`
	Imports         []ImportInfo       `json:"imports"`
	Metrics         complexity.Metrics `json:"metrics"`
	Functions       []FunctionInfo     `json:"functions"`
	Classes         []ClassInfo        `json:"classes"`
	Variables       []VariableInfo     `json:"variables"`
	Comments        []Comment          `json:"comments"`
	HasSyntaxErrors bool               `json:"hasSyntaxErrors,omitempty"`
	AnalyzedAt      time.Time          `json:"analyzedAt"`
}

// newEmptyAnalysis returns a valid analysis with no facts
func newEmptyAnalysis(path, language string, now time.Time) *FileAnalysis {
	return &FileAnalysis{
		Path:         path,
		Language:     language,
		Dependencies: []Dependency{},
		Exports:      []ExportInfo{},
		Imports:      []ImportInfo{},
		Metrics:      complexity.EmptyMetrics(),
		Functions:    []FunctionInfo{},
		Classes:      []ClassInfo{},
		Variables:    []VariableInfo{},
		Comments:     []Comment{},
		AnalyzedAt:   now,
	}
}

// Failure records one file a batch could not analyze
type Failure struct {
	Path    string `json:"path"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// BatchResult is the outcome of AnalyzeBatch. Files are keyed by position
// within a chunk, not by completion order.
type BatchResult struct {
	Files    []*FileAnalysis `json:"files"`
	Failures []Failure       `json:"failures"`
}
