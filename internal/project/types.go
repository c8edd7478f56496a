package project

import (
	"time"

	"codefacts/internal/analyzer"
)

// Type is the detected kind of project.
type Type string

const (
	TypeNodeJS   Type = "nodejs"
	TypePython   Type = "python"
	TypeMaven    Type = "maven"
	TypeGradle   Type = "gradle"
	TypeJava     Type = "java"
	TypeMonorepo Type = "monorepo"
	TypeUnknown  Type = "unknown"
)

// ScanRequest drives ScanProject, BuildStructureTree and AnalyzeProject.
type ScanRequest struct {
	ProjectPath string `json:"projectPath"`
	// Depth bounds traversal; zero means the configured default
	Depth            int      `json:"depth,omitempty"`
	IncludePatterns  []string `json:"includePatterns,omitempty"`
	ExcludePatterns  []string `json:"excludePatterns,omitempty"`
	CalculateMetrics bool     `json:"calculateMetrics,omitempty"`
	// DetectPatterns is accepted for compatibility and has no effect
	DetectPatterns bool `json:"detectPatterns,omitempty"`
}

// Configuration describes how a project is built and laid out.
type Configuration struct {
	PackageManager string   `json:"packageManager,omitempty"`
	BuildTool      string   `json:"buildTool,omitempty"`
	SourceDirs     []string `json:"sourceDirs"`
	TestDirs       []string `json:"testDirs"`
	BuildDirs      []string `json:"buildDirs"`
	EntryPoints    []string `json:"entryPoints"`
	ConfigFiles    []string `json:"configFiles"`
	// WorkspaceTool is pnpm, lerna, nx, turbo, rush, go or yarn/npm
	WorkspaceTool string   `json:"workspaceTool,omitempty"`
	Workspaces    []string `json:"workspaces"`
}

// GitSummary is read from the .git directory without running git.
type GitSummary struct {
	Branch   string `json:"branch,omitempty"`
	Commit   string `json:"commit,omitempty"`
	Detached bool   `json:"detached,omitempty"`
}

// Metadata holds aggregate and manifest-derived facts.
type Metadata struct {
	TotalSize    int64       `json:"totalSize"`
	FileCount    int         `json:"fileCount"`
	LastModified time.Time   `json:"lastModified"`
	Git          *GitSummary `json:"git,omitempty"`
	Name         string      `json:"name,omitempty"`
	Version      string      `json:"version,omitempty"`
	Description  string      `json:"description,omitempty"`
	License      string      `json:"license,omitempty"`
	Authors      []string    `json:"authors,omitempty"`
}

// Descriptor is the result of ScanProject.
type Descriptor struct {
	ScanID        string         `json:"scanId"`
	Path          string         `json:"path"`
	Type          Type           `json:"type"`
	Configuration *Configuration `json:"configuration"`
	Metadata      *Metadata      `json:"metadata"`
	ScannedAt     time.Time      `json:"scannedAt"`
	CacheHit      bool           `json:"cacheHit"`
}

// NodeKind tags a StructureNode.
type NodeKind string

const (
	NodeFile      NodeKind = "file"
	NodeDirectory NodeKind = "directory"
)

// StructureNode is one file or directory of the structure tree. Directory
// children are sorted by name.
type StructureNode struct {
	Kind         NodeKind  `json:"kind"`
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	RelativePath string    `json:"relativePath"`
	ModTime      time.Time `json:"modTime"`

	// File fields
	Size      int64  `json:"size,omitempty"`
	Extension string `json:"extension,omitempty"`
	Language  string `json:"language,omitempty"`

	// Directory fields
	FileCount   int              `json:"fileCount,omitempty"`
	SubdirCount int              `json:"subdirCount,omitempty"`
	TotalSize   int64            `json:"totalSize,omitempty"`
	Children    []*StructureNode `json:"children,omitempty"`
}

// Edge is an internal dependency between two project files.
type Edge struct {
	From     string                  `json:"from"`
	To       string                  `json:"to"`
	Kind     analyzer.DependencyKind `json:"kind"`
	Resolved bool                    `json:"resolved"`
	Line     int                     `json:"line"`
}

// MetricsSummary aggregates complexity across analyzed files.
type MetricsSummary struct {
	FileCount         int            `json:"fileCount"`
	FunctionCount     int            `json:"functionCount"`
	TotalCyclomatic   int            `json:"totalCyclomatic"`
	AverageCyclomatic float64        `json:"averageCyclomatic"`
	MaxCyclomatic     int            `json:"maxCyclomatic"`
	MaxCyclomaticFile string         `json:"maxCyclomaticFile,omitempty"`
	TotalCognitive    int            `json:"totalCognitive"`
	Languages         map[string]int `json:"languages"`
}

// Analysis is the result of AnalyzeProject.
type Analysis struct {
	ScanID   string                   `json:"scanId"`
	Path     string                   `json:"path"`
	Files    []*analyzer.FileAnalysis `json:"files"`
	Failures []analyzer.Failure       `json:"failures"`
	// Unanalyzed lists files no registered analyzer claims
	Unanalyzed []string        `json:"unanalyzed"`
	Graph      []Edge          `json:"graph"`
	Summary    *MetricsSummary `json:"summary,omitempty"`
	CacheHit   bool            `json:"cacheHit"`
}
