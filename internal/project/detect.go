package project

import (
	"context"
	"path/filepath"

	"codefacts/internal/fsaccess"
)

// typeMarkers lists marker files in priority order; the first present wins.
var typeMarkers = []struct {
	files []string
	typ   Type
}{
	{[]string{"package.json"}, TypeNodeJS},
	{[]string{"requirements.txt", "pyproject.toml"}, TypePython},
	{[]string{"pom.xml"}, TypeMaven},
	{[]string{"build.gradle", "build.gradle.kts"}, TypeGradle},
	{monorepoMarkers, TypeMonorepo},
}

var monorepoMarkers = []string{
	"lerna.json",
	"nx.json",
	"turbo.json",
	"pnpm-workspace.yaml",
	"rush.json",
	"go.work",
}

// javaProbeDepth bounds the search for .java sources when no marker is present
const javaProbeDepth = 2

// DetectProjectType classifies the project rooted at path.
func (s *Scanner) DetectProjectType(ctx context.Context, path string) (Type, error) {
	root, err := s.validateDir(path)
	if err != nil {
		return TypeUnknown, err
	}
	return s.detectType(ctx, root)
}

func (s *Scanner) detectType(ctx context.Context, root string) (Type, error) {
	for _, m := range typeMarkers {
		for _, f := range m.files {
			if s.access.Exists(filepath.Join(root, f)) {
				return m.typ, nil
			}
		}
	}

	java, err := s.access.ListFiles(ctx, root, fsaccess.ListOptions{
		Include:  []string{"**/*.java"},
		Exclude:  s.cfg.Scan.Exclude,
		MaxDepth: javaProbeDepth,
	})
	if err != nil {
		return TypeUnknown, err
	}
	if len(java) > 0 {
		return TypeJava, nil
	}
	return TypeUnknown, nil
}

// TypeDisplayName returns a human-readable name for the type.
func TypeDisplayName(t Type) string {
	switch t {
	case TypeNodeJS:
		return "Node.js"
	case TypePython:
		return "Python"
	case TypeMaven:
		return "Maven"
	case TypeGradle:
		return "Gradle"
	case TypeJava:
		return "Java"
	case TypeMonorepo:
		return "Monorepo"
	default:
		return "Unknown"
	}
}
