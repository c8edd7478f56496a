package project

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	conventionalSourceDirs = []string{"src", "lib", "app", "source", "pkg", "packages", "src/main/java"}
	conventionalTestDirs   = []string{"test", "tests", "__tests__", "spec", "e2e", "src/test/java"}
	conventionalBuildDirs  = []string{"dist", "build", "out", "target", ".next", "coverage"}

	conventionalEntryPoints = []string{
		"index.js", "index.ts", "main.js", "main.ts",
		"src/index.js", "src/index.ts", "src/index.tsx", "src/main.js", "src/main.ts",
		"main.py", "app.py", "manage.py", "__main__.py", "src/main.py",
	}

	knownConfigFiles = []string{
		"package.json", "tsconfig.json", "jsconfig.json",
		".eslintrc", ".eslintrc.js", ".eslintrc.json", ".eslintrc.cjs", "eslint.config.js", "eslint.config.mjs",
		".prettierrc", ".prettierrc.json", "prettier.config.js",
		"babel.config.js", ".babelrc", "jest.config.js", "jest.config.ts", "vitest.config.ts",
		"webpack.config.js", "vite.config.js", "vite.config.ts", "rollup.config.js",
		"pyproject.toml", "setup.py", "setup.cfg", "tox.ini", "requirements.txt", "Pipfile", "mypy.ini", ".flake8",
		"pom.xml", "build.gradle", "build.gradle.kts", "settings.gradle", "settings.gradle.kts",
		"lerna.json", "nx.json", "turbo.json", "pnpm-workspace.yaml", "rush.json", "go.work",
		".editorconfig", "Dockerfile", "docker-compose.yml", "docker-compose.yaml", "Makefile",
		".codefacts.yaml", ".codefacts.json", ".codefacts.toml",
	}

	// lockfiles are checked in order; the first present names the package manager
	lockfiles = []struct {
		file    string
		manager string
	}{
		{"pnpm-lock.yaml", "pnpm"},
		{"yarn.lock", "yarn"},
		{"bun.lockb", "bun"},
		{"package-lock.json", "npm"},
		{"poetry.lock", "poetry"},
		{"Pipfile.lock", "pipenv"},
		{"uv.lock", "uv"},
		{"pdm.lock", "pdm"},
		{"requirements.txt", "pip"},
		{"pom.xml", "maven"},
		{"build.gradle", "gradle"},
		{"build.gradle.kts", "gradle"},
	}

	buildMarkers = []struct {
		file string
		tool string
	}{
		{"nx.json", "nx"},
		{"turbo.json", "turbo"},
		{"vite.config.ts", "vite"},
		{"vite.config.js", "vite"},
		{"webpack.config.js", "webpack"},
		{"rollup.config.js", "rollup"},
		{"next.config.js", "next"},
		{"tsconfig.json", "tsc"},
		{"pom.xml", "maven"},
		{"build.gradle", "gradle"},
		{"build.gradle.kts", "gradle"},
		{"setup.py", "setuptools"},
		{"Makefile", "make"},
	}

	workspaceMarkers = []struct {
		file string
		tool string
	}{
		{"pnpm-workspace.yaml", "pnpm"},
		{"lerna.json", "lerna"},
		{"nx.json", "nx"},
		{"turbo.json", "turbo"},
		{"rush.json", "rush"},
		{"go.work", "go"},
	}
)

// GetProjectConfiguration derives the build layout of the project at path.
func (s *Scanner) GetProjectConfiguration(ctx context.Context, path string) (*Configuration, error) {
	root, err := s.validateDir(path)
	if err != nil {
		return nil, err
	}
	return s.configuration(ctx, root)
}

func (s *Scanner) configuration(ctx context.Context, root string) (*Configuration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := &Configuration{
		SourceDirs:  s.existingDirs(root, conventionalSourceDirs),
		TestDirs:    s.existingDirs(root, conventionalTestDirs),
		BuildDirs:   s.existingDirs(root, conventionalBuildDirs),
		ConfigFiles: s.existingFiles(root, knownConfigFiles),
		EntryPoints: []string{},
		Workspaces:  []string{},
	}

	for _, l := range lockfiles {
		if s.access.Exists(filepath.Join(root, l.file)) {
			cfg.PackageManager = l.manager
			break
		}
	}
	for _, m := range buildMarkers {
		if s.access.Exists(filepath.Join(root, m.file)) {
			cfg.BuildTool = m.tool
			break
		}
	}

	pkg, err := s.readPackageJSON(root)
	if err != nil {
		s.logger.Warn("ignoring unreadable package.json", "path", root, "error", err)
	}
	if pkg != nil {
		if cfg.PackageManager == "" {
			cfg.PackageManager = "npm"
			if name, _, ok := strings.Cut(pkg.PackageManager, "@"); ok && name != "" {
				cfg.PackageManager = name
			}
		}
		cfg.EntryPoints = append(cfg.EntryPoints, pkg.entryPoints()...)
		if ws := pkg.workspaces(); len(ws) > 0 {
			cfg.WorkspaceTool = "yarn/npm"
			cfg.Workspaces = append(cfg.Workspaces, ws...)
		}
	}

	for _, m := range workspaceMarkers {
		if s.access.Exists(filepath.Join(root, m.file)) {
			cfg.WorkspaceTool = m.tool
			break
		}
	}
	if ws := s.pnpmWorkspaces(root); len(ws) > 0 {
		cfg.Workspaces = append(cfg.Workspaces, ws...)
	}
	if ws := s.lernaPackages(root); len(ws) > 0 {
		cfg.Workspaces = append(cfg.Workspaces, ws...)
	}

	for _, e := range conventionalEntryPoints {
		if s.access.Exists(filepath.Join(root, filepath.FromSlash(e))) {
			cfg.EntryPoints = append(cfg.EntryPoints, e)
		}
	}
	cfg.EntryPoints = dedupe(cfg.EntryPoints)
	cfg.Workspaces = dedupe(cfg.Workspaces)
	return cfg, nil
}

func (s *Scanner) existingDirs(root string, names []string) []string {
	out := []string{}
	for _, n := range names {
		if s.access.IsDir(filepath.Join(root, filepath.FromSlash(n))) {
			out = append(out, n)
		}
	}
	return out
}

func (s *Scanner) existingFiles(root string, names []string) []string {
	out := []string{}
	for _, n := range names {
		if s.access.Exists(filepath.Join(root, n)) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

type pnpmWorkspace struct {
	Packages []string `yaml:"packages"`
}

func (s *Scanner) pnpmWorkspaces(root string) []string {
	data, err := s.access.ReadFile(filepath.Join(root, "pnpm-workspace.yaml"))
	if err != nil {
		return nil
	}
	var ws pnpmWorkspace
	if err := yaml.Unmarshal(data, &ws); err != nil {
		s.logger.Warn("ignoring malformed pnpm-workspace.yaml", "path", root, "error", err)
		return nil
	}
	return ws.Packages
}

func (s *Scanner) lernaPackages(root string) []string {
	data, err := s.access.ReadFile(filepath.Join(root, "lerna.json"))
	if err != nil {
		return nil
	}
	var lerna struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(data, &lerna); err != nil {
		s.logger.Warn("ignoring malformed lerna.json", "path", root, "error", err)
		return nil
	}
	return lerna.Packages
}

// dedupe removes repeated entries, keeping first occurrences in order
func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimPrefix(filepath.ToSlash(it), "./")
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}
