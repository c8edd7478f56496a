package project

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProjectConfiguration_Node(t *testing.T) {
	dir := setupTestDir(t, []string{
		"pnpm-lock.yaml", "tsconfig.json", ".eslintrc.json",
		"src/index.ts", "tests/a.test.ts", "dist/index.js",
	})
	writeFile(t, dir, "package.json", `{
  "name": "demo",
  "main": "dist/index.js",
  "module": "./dist/index.mjs",
  "bin": {"zeta": "bin/z.js", "alpha": "bin/a.js"},
  "workspaces": ["packages/*"]
}`)
	writeFile(t, dir, "pnpm-workspace.yaml", "packages:\n  - 'packages/*'\n  - 'apps/*'\n")

	s := newTestScanner(t, dir, nil)
	cfg, err := s.GetProjectConfiguration(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, "pnpm", cfg.PackageManager)
	assert.Equal(t, "tsc", cfg.BuildTool)
	assert.Equal(t, []string{"src"}, cfg.SourceDirs)
	assert.Equal(t, []string{"tests"}, cfg.TestDirs)
	assert.Equal(t, []string{"dist"}, cfg.BuildDirs)
	assert.Equal(t, []string{"dist/index.js", "dist/index.mjs", "bin/a.js", "bin/z.js", "src/index.ts"}, cfg.EntryPoints)
	assert.Equal(t, []string{".eslintrc.json", "package.json", "pnpm-workspace.yaml", "tsconfig.json"}, cfg.ConfigFiles)
	assert.Equal(t, "pnpm", cfg.WorkspaceTool)
	assert.Equal(t, []string{"packages/*", "apps/*"}, cfg.Workspaces)
}

func TestGetProjectConfiguration_PackageManagerField(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"packageManager": "yarn@4.1.0", "workspaces": {"packages": ["libs/*"]}}`)

	s := newTestScanner(t, dir, nil)
	cfg, err := s.GetProjectConfiguration(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, "yarn", cfg.PackageManager)
	assert.Equal(t, "yarn/npm", cfg.WorkspaceTool)
	assert.Equal(t, []string{"libs/*"}, cfg.Workspaces)
	assert.Empty(t, cfg.BuildTool)
	assert.Empty(t, cfg.SourceDirs)
	assert.NotNil(t, cfg.SourceDirs)
}

func TestGetProjectConfiguration_Python(t *testing.T) {
	dir := setupTestDir(t, []string{"poetry.lock", "pyproject.toml", "main.py", "tests/test_main.py"})

	s := newTestScanner(t, dir, nil)
	cfg, err := s.GetProjectConfiguration(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, "poetry", cfg.PackageManager)
	assert.Equal(t, []string{"main.py"}, cfg.EntryPoints)
	assert.Equal(t, []string{"tests"}, cfg.TestDirs)
	assert.Equal(t, []string{"pyproject.toml"}, cfg.ConfigFiles)
}

func TestGetProjectConfiguration_MalformedManifestsAreIgnored(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", "{not json")
	writeFile(t, dir, "lerna.json", `{"packages": ["modules/*"]}`)

	s := newTestScanner(t, dir, nil)
	cfg, err := s.GetProjectConfiguration(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, "lerna", cfg.WorkspaceTool)
	assert.Equal(t, []string{"modules/*"}, cfg.Workspaces)
	assert.Empty(t, cfg.PackageManager)
}
