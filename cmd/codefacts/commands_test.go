package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codefacts/internal/cache"
	"codefacts/internal/errors"
	"codefacts/internal/project"
)

// execute runs the root command with fresh flag values and returns stdout
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	formatFlag, rootFlag, verboseFlag, quietFlag, logFileFlag = "human", "", 0, false, ""
	scanDepth, scanInclude, scanExclude = 0, nil, nil
	treeDepth, treeExclude = 0, nil
	analyzeDepth, analyzeInclude, analyzeExclude, analyzeMetrics = 0, nil, nil, true
	configInitForce = false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFixture(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "--format", "json")
	require.NoError(t, err)

	var v versionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.NotEmpty(t, v.Version)

	out, err = execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "codefacts version "+v.Version)
}

func TestScanCommand(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, map[string]string{
		"package.json": `{"name": "shop", "version": "1.2.0", "license": "MIT"}`,
		"yarn.lock":    "",
		"src/index.js": "",
	})

	out, err := execute(t, "scan", dir, "--root", dir, "--format", "json")
	require.NoError(t, err)

	var d project.Descriptor
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, project.TypeNodeJS, d.Type)
	assert.Equal(t, "yarn", d.Configuration.PackageManager)
	assert.Equal(t, "shop", d.Metadata.Name)

	out, err = execute(t, "scan", dir, "--root", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Node.js")
	assert.Contains(t, out, "shop")
	assert.Contains(t, out, "yarn")
}

func TestTreeCommand(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, map[string]string{"a/b.txt": "hello", "c.txt": ""})

	out, err := execute(t, "tree", dir, "--root", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "├── a/ (1 files, 5 B)")
	assert.Contains(t, out, "│   └── b.txt (5 B)")
	assert.Contains(t, out, "└── c.txt (0 B)")

	_, err = execute(t, "tree", dir, "--root", dir, "--depth", "1")
	assert.True(t, errors.IsCode(err, errors.DepthExceeded))
}

func TestAnalyzeCommandAndCache(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, map[string]string{"index.js": "", "lib/mod.py": "", "notes.md": ""})

	out, err := execute(t, "analyze", dir, "--root", dir, "--format", "json")
	require.NoError(t, err)

	var a project.Analysis
	require.NoError(t, json.Unmarshal([]byte(out), &a))
	assert.Len(t, a.Files, 2)
	assert.Equal(t, []string{"notes.md"}, a.Unanalyzed)
	require.NotNil(t, a.Summary)
	assert.False(t, a.CacheHit)

	// The persistent tier carries the result into the next invocation
	out, err = execute(t, "analyze", dir, "--root", dir, "--format", "json")
	require.NoError(t, err)
	var again project.Analysis
	require.NoError(t, json.Unmarshal([]byte(out), &again))
	assert.True(t, again.CacheHit)
	assert.Equal(t, a.ScanID, again.ScanID)

	out, err = execute(t, "cache", "stats", "--root", dir, "--format", "json")
	require.NoError(t, err)
	var stats cache.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 1, stats.PersistentSize)

	out, err = execute(t, "cache", "invalidate", `"op":"scan"`, "--root", dir, "--format", "json")
	require.NoError(t, err)
	var inv invalidation
	require.NoError(t, json.Unmarshal([]byte(out), &inv))
	assert.Equal(t, 0, inv.Removed)

	out, err = execute(t, "cache", "clear", "--root", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 cache entries")

	out, err = execute(t, "cache", "stats", "--root", dir, "--format", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 0, stats.PersistentSize)
}

func TestCacheInvalidate_BadPattern(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "cache", "invalidate", "(", "--root", dir)
	assert.True(t, errors.IsCode(err, errors.InvalidPattern))
	assert.Equal(t, 2, exitCode(err))
}

func TestFileCommands(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, map[string]string{"empty.ts": "", "data.csv": "a,b\n"})

	out, err := execute(t, "file", filepath.Join(dir, "empty.ts"), "--root", dir, "--format", "json")
	require.NoError(t, err)
	var fa struct {
		Path     string `json:"path"`
		Language string `json:"language"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &fa))
	assert.Equal(t, filepath.Join(dir, "empty.ts"), fa.Path)
	assert.Equal(t, "typescript", fa.Language)

	out, err = execute(t, "deps", filepath.Join(dir, "empty.ts"), "--root", dir, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"dependencies": []`)

	_, err = execute(t, "complexity", filepath.Join(dir, "data.csv"), "--root", dir)
	assert.True(t, errors.IsCode(err, errors.UnsupportedLanguage))

	_, err = execute(t, "file", filepath.Join(t.TempDir(), "x.js"), "--root", dir)
	assert.True(t, errors.IsCode(err, errors.PathNotAllowed))
}

func TestScanCommand_MissingDirectory(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "scan", filepath.Join(dir, "nope"), "--root", dir)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.FileNotFound))
	assert.Equal(t, 1, exitCode(err))

	var buf bytes.Buffer
	printError(&buf, err, FormatJSON)
	assert.Contains(t, buf.String(), `"code": "FILE_NOT_FOUND"`)
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "config", "init", "--root", dir)
	require.NoError(t, err)
	assert.Contains(t, out, ".codefacts.toml")
	assert.FileExists(t, filepath.Join(dir, ".codefacts.toml"))

	_, err = execute(t, "config", "init", "--root", dir)
	assert.True(t, errors.IsCode(err, errors.InvalidInput))

	_, err = execute(t, "config", "init", "--root", dir, "--force")
	require.NoError(t, err)

	writeFixture(t, dir, map[string]string{".env": "CODEFACTS_LIMITS_MAXFILECOUNT=42\n"})
	t.Setenv("CODEFACTS_LIMITS_MAXFILECOUNT", "")
	require.NoError(t, os.Unsetenv("CODEFACTS_LIMITS_MAXFILECOUNT"))

	out, err = execute(t, "config", "show", "--root", dir, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"maxFileCount": 42`)

	out, err = execute(t, "config", "show", "--root", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "[limits]")
}
