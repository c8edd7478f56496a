package project

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codefacts/internal/cache"
	"codefacts/internal/config"
	"codefacts/internal/errors"
)

func newMemoryCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.New(cache.Options{})
	require.NoError(t, err)
	return c
}

func TestNewScanner_RequiresAccessor(t *testing.T) {
	_, err := NewScanner(Options{})
	assert.True(t, errors.IsCode(err, errors.InvalidInput))
}

func TestScanProject(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"name": "web", "version": "2.0.0", "main": "index.js"}`)
	writeFile(t, dir, "package-lock.json", "{}")
	writeFile(t, dir, "index.js", "module.exports = 1;\n")
	writeFile(t, dir, "src/app.js", "")

	s := newTestScanner(t, dir, nil)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return now }

	d, err := s.ScanProject(context.Background(), ScanRequest{ProjectPath: dir})
	require.NoError(t, err)

	assert.NotEmpty(t, d.ScanID)
	assert.Equal(t, dir, d.Path)
	assert.Equal(t, TypeNodeJS, d.Type)
	assert.Equal(t, now, d.ScannedAt)
	assert.False(t, d.CacheHit)
	assert.Equal(t, "npm", d.Configuration.PackageManager)
	assert.Contains(t, d.Configuration.SourceDirs, "src")
	assert.Contains(t, d.Configuration.EntryPoints, "index.js")
	assert.Equal(t, 4, d.Metadata.FileCount)
	assert.Equal(t, "web", d.Metadata.Name)
	assert.Equal(t, "2.0.0", d.Metadata.Version)
}

func TestScanProject_Cached(t *testing.T) {
	dir := setupTestDir(t, []string{"requirements.txt", "app.py"})
	s := newTestScanner(t, dir, newMemoryCache(t))

	first, err := s.ScanProject(context.Background(), ScanRequest{ProjectPath: dir})
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := s.ScanProject(context.Background(), ScanRequest{ProjectPath: dir, DetectPatterns: true})
	require.NoError(t, err)
	assert.True(t, second.CacheHit, "detectPatterns does not change the cache key")
	assert.Equal(t, first.ScanID, second.ScanID)
	assert.Equal(t, TypePython, second.Type)

	third, err := s.ScanProject(context.Background(), ScanRequest{ProjectPath: dir, Depth: 3})
	require.NoError(t, err)
	assert.False(t, third.CacheHit)
	assert.NotEqual(t, first.ScanID, third.ScanID)
}

func TestScanProject_Uncached(t *testing.T) {
	dir := setupTestDir(t, []string{"go.work"})
	s := newTestScanner(t, dir, nil)

	first, err := s.ScanProject(context.Background(), ScanRequest{ProjectPath: dir})
	require.NoError(t, err)
	second, err := s.ScanProject(context.Background(), ScanRequest{ProjectPath: dir})
	require.NoError(t, err)

	assert.False(t, second.CacheHit)
	assert.NotEqual(t, first.ScanID, second.ScanID)
	assert.Equal(t, TypeMonorepo, second.Type)
}

func TestScanProject_InvalidRequests(t *testing.T) {
	dir := setupTestDir(t, []string{"file.txt"})
	s := newTestScanner(t, dir, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  ScanRequest
		code errors.ErrorCode
	}{
		{"missing directory", ScanRequest{ProjectPath: filepath.Join(dir, "missing")}, errors.FileNotFound},
		{"regular file", ScanRequest{ProjectPath: filepath.Join(dir, "file.txt")}, errors.NotADirectory},
		{"outside allowed roots", ScanRequest{ProjectPath: t.TempDir()}, errors.PathNotAllowed},
		{"traversal", ScanRequest{ProjectPath: dir + "/../x"}, errors.PathTraversal},
		{"negative depth", ScanRequest{ProjectPath: dir, Depth: -1}, errors.InvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ScanProject(ctx, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.CodeOf(err))

			_, err = s.AnalyzeProject(ctx, tt.req)
			assert.Equal(t, tt.code, errors.CodeOf(err))
		})
	}
}

func TestScanProject_Cancelled(t *testing.T) {
	dir := setupTestDir(t, []string{"a.txt"})
	s := newTestScanner(t, dir, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.ScanProject(ctx, ScanRequest{ProjectPath: dir})
	assert.Error(t, err)
}

func TestAnalyzeProject_EmptySources(t *testing.T) {
	// Zero-byte sources need no parser
	dir := setupTestDir(t, []string{"index.js", "lib/util.js", "tool.py", "README.md", "node_modules/dep/index.js"})
	s := newTestScanner(t, dir, nil)

	a, err := s.AnalyzeProject(context.Background(), ScanRequest{ProjectPath: dir, CalculateMetrics: true})
	require.NoError(t, err)

	require.Len(t, a.Files, 3)
	assert.Equal(t, filepath.Join(dir, "index.js"), a.Files[0].Path)
	assert.Equal(t, filepath.Join(dir, "lib", "util.js"), a.Files[1].Path)
	assert.Equal(t, filepath.Join(dir, "tool.py"), a.Files[2].Path)
	assert.Empty(t, a.Failures)
	assert.Equal(t, []string{"README.md"}, a.Unanalyzed)
	assert.Empty(t, a.Graph)

	require.NotNil(t, a.Summary)
	assert.Equal(t, 3, a.Summary.FileCount)
	assert.Equal(t, 0, a.Summary.FunctionCount)
	assert.Equal(t, 2, a.Summary.Languages["javascript"])
	assert.Equal(t, 1, a.Summary.Languages["python"])
}

func TestAnalyzeProject_WithoutMetrics(t *testing.T) {
	dir := setupTestDir(t, []string{"a.ts"})
	s := newTestScanner(t, dir, nil)

	a, err := s.AnalyzeProject(context.Background(), ScanRequest{ProjectPath: dir})
	require.NoError(t, err)
	assert.Nil(t, a.Summary)
	require.Len(t, a.Files, 1)
	assert.Equal(t, "typescript", a.Files[0].Language)
}

func TestAnalyzeProject_FileCountLimit(t *testing.T) {
	dir := setupTestDir(t, []string{"a.js", "b.js", "c.js", "d.txt"})
	s := newTestScanner(t, dir, nil, func(c *config.Config) { c.Limits.MaxFileCount = 3 })

	_, err := s.AnalyzeProject(context.Background(), ScanRequest{ProjectPath: dir})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.LimitExceeded))

	e, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, 3, e.Details["max"])
	assert.Equal(t, 4, e.Details["actual"])

	// Narrowing the include set brings the count under the limit
	a, err := s.AnalyzeProject(context.Background(), ScanRequest{ProjectPath: dir, IncludePatterns: []string{"**/*.js"}})
	require.NoError(t, err)
	assert.Len(t, a.Files, 3)
}

func TestAnalyzeProject_DisabledLanguage(t *testing.T) {
	dir := setupTestDir(t, []string{"a.py", "b.js"})
	s := newTestScanner(t, dir, nil, func(c *config.Config) {
		py := c.Languages["python"]
		py.Enabled = false
		c.Languages["python"] = py
	})

	a, err := s.AnalyzeProject(context.Background(), ScanRequest{ProjectPath: dir})
	require.NoError(t, err)
	require.Len(t, a.Files, 1)
	assert.Equal(t, []string{"a.py"}, a.Unanalyzed)
}

func TestAnalyzeProject_ExcludePatterns(t *testing.T) {
	dir := setupTestDir(t, []string{"src/a.js", "src/gen/b.js"})
	s := newTestScanner(t, dir, nil)

	a, err := s.AnalyzeProject(context.Background(), ScanRequest{
		ProjectPath:     dir,
		ExcludePatterns: []string{"**/gen/**"},
	})
	require.NoError(t, err)
	require.Len(t, a.Files, 1)
	assert.Equal(t, filepath.Join(dir, "src", "a.js"), a.Files[0].Path)
}

func TestAnalyzeProject_Cached(t *testing.T) {
	dir := setupTestDir(t, []string{"a.js"})
	c := newMemoryCache(t)
	s := newTestScanner(t, dir, c)

	first, err := s.AnalyzeProject(context.Background(), ScanRequest{ProjectPath: dir})
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := s.AnalyzeProject(context.Background(), ScanRequest{ProjectPath: dir})
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.ScanID, second.ScanID)

	c.Clear()
	third, err := s.AnalyzeProject(context.Background(), ScanRequest{ProjectPath: dir})
	require.NoError(t, err)
	assert.False(t, third.CacheHit)
}
