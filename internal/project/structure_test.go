package project

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codefacts/internal/cache"
	"codefacts/internal/errors"
)

func TestBuildStructureTree(t *testing.T) {
	dir := setupTestDir(t, []string{"b.txt", "a/z.js", "a/y.py", "c/d/e.md", "node_modules/pkg/index.js"})
	writeFile(t, dir, "a/x.ts", "let x = 1;\n")

	s := newTestScanner(t, dir, nil)
	root, err := s.BuildStructureTree(context.Background(), dir, TreeOptions{})
	require.NoError(t, err)

	assert.Equal(t, NodeDirectory, root.Kind)
	assert.Equal(t, "", root.RelativePath)

	var names []string
	for _, c := range root.Children {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"a", "b.txt", "c"}, names, "children are sorted and excludes apply")
	assert.Equal(t, 1, root.FileCount)
	assert.Equal(t, 2, root.SubdirCount)

	a := root.Children[0]
	require.Len(t, a.Children, 3)
	assert.Equal(t, "a/x.ts", a.Children[0].RelativePath)
	assert.Equal(t, NodeFile, a.Children[0].Kind)
	assert.Equal(t, "typescript", a.Children[0].Language)
	assert.Equal(t, ".ts", a.Children[0].Extension)
	assert.Equal(t, int64(11), a.Children[0].Size)
	assert.Equal(t, int64(11), a.TotalSize)

	assert.Equal(t, "c/d/e.md", root.Children[2].Children[0].Children[0].RelativePath)
}

func TestBuildStructureTree_Deterministic(t *testing.T) {
	dir := setupTestDir(t, []string{"src/a.js", "src/lib/b.js", "docs/readme.md", "z.txt"})
	s := newTestScanner(t, dir, nil)

	first, err := s.BuildStructureTree(context.Background(), dir, TreeOptions{})
	require.NoError(t, err)
	second, err := s.BuildStructureTree(context.Background(), dir, TreeOptions{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestBuildStructureTree_DepthExceeded(t *testing.T) {
	dir := t.TempDir()
	deep := filepath.Join(dir, filepath.FromSlash(strings.Repeat("level/", 12)))
	require.NoError(t, os.MkdirAll(deep, 0o755))
	writeFile(t, deep, "leaf.txt", "x")

	s := newTestScanner(t, dir, nil)
	node, err := s.BuildStructureTree(context.Background(), dir, TreeOptions{Depth: 10})
	assert.Nil(t, node)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.DepthExceeded))

	e, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, 10, e.Details["max"])
	assert.Equal(t, 11, e.Details["actual"])

	// A bound that covers the tree succeeds
	node, err = s.BuildStructureTree(context.Background(), dir, TreeOptions{Depth: 13})
	require.NoError(t, err)
	assert.Equal(t, "level", node.Children[0].Name)
}

func TestBuildStructureTree_FilesCountTowardDepth(t *testing.T) {
	dir := setupTestDir(t, []string{"a/b.txt"})
	s := newTestScanner(t, dir, nil)

	_, err := s.BuildStructureTree(context.Background(), dir, TreeOptions{Depth: 1})
	assert.True(t, errors.IsCode(err, errors.DepthExceeded))

	_, err = s.BuildStructureTree(context.Background(), dir, TreeOptions{Depth: 2})
	assert.NoError(t, err)
}

func TestBuildStructureTree_SkipsUnreadableDirectories(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read any directory")
	}
	dir := setupTestDir(t, []string{"open/a.txt", "locked/b.txt"})
	locked := filepath.Join(dir, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	s := newTestScanner(t, dir, nil)
	root, err := s.BuildStructureTree(context.Background(), dir, TreeOptions{})
	require.NoError(t, err)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "open", root.Children[0].Name)
}

func TestBuildStructureTree_CustomExclude(t *testing.T) {
	dir := setupTestDir(t, []string{"keep.go", "gen/out.go", "a.log"})
	s := newTestScanner(t, dir, nil)

	root, err := s.BuildStructureTree(context.Background(), dir, TreeOptions{Exclude: []string{"gen/**", "*.log"}})
	require.NoError(t, err)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "keep.go", root.Children[0].Name)
}

func TestBuildStructureTree_Cached(t *testing.T) {
	dir := setupTestDir(t, []string{"a.txt"})
	c, err := cache.New(cache.Options{})
	require.NoError(t, err)
	s := newTestScanner(t, dir, c)

	_, err = s.BuildStructureTree(context.Background(), dir, TreeOptions{})
	require.NoError(t, err)
	writeFile(t, dir, "b.txt", "")

	root, err := s.BuildStructureTree(context.Background(), dir, TreeOptions{})
	require.NoError(t, err)
	assert.Len(t, root.Children, 1, "second call is served from cache")
	assert.Equal(t, int64(1), c.Stats().HotHits)
}
