package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codefacts/internal/errors"
	"codefacts/internal/fsaccess"
)

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func newSource(t *testing.T, root string) *fsaccess.Accessor {
	t.Helper()
	a, err := fsaccess.New(fsaccess.Options{AllowedRoots: []string{root}, BaseDir: root})
	require.NoError(t, err)
	return a
}

func testOptions(src Source) Options {
	return Options{Source: src, ResolveDependencies: true, Now: func() time.Time { return fixedNow }}
}

func TestIsExternal(t *testing.T) {
	tests := []struct {
		target   string
		external bool
	}{
		{"./a", false},
		{"../b", false},
		{"/abs/c", false},
		{".", false},
		{"lodash", true},
		{"@scope/pkg", true},
		{"node:fs", true},
		{"os.path", true},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.external, IsExternal(tt.target))
			assert.Equal(t, tt.external, NewDependency("/x.js", tt.target, KindImport, Location{}).External)
		})
	}
}

func TestZeroByteFile(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "empty.ts", "")
	a := NewTypeScript(testOptions(newSource(t, root)))

	fa, err := a.AnalyzeFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, path, fa.Path)
	assert.Equal(t, "typescript", fa.Language)
	assert.Equal(t, 1, fa.Metrics.Cyclomatic)
	assert.Empty(t, fa.Dependencies)
	assert.NotNil(t, fa.Dependencies)
	assert.NotNil(t, fa.Functions)
	assert.Equal(t, fixedNow, fa.AnalyzedAt)

	fc, err := a.CalculateComplexity(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, fc.Metrics.Cyclomatic)
	assert.Empty(t, fc.Functions)
}

func TestUnsupportedExtension(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "main.go", "package main\n")
	a := NewJavaScript(testOptions(newSource(t, root)))

	_, err := a.AnalyzeFile(context.Background(), path)
	assert.True(t, errors.IsCode(err, errors.UnsupportedLanguage))

	// JavaScript does not claim TypeScript files even though the grammar family is shared
	ts := writeFile(t, root, "a.ts", "let x = 1\n")
	_, err = a.AnalyzeFile(context.Background(), ts)
	assert.True(t, errors.IsCode(err, errors.UnsupportedLanguage))
}

func TestAnalyzeFile_SecurityErrorsPassThrough(t *testing.T) {
	root := t.TempDir()
	a := NewJavaScript(testOptions(newSource(t, root)))

	_, err := a.AnalyzeFile(context.Background(), root+"/../x.js")
	assert.True(t, errors.IsCode(err, errors.PathTraversal))

	_, err = a.AnalyzeFile(context.Background(), filepath.Join(root, "missing.js"))
	assert.True(t, errors.IsCode(err, errors.FileNotFound))
}

func TestBatch_RecordsFailures(t *testing.T) {
	root := t.TempDir()
	empty := writeFile(t, root, "a.js", "")
	missing := filepath.Join(root, "gone.js")
	other := writeFile(t, root, "b.txt", "hello")
	a := NewJavaScript(Options{Source: newSource(t, root), ChunkSize: 2})

	res, err := a.AnalyzeBatch(context.Background(), []string{empty, missing, other})
	require.NoError(t, err)

	require.Len(t, res.Files, 1)
	assert.Equal(t, empty, res.Files[0].Path)
	require.Len(t, res.Failures, 2)
	assert.Equal(t, missing, res.Failures[0].Path)
	assert.Equal(t, string(errors.FileNotFound), res.Failures[0].Code)
	assert.Equal(t, string(errors.UnsupportedLanguage), res.Failures[1].Code)
}

func TestBatch_StopsOnCancel(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "a.js", "")
	a := NewJavaScript(Options{Source: newSource(t, root)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := a.AnalyzeBatch(ctx, []string{path})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Files)
}

func TestEcmaCandidates(t *testing.T) {
	js := &ecmaFrontend{}
	got := js.candidates("/p/src", "./util")
	assert.Equal(t, "/p/src/util", got[0])
	assert.Contains(t, got, "/p/src/util.js")
	assert.Contains(t, got, "/p/src/util/index.js")
	assert.NotContains(t, got, "/p/src/util.ts")

	ts := &ecmaFrontend{typescript: true}
	got = ts.candidates("/p/src", "../lib/x.js")
	assert.Equal(t, "/p/lib/x.js", got[0])
	assert.Equal(t, "/p/lib/x.ts", got[1])

	got = ts.candidates("/p/src", "/abs/mod")
	assert.Equal(t, "/abs/mod", got[0])
}

func TestPythonCandidates(t *testing.T) {
	py := pythonFrontend{}
	assert.Equal(t, []string{"/p/pkg/util.py", "/p/pkg/util.pyi", "/p/pkg/util/__init__.py"},
		py.candidates("/p/pkg", ".util"))
	assert.Equal(t, []string{"/p/other/mod.py", "/p/other/mod.pyi", "/p/other/mod/__init__.py"},
		py.candidates("/p/pkg", "..other.mod"))
	assert.Equal(t, []string{"/p/pkg/__init__.py"}, py.candidates("/p/pkg", "."))
}
