package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codefacts/internal/complexity"
	"codefacts/internal/config"
)

type stubAnalyzer struct {
	lang     string
	exts     []string
	priority int
}

func (s *stubAnalyzer) Language() string     { return s.lang }
func (s *stubAnalyzer) Extensions() []string { return s.exts }
func (s *stubAnalyzer) Priority() int        { return s.priority }

func (s *stubAnalyzer) AnalyzeFile(context.Context, string) (*FileAnalysis, error) { return nil, nil }
func (s *stubAnalyzer) AnalyzeBatch(context.Context, []string) (*BatchResult, error) {
	return nil, nil
}
func (s *stubAnalyzer) ExtractDependencies(context.Context, string) ([]Dependency, error) {
	return nil, nil
}
func (s *stubAnalyzer) CalculateComplexity(context.Context, string) (*complexity.FileComplexity, error) {
	return nil, nil
}

func TestRegistry_HigherPriorityWins(t *testing.T) {
	js := &stubAnalyzer{lang: "javascript", exts: []string{".js", ".mjs"}, priority: 10}
	ts := &stubAnalyzer{lang: "typescript", exts: []string{".ts", ".js"}, priority: 20}

	// Registration order must not matter
	for _, order := range [][]Analyzer{{js, ts}, {ts, js}} {
		r := NewRegistry(nil)
		for _, a := range order {
			r.Register(a)
		}

		got, ok := r.GetByExtension(".js")
		require.True(t, ok)
		assert.Equal(t, "typescript", got.Language())

		got, ok = r.GetByExtension("mjs")
		require.True(t, ok)
		assert.Equal(t, "javascript", got.Language())
	}
}

func TestRegistry_EqualPriorityLastWins(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&stubAnalyzer{lang: "a", exts: []string{".x"}, priority: 5})
	r.Register(&stubAnalyzer{lang: "b", exts: []string{".x"}, priority: 5})

	got, ok := r.GetByExtension(".x")
	require.True(t, ok)
	assert.Equal(t, "b", got.Language())
}

func TestRegistry_Lookups(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&stubAnalyzer{lang: "python", exts: []string{"PY", ".pyi"}, priority: 10})
	r.Register(&stubAnalyzer{lang: "javascript", exts: []string{".js"}, priority: 10})

	assert.Equal(t, []string{"javascript", "python"}, r.ListLanguages())
	assert.Equal(t, []string{".js", ".py", ".pyi"}, r.ListExtensions())

	_, ok := r.GetByLanguage("Python")
	assert.True(t, ok)
	_, ok = r.GetByLanguage("ruby")
	assert.False(t, ok)

	a, ok := r.ForPath("/src/app/Main.PY")
	require.True(t, ok)
	assert.Equal(t, "python", a.Language())
	_, ok = r.ForPath("/src/README")
	assert.False(t, ok)
}

func TestRegistry_MixedCaseLanguageTag(t *testing.T) {
	r := NewRegistry(nil)
	ts := &stubAnalyzer{lang: "TypeScript", exts: []string{".ts"}, priority: 10}
	r.Register(ts)

	for _, q := range []string{"typescript", "TypeScript", "TYPESCRIPT"} {
		got, ok := r.GetByLanguage(q)
		require.True(t, ok, q)
		assert.Same(t, ts, got)
	}
	assert.Equal(t, []string{"typescript"}, r.ListLanguages())
}

func TestNormalizeExtension(t *testing.T) {
	assert.Equal(t, ".ts", NormalizeExtension("TS"))
	assert.Equal(t, ".ts", NormalizeExtension(".ts"))
	assert.Equal(t, "", NormalizeExtension(" "))
}

func TestNewDefaultRegistry(t *testing.T) {
	cfg := config.DefaultConfig()
	r := NewDefaultRegistry(cfg, nil, nil)

	assert.Equal(t, []string{"javascript", "python", "typescript"}, r.ListLanguages())

	a, ok := r.GetByExtension(".js")
	require.True(t, ok)
	assert.Equal(t, "typescript", a.Language())
	assert.Equal(t, 20, a.Priority())

	a, ok = r.GetByExtension(".cjs")
	require.True(t, ok)
	assert.Equal(t, "javascript", a.Language())

	lc := cfg.Languages["python"]
	lc.Enabled = false
	cfg.Languages["python"] = lc
	r = NewDefaultRegistry(cfg, nil, nil)
	_, ok = r.GetByExtension(".py")
	assert.False(t, ok)
}
