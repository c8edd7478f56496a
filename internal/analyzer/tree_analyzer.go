package analyzer

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"codefacts/internal/complexity"
	"codefacts/internal/errors"
	"codefacts/internal/fsaccess"
	"codefacts/internal/slogutil"
	"codefacts/internal/syntax"
)

// DefaultChunkSize is the number of files analyzed concurrently by AnalyzeBatch
const DefaultChunkSize = 4

// Options configures a language analyzer
type Options struct {
	// Source reads files; required
	Source Source
	// Extensions overrides the default claimed extensions
	Extensions []string
	// Mode selects cognitive weighting; empty means flat
	Mode complexity.Mode
	// ChunkSize bounds AnalyzeBatch fan-out; zero means DefaultChunkSize
	ChunkSize int
	// ResolveDependencies probes the filesystem for internal targets
	ResolveDependencies bool
	// AllowSyntaxErrors returns partial facts for recovered parses instead of failing
	AllowSyntaxErrors bool
	Logger            *slog.Logger
	// Now stamps AnalyzedAt; defaults to time.Now
	Now func() time.Time
}

// fnDecl pairs a function's facts with its node so complexity can be attached
type fnDecl struct {
	info FunctionInfo
	node *syntax.Node
}

// frontend extracts language-specific facts from a parsed tree
type frontend interface {
	grammar(ext string) (syntax.Language, bool)
	rules() *complexity.Rules
	dependencies(t *syntax.Tree, path string) []Dependency
	imports(t *syntax.Tree) []ImportInfo
	exports(t *syntax.Tree) []ExportInfo
	functions(t *syntax.Tree) []fnDecl
	classes(t *syntax.Tree) []ClassInfo
	variables(t *syntax.Tree) []VariableInfo
	comments(t *syntax.Tree) []Comment
	// candidates lists the paths an internal specifier may resolve to, in order
	candidates(dir, target string) []string
}

// treeAnalyzer implements Analyzer over a tree-sitter grammar
type treeAnalyzer struct {
	language   string
	extensions []string
	priority   int
	fe         frontend
	src        Source
	calc       *complexity.Calculator
	chunkSize  int
	resolve    bool
	lenient    bool
	logger     *slog.Logger
	now        func() time.Time
}

func newTreeAnalyzer(language string, priority int, defaults []string, fe frontend, opts Options) *treeAnalyzer {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = defaults
	}
	normalized := make([]string, 0, len(exts))
	for _, e := range exts {
		if n := NormalizeExtension(e); n != "" && !slices.Contains(normalized, n) {
			normalized = append(normalized, n)
		}
	}
	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &treeAnalyzer{
		language:   language,
		extensions: normalized,
		priority:   priority,
		fe:         fe,
		src:        opts.Source,
		calc:       complexity.NewCalculator(fe.rules(), opts.Mode),
		chunkSize:  chunk,
		resolve:    opts.ResolveDependencies,
		lenient:    opts.AllowSyntaxErrors,
		logger:     slogutil.OrDiscard(opts.Logger).With("analyzer", language),
		now:        now,
	}
}

func (a *treeAnalyzer) Language() string { return a.language }

func (a *treeAnalyzer) Extensions() []string { return slices.Clone(a.extensions) }

func (a *treeAnalyzer) Priority() int { return a.priority }

// AnalyzeFile derives every fact for one file
func (a *treeAnalyzer) AnalyzeFile(ctx context.Context, path string) (*FileAnalysis, error) {
	tree, lang, err := a.load(ctx, path)
	if err != nil {
		return nil, err
	}

	fa := newEmptyAnalysis(path, lang, a.now())
	if tree == nil {
		return fa, nil
	}
	fa.HasSyntaxErrors = tree.HasError

	// syntax trees are immutable, so derivations only share reads
	var g errgroup.Group
	g.Go(func() error {
		fa.Dependencies = a.dependencies(tree, path)
		return nil
	})
	g.Go(func() error {
		fa.Imports = orEmpty(a.fe.imports(tree))
		return nil
	})
	g.Go(func() error {
		fa.Exports = orEmpty(a.fe.exports(tree))
		return nil
	})
	g.Go(func() error {
		fa.Metrics = a.calc.Compute(tree)
		return nil
	})
	g.Go(func() error {
		fa.Functions = a.functions(tree)
		return nil
	})
	g.Go(func() error {
		fa.Classes = orEmpty(a.fe.classes(tree))
		fa.Variables = orEmpty(a.fe.variables(tree))
		return nil
	})
	g.Go(func() error {
		fa.Comments = orEmpty(a.fe.comments(tree))
		return nil
	})
	_ = g.Wait()

	a.logger.Debug("analyzed file",
		"path", path,
		"dependencies", len(fa.Dependencies),
		"functions", len(fa.Functions),
		"syntaxErrors", fa.HasSyntaxErrors,
	)
	return fa, nil
}

// AnalyzeBatch analyzes paths chunk by chunk. A chunk starts only after the
// previous one has settled.
func (a *treeAnalyzer) AnalyzeBatch(ctx context.Context, paths []string) (*BatchResult, error) {
	res := &BatchResult{
		Files:    make([]*FileAnalysis, 0, len(paths)),
		Failures: []Failure{},
	}

	type slot struct {
		fa  *FileAnalysis
		err error
	}

	for start := 0; start < len(paths); start += a.chunkSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		chunk := paths[start:min(start+a.chunkSize, len(paths))]
		slots := make([]slot, len(chunk))

		var g errgroup.Group
		for i, p := range chunk {
			g.Go(func() error {
				fa, err := a.AnalyzeFile(ctx, p)
				slots[i] = slot{fa: fa, err: err}
				return nil
			})
		}
		_ = g.Wait()

		for i, s := range slots {
			if s.err != nil {
				res.Failures = append(res.Failures, Failure{
					Path:    chunk[i],
					Code:    string(errors.CodeOf(s.err)),
					Message: s.err.Error(),
				})
				a.logger.Warn("file analysis failed", "path", chunk[i], "error", s.err)
				continue
			}
			res.Files = append(res.Files, s.fa)
		}
	}
	return res, nil
}

// ExtractDependencies returns only the dependency edges of a file
func (a *treeAnalyzer) ExtractDependencies(ctx context.Context, path string) ([]Dependency, error) {
	tree, _, err := a.load(ctx, path)
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return []Dependency{}, nil
	}
	return a.dependencies(tree, path), nil
}

// CalculateComplexity returns file and per-function metrics
func (a *treeAnalyzer) CalculateComplexity(ctx context.Context, path string) (*complexity.FileComplexity, error) {
	tree, lang, err := a.load(ctx, path)
	if err != nil {
		return nil, err
	}
	return a.calc.File(path, lang, tree), nil
}

// load reads and parses path. A nil tree with nil error means the file is empty.
func (a *treeAnalyzer) load(ctx context.Context, path string) (*syntax.Tree, string, error) {
	ext := NormalizeExtension(filepath.Ext(path))
	grammar, ok := a.grammarFor(ext)
	if !ok {
		return nil, "", errors.Newf(errors.UnsupportedLanguage, "%s analyzer does not handle %q files", a.language, ext).
			WithPath(path)
	}

	lang := fsaccess.LanguageForExtension(ext)
	if lang == "" {
		lang = a.language
	}

	if err := ctx.Err(); err != nil {
		return nil, lang, err
	}
	data, err := a.src.ReadFile(path)
	if err != nil {
		return nil, lang, err
	}
	if len(data) == 0 {
		return nil, lang, nil
	}

	tree, err := syntax.Parse(ctx, data, grammar)
	if err != nil {
		if ctx.Err() != nil {
			return nil, lang, ctx.Err()
		}
		return nil, lang, errors.New(errors.ParseFailed, "failed to parse file", err).WithPath(path)
	}
	if tree.HasError && !a.lenient {
		return nil, lang, errors.New(errors.ParseFailed, "file contains syntax errors", nil).WithPath(path)
	}
	return tree, lang, nil
}

func (a *treeAnalyzer) grammarFor(ext string) (syntax.Language, bool) {
	if !slices.Contains(a.extensions, ext) {
		return "", false
	}
	return a.fe.grammar(ext)
}

func (a *treeAnalyzer) dependencies(tree *syntax.Tree, path string) []Dependency {
	deps := orEmpty(a.fe.dependencies(tree, path))
	if !a.resolve {
		return deps
	}
	dir := filepath.Dir(path)
	for i := range deps {
		if deps[i].External {
			continue
		}
		for _, cand := range a.fe.candidates(dir, deps[i].Target) {
			if a.src.Exists(cand) {
				deps[i].Resolved = true
				deps[i].ResolvedPath = cand
				break
			}
		}
	}
	return deps
}

func (a *treeAnalyzer) functions(tree *syntax.Tree) []FunctionInfo {
	decls := a.fe.functions(tree)
	out := make([]FunctionInfo, 0, len(decls))
	for _, d := range decls {
		info := d.info
		info.Cyclomatic = a.calc.Cyclomatic(tree, d.node)
		info.Cognitive = a.calc.Cognitive(tree, d.node)
		if info.Params == nil {
			info.Params = []string{}
		}
		out = append(out, info)
	}
	return out
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
