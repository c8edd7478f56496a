// Package project scans a project directory: it detects the project type,
// derives its configuration and metadata, builds the structure tree and
// runs the language analyzers over its files.
package project

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"codefacts/internal/analyzer"
	"codefacts/internal/cache"
	"codefacts/internal/config"
	"codefacts/internal/errors"
	"codefacts/internal/fsaccess"
	"codefacts/internal/limits"
	"codefacts/internal/slogutil"
)

// Options configures a Scanner. Only Accessor is required.
type Options struct {
	Config   *config.Config
	Accessor *fsaccess.Accessor
	// Registry defaults to the built-in analyzers enabled in Config
	Registry *analyzer.Registry
	// Cache may be nil to disable caching
	Cache   *cache.Cache
	Limiter *limits.Limiter
	Logger  *slog.Logger
	Now     func() time.Time
}

// Scanner runs project-level operations under the configured limits and cache.
type Scanner struct {
	cfg      *config.Config
	access   *fsaccess.Accessor
	registry *analyzer.Registry
	cache    *cache.Cache
	limiter  *limits.Limiter
	logger   *slog.Logger
	now      func() time.Time
}

// NewScanner creates a scanner.
func NewScanner(opts Options) (*Scanner, error) {
	if opts.Accessor == nil {
		return nil, errors.New(errors.InvalidInput, "scanner requires a file accessor", nil)
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := slogutil.OrDiscard(opts.Logger)

	s := &Scanner{
		cfg:      cfg,
		access:   opts.Accessor,
		registry: opts.Registry,
		cache:    opts.Cache,
		limiter:  opts.Limiter,
		logger:   logger,
		now:      opts.Now,
	}
	if s.registry == nil {
		s.registry = analyzer.NewDefaultRegistry(cfg, opts.Accessor, logger)
	}
	if s.limiter == nil {
		s.limiter = limits.NewLimiter(limits.FromConfig(cfg), logger)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// NewFromConfig assembles the accessor, cache, registry and limiter described
// by cfg. baseDir resolves relative roots and the cache directory.
func NewFromConfig(cfg *config.Config, baseDir string, logger *slog.Logger) (*Scanner, error) {
	access, err := fsaccess.New(fsaccess.Options{
		AllowedRoots: cfg.Security.AllowedRoots,
		MaxFileBytes: cfg.Limits.MaxFileSizeBytes,
		BaseDir:      baseDir,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	c, err := cache.NewFromConfig(cfg, baseDir, logger)
	if err != nil {
		// the engine still works uncached
		slogutil.OrDiscard(logger).Warn("cache disabled", "error", err)
		c = nil
	}
	return NewScanner(Options{Config: cfg, Accessor: access, Cache: c, Logger: logger})
}

// Registry returns the analyzer registry in use
func (s *Scanner) Registry() *analyzer.Registry { return s.registry }

// Accessor returns the file accessor in use
func (s *Scanner) Accessor() *fsaccess.Accessor { return s.access }

// Cache returns the cache in use, possibly nil
func (s *Scanner) Cache() *cache.Cache { return s.cache }

// cacheKey is the logical key of a cached operation
type cacheKey struct {
	Op      string `json:"op"`
	Path    string `json:"path"`
	Request any    `json:"request,omitempty"`
}

// ScanProject detects the project type and derives its configuration and metadata.
func (s *Scanner) ScanProject(ctx context.Context, req ScanRequest) (*Descriptor, error) {
	root, err := s.prepare(&req)
	if err != nil {
		return nil, err
	}

	key := cacheKey{Op: "scan", Path: root, Request: req}
	d, hit, err := cache.Remember(ctx, s.cache, key, 0, func(ctx context.Context) (*Descriptor, error) {
		return limits.Do(ctx, s.limiter, "scanProject", func(ctx context.Context) (*Descriptor, error) {
			return s.scan(ctx, root, req)
		})
	})
	if err != nil {
		return nil, err
	}
	d.CacheHit = hit
	return d, nil
}

func (s *Scanner) scan(ctx context.Context, root string, req ScanRequest) (*Descriptor, error) {
	start := s.now()
	typ, err := s.detectType(ctx, root)
	if err != nil {
		return nil, err
	}

	d := &Descriptor{
		ScanID:    uuid.NewString(),
		Path:      root,
		Type:      typ,
		ScannedAt: start,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cfg, err := s.configuration(gctx, root)
		d.Configuration = cfg
		return err
	})
	g.Go(func() error {
		md, err := s.metadata(gctx, root, s.listOptions(req))
		d.Metadata = md
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("scanned project",
		"path", root,
		"type", typ,
		"files", d.Metadata.FileCount,
		"scanId", d.ScanID,
		"duration", s.now().Sub(start),
	)
	return d, nil
}

// BuildStructureTree returns the file tree under path.
func (s *Scanner) BuildStructureTree(ctx context.Context, path string, opts TreeOptions) (*StructureNode, error) {
	root, err := s.validateDir(path)
	if err != nil {
		return nil, err
	}
	if opts.Depth < 0 {
		return nil, errors.New(errors.InvalidInput, "depth must not be negative", nil).With("depth", opts.Depth)
	}
	if opts.Depth == 0 {
		opts.Depth = s.cfg.Scan.MaxDepth
	}
	if opts.Exclude == nil {
		opts.Exclude = s.cfg.Scan.Exclude
	}

	key := cacheKey{Op: "tree", Path: root, Request: opts}
	node, _, err := cache.Remember(ctx, s.cache, key, 0, func(ctx context.Context) (*StructureNode, error) {
		return limits.Do(ctx, s.limiter, "buildStructureTree", func(ctx context.Context) (*StructureNode, error) {
			b := &treeBuilder{s: s, root: root, depth: opts.Depth, exclude: opts.Exclude}
			info, err := s.access.StatDirectory(root, root)
			if err != nil {
				return nil, err
			}
			return b.build(ctx, root, "", 0, info.ModTime)
		})
	})
	return node, err
}

// AnalyzeProject runs the registered analyzers over every matching file.
func (s *Scanner) AnalyzeProject(ctx context.Context, req ScanRequest) (*Analysis, error) {
	root, err := s.prepare(&req)
	if err != nil {
		return nil, err
	}

	key := cacheKey{Op: "analyze", Path: root, Request: req}
	a, hit, err := cache.Remember(ctx, s.cache, key, 0, func(ctx context.Context) (*Analysis, error) {
		return limits.Do(ctx, s.limiter, "analyzeProject", func(ctx context.Context) (*Analysis, error) {
			return s.analyze(ctx, root, req)
		})
	})
	if err != nil {
		return nil, err
	}
	a.CacheHit = hit
	return a, nil
}

func (s *Scanner) analyze(ctx context.Context, root string, req ScanRequest) (*Analysis, error) {
	start := s.now()
	files, err := s.access.ListFiles(ctx, root, s.listOptions(req))
	if err != nil {
		return nil, err
	}
	if err := s.limiter.CheckFileCount(len(files)); err != nil {
		return nil, err
	}

	res := &Analysis{
		ScanID:     uuid.NewString(),
		Path:       root,
		Files:      []*analyzer.FileAnalysis{},
		Failures:   []analyzer.Failure{},
		Unanalyzed: []string{},
		Graph:      []Edge{},
	}

	buckets := make(map[string][]string)
	for _, f := range files {
		a, ok := s.registry.ForPath(f)
		if !ok {
			res.Unanalyzed = append(res.Unanalyzed, relPath(root, f))
			continue
		}
		buckets[a.Language()] = append(buckets[a.Language()], f)
	}

	languages := make([]string, 0, len(buckets))
	for l := range buckets {
		languages = append(languages, l)
	}
	sort.Strings(languages)

	for _, lang := range languages {
		a, _ := s.registry.GetByLanguage(lang)
		batch, err := a.AnalyzeBatch(ctx, buckets[lang])
		if err != nil {
			return nil, err
		}
		res.Files = append(res.Files, batch.Files...)
		res.Failures = append(res.Failures, batch.Failures...)
	}

	sort.Slice(res.Files, func(i, j int) bool { return res.Files[i].Path < res.Files[j].Path })
	sort.Slice(res.Failures, func(i, j int) bool { return res.Failures[i].Path < res.Failures[j].Path })
	res.Graph = dependencyGraph(root, res.Files)
	if req.CalculateMetrics {
		res.Summary = summarize(root, res.Files)
	}

	s.logger.Info("analyzed project",
		"path", root,
		"files", len(res.Files),
		"failures", len(res.Failures),
		"unanalyzed", len(res.Unanalyzed),
		"edges", len(res.Graph),
		"duration", s.now().Sub(start),
	)
	return res, nil
}

func dependencyGraph(root string, files []*analyzer.FileAnalysis) []Edge {
	edges := []Edge{}
	for _, fa := range files {
		from := relPath(root, fa.Path)
		for _, d := range fa.Dependencies {
			if d.External {
				continue
			}
			to := d.Target
			if d.Resolved {
				to = relPath(root, d.ResolvedPath)
			}
			edges = append(edges, Edge{From: from, To: to, Kind: d.Kind, Resolved: d.Resolved, Line: d.Location.Line})
		}
	}
	return edges
}

func summarize(root string, files []*analyzer.FileAnalysis) *MetricsSummary {
	sum := &MetricsSummary{FileCount: len(files), Languages: map[string]int{}}
	for _, fa := range files {
		sum.FunctionCount += len(fa.Functions)
		sum.TotalCyclomatic += fa.Metrics.Cyclomatic
		sum.TotalCognitive += fa.Metrics.Cognitive
		sum.Languages[fa.Language]++
		if fa.Metrics.Cyclomatic > sum.MaxCyclomatic {
			sum.MaxCyclomatic = fa.Metrics.Cyclomatic
			sum.MaxCyclomaticFile = relPath(root, fa.Path)
		}
	}
	if sum.FileCount > 0 {
		sum.AverageCyclomatic = float64(sum.TotalCyclomatic) / float64(sum.FileCount)
	}
	return sum
}

// prepare validates the request and normalizes it into a stable cache key
func (s *Scanner) prepare(req *ScanRequest) (string, error) {
	root, err := s.validateDir(req.ProjectPath)
	if err != nil {
		return "", err
	}
	if req.Depth < 0 {
		return "", errors.New(errors.InvalidInput, "depth must not be negative", nil).With("depth", req.Depth)
	}
	req.ProjectPath = root
	req.DetectPatterns = false
	return root, nil
}

// validateDir checks path against the allow-list and requires a directory
func (s *Scanner) validateDir(path string) (string, error) {
	root, err := s.access.Validate(path)
	if err != nil {
		return "", err
	}
	if s.access.IsDir(root) {
		return root, nil
	}
	if s.access.Exists(root) {
		return "", errors.New(errors.NotADirectory, "project path is not a directory", nil).WithPath(path)
	}
	return "", errors.New(errors.FileNotFound, "project path not found", nil).WithPath(path)
}

func (s *Scanner) listOptions(req ScanRequest) fsaccess.ListOptions {
	include := req.IncludePatterns
	if len(include) == 0 {
		include = s.cfg.Scan.Include
	}
	exclude := append(append([]string{}, s.cfg.Scan.Exclude...), req.ExcludePatterns...)
	depth := req.Depth
	if depth == 0 {
		depth = s.cfg.Scan.MaxDepth
	}
	return fsaccess.ListOptions{
		Include:        include,
		Exclude:        exclude,
		MaxFileBytes:   s.cfg.Limits.MaxFileSizeBytes,
		MaxDepth:       depth,
		FollowSymlinks: s.cfg.Scan.FollowSymlinks,
	}
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
