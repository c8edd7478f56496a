package analyzer

import (
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"codefacts/internal/complexity"
	"codefacts/internal/config"
	"codefacts/internal/slogutil"
)

// Registry maps language tags and file extensions to analyzers
type Registry struct {
	mu          sync.RWMutex
	byLanguage  map[string]Analyzer
	byExtension map[string]Analyzer
	logger      *slog.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		byLanguage:  make(map[string]Analyzer),
		byExtension: make(map[string]Analyzer),
		logger:      slogutil.OrDiscard(logger),
	}
}

// NormalizeExtension lowercases ext and ensures a leading dot
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Register indexes a by language and by every extension it claims. An
// extension already held by a higher-priority analyzer is left alone; equal
// priority is replaced.
func (r *Registry) Register(a Analyzer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byLanguage[strings.ToLower(a.Language())] = a
	for _, ext := range a.Extensions() {
		ext = NormalizeExtension(ext)
		if current, ok := r.byExtension[ext]; ok && current.Priority() > a.Priority() {
			r.logger.Debug("extension kept by higher priority analyzer",
				"extension", ext, "kept", current.Language(), "skipped", a.Language())
			continue
		}
		r.byExtension[ext] = a
	}
}

// GetByLanguage returns the analyzer registered for a language tag
func (r *Registry) GetByLanguage(language string) (Analyzer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byLanguage[strings.ToLower(language)]
	return a, ok
}

// GetByExtension returns the analyzer claiming an extension, with or without the dot
func (r *Registry) GetByExtension(ext string) (Analyzer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byExtension[NormalizeExtension(ext)]
	return a, ok
}

// ForPath returns the analyzer for a file path's extension
func (r *Registry) ForPath(path string) (Analyzer, bool) {
	return r.GetByExtension(filepath.Ext(path))
}

// ListLanguages returns the registered language tags, sorted
func (r *Registry) ListLanguages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byLanguage))
	for l := range r.byLanguage {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// ListExtensions returns the claimed extensions, sorted
func (r *Registry) ListExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byExtension))
	for e := range r.byExtension {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// constructors is the set of built-in analyzers by language tag
var constructors = map[string]func(Options) Analyzer{
	"javascript": NewJavaScript,
	"typescript": NewTypeScript,
	"python":     NewPython,
}

// NewDefaultRegistry registers every built-in analyzer enabled in cfg.
// Languages are registered in sorted order so conflicts settle the same way
// on every run.
func NewDefaultRegistry(cfg *config.Config, src Source, logger *slog.Logger) *Registry {
	r := NewRegistry(logger)

	languages := make([]string, 0, len(constructors))
	for l := range constructors {
		languages = append(languages, l)
	}
	sort.Strings(languages)

	for _, lang := range languages {
		lc, ok := cfg.Languages[lang]
		if !ok || !lc.Enabled {
			continue
		}
		r.Register(constructors[lang](Options{
			Source:              src,
			Extensions:          lc.Extensions,
			Mode:                complexity.Mode(cfg.Analysis.CognitiveMode),
			ChunkSize:           cfg.Limits.Concurrency,
			ResolveDependencies: cfg.Analysis.ResolveDependencies,
			AllowSyntaxErrors:   cfg.Analysis.AllowSyntaxErrors,
			Logger:              logger,
		}))
	}
	return r
}
