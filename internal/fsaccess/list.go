package fsaccess

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"

	"codefacts/internal/errors"
)

// ListOptions filters a recursive listing
type ListOptions struct {
	// Include globs; empty matches every file
	Include []string
	// Exclude globs, applied after Include. Patterns ending in "/**" also prune directories.
	Exclude []string
	// MaxFileBytes drops larger files; zero keeps all
	MaxFileBytes int64
	// MaxDepth is the deepest directory level read, the listed dir being level 0. Zero is unbounded.
	MaxDepth int
	// FollowSymlinks descends into linked directories and lists linked files
	FollowSymlinks bool
}

type lister struct {
	a       *Accessor
	root    string
	opts    ListOptions
	visited map[string]bool
	files   []string
}

// ListFiles returns the absolute paths of files under dir matching opts, sorted.
// Unreadable subdirectories are skipped with a warning.
func (a *Accessor) ListFiles(ctx context.Context, dir string, opts ListOptions) ([]string, error) {
	if err := validatePatterns(opts.Include); err != nil {
		return nil, err
	}
	if err := validatePatterns(opts.Exclude); err != nil {
		return nil, err
	}

	clean, resolved, err := a.validate(dir)
	if err != nil {
		return nil, err
	}
	info, err := a.fs.Stat(resolved)
	if err != nil {
		return nil, errors.FromOS(err, dir)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.NotADirectory, "expected a directory", nil).WithPath(dir)
	}

	l := &lister{
		a:       a,
		root:    clean,
		opts:    opts,
		visited: map[string]bool{resolved: true},
	}
	if err := l.walk(ctx, clean, resolved, "", 0); err != nil {
		return nil, err
	}

	sort.Strings(l.files)
	return l.files, nil
}

// walk lists dir (shown to the caller as shown) at the given level; rel is
// the slash path relative to the listing root.
func (l *lister) walk(ctx context.Context, shown, real, rel string, level int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := l.a.fs.ReadDir(real)
	if err != nil {
		if level == 0 {
			return errors.FromOS(err, shown)
		}
		l.a.logger.Warn("skipping unreadable directory", "path", shown, "error", err)
		return nil
	}

	for _, e := range entries {
		name := e.Name()
		childShown := filepath.Join(shown, name)
		childReal := filepath.Join(real, name)
		childRel := name
		if rel != "" {
			childRel = rel + "/" + name
		}

		isDir := e.IsDir()
		if e.Type()&fs.ModeSymlink != 0 {
			if !l.opts.FollowSymlinks {
				continue
			}
			target, err := l.a.fs.EvalSymlinks(childReal)
			if err != nil {
				l.a.logger.Warn("skipping broken symlink", "path", childShown, "error", err)
				continue
			}
			target = filepath.Clean(target)
			if !l.a.allowed(target) {
				l.a.logger.Warn("skipping symlink outside allowed roots", "path", childShown, "target", target)
				continue
			}
			info, err := l.a.fs.Stat(target)
			if err != nil {
				continue
			}
			childReal = target
			isDir = info.IsDir()
		}

		if isDir {
			if l.opts.MaxDepth > 0 && level+1 > l.opts.MaxDepth {
				continue
			}
			if l.prune(childRel) {
				continue
			}
			if l.visited[childReal] {
				l.a.logger.Debug("skipping directory cycle", "path", childShown)
				continue
			}
			l.visited[childReal] = true
			if err := l.walk(ctx, childShown, childReal, childRel, level+1); err != nil {
				return err
			}
			continue
		}

		if !l.included(childRel) || l.excluded(childRel) {
			continue
		}
		if l.opts.MaxFileBytes > 0 {
			info, err := l.a.fs.Stat(childReal)
			if err != nil {
				l.a.logger.Warn("skipping unreadable file", "path", childShown, "error", err)
				continue
			}
			if info.Size() > l.opts.MaxFileBytes {
				l.a.logger.Info("skipping oversized file",
					"path", childShown,
					"size", info.Size(),
					"max", l.opts.MaxFileBytes,
				)
				continue
			}
		}
		l.files = append(l.files, childShown)
	}
	return nil
}

func (l *lister) included(rel string) bool {
	if len(l.opts.Include) == 0 {
		return true
	}
	return MatchAny(l.opts.Include, rel)
}

func (l *lister) excluded(rel string) bool {
	return MatchAny(l.opts.Exclude, rel)
}

// prune reports whether a directory is excluded as a whole
func (l *lister) prune(rel string) bool {
	return PruneDir(l.opts.Exclude, rel)
}

// MatchAny reports whether the slash-separated path matches any pattern
func MatchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// PruneDir reports whether a directory's whole subtree is excluded, either by
// a pattern matching it directly or by a "<dir>/**" pattern.
func PruneDir(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if strings.HasSuffix(p, "/**") {
			if ok, _ := doublestar.Match(strings.TrimSuffix(p, "/**"), rel); ok {
				return true
			}
		}
	}
	return false
}

func validatePatterns(patterns []string) error {
	for _, p := range patterns {
		if _, err := doublestar.Match(p, "x"); err != nil {
			return errors.New(errors.InvalidPattern, "invalid glob pattern", err).With("pattern", p)
		}
	}
	return nil
}
