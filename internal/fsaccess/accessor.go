// Package fsaccess provides allow-list-checked, size-capped access to the
// filesystem for the scanner and the analyzers.
package fsaccess

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"codefacts/internal/errors"
	"codefacts/internal/slogutil"
)

// Options configures an Accessor.
type Options struct {
	// AllowedRoots are the directories paths must fall under. Empty means the working directory.
	AllowedRoots []string
	// MaxFileBytes caps ReadFile and ReadText. Zero disables the cap.
	MaxFileBytes int64
	// BaseDir resolves relative paths. Empty means the working directory.
	BaseDir string
	// FS defaults to OSFS.
	FS     FS
	Logger *slog.Logger
}

// Accessor validates every caller-supplied path before touching the filesystem.
type Accessor struct {
	roots        []string
	base         string
	maxFileBytes int64
	fs           FS
	logger       *slog.Logger
}

// New creates an Accessor. Roots are cleaned and, where possible, resolved
// through symlinks so both spellings of a root are accepted.
func New(opts Options) (*Accessor, error) {
	fsys := opts.FS
	if fsys == nil {
		fsys = OSFS{}
	}

	base := opts.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.New(errors.IOError, "cannot determine working directory", err)
		}
		base = wd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, errors.New(errors.InvalidInput, "invalid base directory", err).WithPath(opts.BaseDir)
	}

	allowed := opts.AllowedRoots
	if len(allowed) == 0 {
		allowed = []string{base}
	}

	seen := make(map[string]bool)
	var roots []string
	add := func(r string) {
		if !seen[r] {
			seen[r] = true
			roots = append(roots, r)
		}
	}
	for _, r := range allowed {
		if !filepath.IsAbs(r) {
			r = filepath.Join(base, r)
		}
		r = filepath.Clean(r)
		add(r)
		if resolved, err := fsys.EvalSymlinks(r); err == nil {
			add(filepath.Clean(resolved))
		}
	}

	return &Accessor{
		roots:        roots,
		base:         base,
		maxFileBytes: opts.MaxFileBytes,
		fs:           fsys,
		logger:       slogutil.OrDiscard(opts.Logger),
	}, nil
}

// Roots returns the allow-list in effect
func (a *Accessor) Roots() []string {
	return append([]string(nil), a.roots...)
}

// MaxFileBytes returns the read cap
func (a *Accessor) MaxFileBytes() int64 {
	return a.maxFileBytes
}

// Validate returns the canonical form of path, or a Security error when the
// path contains a traversal segment or falls outside the allow-list.
func (a *Accessor) Validate(path string) (string, error) {
	_, resolved, err := a.validate(path)
	return resolved, err
}

// validate returns the cleaned absolute path and its symlink-resolved form.
// No filesystem call happens until the lexical checks pass.
func (a *Accessor) validate(path string) (string, string, error) {
	clean, err := a.checkLexical(path)
	if err != nil {
		return "", "", err
	}

	resolved, err := a.fs.EvalSymlinks(clean)
	if err != nil {
		return "", "", errors.FromOS(err, path)
	}
	resolved = filepath.Clean(resolved)
	if !a.allowed(resolved) {
		return "", "", errors.New(errors.PathNotAllowed, "path resolves outside allowed roots", nil).
			WithPath(path).
			With("resolved", resolved)
	}
	return clean, resolved, nil
}

func (a *Accessor) checkLexical(path string) (string, error) {
	if path == "" {
		return "", errors.New(errors.InvalidInput, "empty path", nil)
	}
	if strings.ContainsRune(path, 0) {
		return "", errors.New(errors.PathTraversal, "path contains a NUL byte", nil).WithPath(path)
	}
	if hasTraversal(path) {
		return "", errors.New(errors.PathTraversal, "path traversal not allowed", nil).WithPath(path)
	}

	clean := path
	if !filepath.IsAbs(clean) {
		clean = filepath.Join(a.base, clean)
	}
	clean = filepath.Clean(clean)
	if !a.allowed(clean) {
		return "", errors.New(errors.PathNotAllowed, "path outside allowed roots", nil).WithPath(path)
	}
	return clean, nil
}

func (a *Accessor) allowed(path string) bool {
	for _, root := range a.roots {
		if hasPathPrefix(path, root) {
			return true
		}
	}
	return false
}

func hasTraversal(path string) bool {
	segments := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	for _, s := range segments {
		if s == ".." {
			return true
		}
	}
	return false
}

func hasPathPrefix(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if runtime.GOOS == "windows" {
		path = strings.ToLower(path)
		root = strings.ToLower(root)
	}
	if path == root {
		return true
	}
	sep := string(os.PathSeparator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.HasPrefix(path+sep, root)
}
