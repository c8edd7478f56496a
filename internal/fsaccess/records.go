package fsaccess

import (
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"codefacts/internal/errors"
)

// FileRecord describes one regular file
type FileRecord struct {
	Path         string    `json:"path"`
	RelativePath string    `json:"relativePath"`
	Name         string    `json:"name"`
	Extension    string    `json:"extension"`
	Size         int64     `json:"size"`
	Language     string    `json:"language,omitempty"`
	ModTime      time.Time `json:"modTime"`
	Permissions  string    `json:"permissions"`
	IsSymlink    bool      `json:"isSymlink"`
}

// DirectoryRecord describes one directory and its immediate entries
type DirectoryRecord struct {
	Path         string    `json:"path"`
	RelativePath string    `json:"relativePath"`
	Name         string    `json:"name"`
	FileCount    int       `json:"fileCount"`
	SubdirCount  int       `json:"subdirCount"`
	TotalSize    int64     `json:"totalSize"`
	ModTime      time.Time `json:"modTime"`
}

var extensionLanguages = map[string]string{
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".mts":   "typescript",
	".cts":   "typescript",
	".py":    "python",
	".pyi":   "python",
	".java":  "java",
	".kt":    "kotlin",
	".kts":   "kotlin",
	".go":    "go",
	".rs":    "rust",
	".rb":    "ruby",
	".php":   "php",
	".cs":    "csharp",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".swift": "swift",
	".scala": "scala",
	".vue":   "vue",
	".html":  "html",
	".css":   "css",
	".scss":  "scss",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".xml":   "xml",
	".md":    "markdown",
	".sql":   "sql",
	".sh":    "shell",
	".bash":  "shell",
}

// LanguageForExtension maps an extension like ".ts" to a language tag, or ""
func LanguageForExtension(ext string) string {
	return extensionLanguages[strings.ToLower(ext)]
}

// StatFile returns the record for a file. RelativePath is taken against root;
// an empty root uses the allowed root containing the file.
func (a *Accessor) StatFile(root, path string) (*FileRecord, error) {
	clean, resolved, err := a.validate(path)
	if err != nil {
		return nil, err
	}

	link, err := a.fs.Lstat(clean)
	if err != nil {
		return nil, errors.FromOS(err, path)
	}
	info, err := a.fs.Stat(resolved)
	if err != nil {
		return nil, errors.FromOS(err, path)
	}
	if info.IsDir() {
		return nil, errors.New(errors.IsADirectory, "expected a file", nil).WithPath(path)
	}

	ext := strings.ToLower(filepath.Ext(clean))
	return &FileRecord{
		Path:         clean,
		RelativePath: a.relative(root, clean),
		Name:         filepath.Base(clean),
		Extension:    ext,
		Size:         info.Size(),
		Language:     LanguageForExtension(ext),
		ModTime:      info.ModTime(),
		Permissions:  info.Mode().Perm().String(),
		IsSymlink:    link.Mode()&fs.ModeSymlink != 0,
	}, nil
}

// StatDirectory returns the record for a directory, counting its immediate entries
func (a *Accessor) StatDirectory(root, path string) (*DirectoryRecord, error) {
	clean, resolved, err := a.validate(path)
	if err != nil {
		return nil, err
	}

	info, err := a.fs.Stat(resolved)
	if err != nil {
		return nil, errors.FromOS(err, path)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.NotADirectory, "expected a directory", nil).WithPath(path)
	}

	entries, err := a.fs.ReadDir(resolved)
	if err != nil {
		return nil, errors.FromOS(err, path)
	}

	rec := &DirectoryRecord{
		Path:         clean,
		RelativePath: a.relative(root, clean),
		Name:         filepath.Base(clean),
		ModTime:      info.ModTime(),
	}
	for _, e := range entries {
		if e.IsDir() {
			rec.SubdirCount++
			continue
		}
		rec.FileCount++
		if fi, err := e.Info(); err == nil {
			rec.TotalSize += fi.Size()
		}
	}
	return rec, nil
}

func (a *Accessor) relative(root, path string) string {
	if root == "" {
		for _, r := range a.roots {
			if hasPathPrefix(path, r) {
				root = r
				break
			}
		}
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
