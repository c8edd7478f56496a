package fsaccess

import (
	"io/fs"
	"os"
	"path/filepath"
)

// FS is the set of filesystem calls the accessor makes. Every call it makes
// with caller-derived input goes through this interface.
type FS interface {
	Stat(name string) (fs.FileInfo, error)
	Lstat(name string) (fs.FileInfo, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	ReadFile(name string) ([]byte, error)
	EvalSymlinks(path string) (string, error)
}

// OSFS is the FS backed by the host filesystem.
type OSFS struct{}

func (OSFS) Stat(name string) (fs.FileInfo, error)      { return os.Stat(name) }
func (OSFS) Lstat(name string) (fs.FileInfo, error)     { return os.Lstat(name) }
func (OSFS) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }
func (OSFS) ReadFile(name string) ([]byte, error)       { return os.ReadFile(name) }
func (OSFS) EvalSymlinks(path string) (string, error)   { return filepath.EvalSymlinks(path) }
