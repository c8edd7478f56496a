package fsaccess

import (
	"io/fs"
	"sort"

	"codefacts/internal/errors"
)

// ReadFile reads a validated file, enforcing the size cap
func (a *Accessor) ReadFile(path string) ([]byte, error) {
	_, resolved, err := a.validate(path)
	if err != nil {
		return nil, err
	}

	info, err := a.fs.Stat(resolved)
	if err != nil {
		return nil, errors.FromOS(err, path)
	}
	if info.IsDir() {
		return nil, errors.New(errors.IsADirectory, "expected a file", nil).WithPath(path)
	}
	if a.maxFileBytes > 0 && info.Size() > a.maxFileBytes {
		return nil, errors.Newf(errors.LimitExceeded, "file too large: %d > %d bytes", info.Size(), a.maxFileBytes).
			WithLimit("maxFileSizeBytes", a.maxFileBytes, info.Size()).
			WithPath(path)
	}

	data, err := a.fs.ReadFile(resolved)
	if err != nil {
		return nil, errors.FromOS(err, path)
	}
	return data, nil
}

// ReadText reads a validated file as a string
func (a *Accessor) ReadText(path string) (string, error) {
	data, err := a.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Exists reports whether path is an allowed, existing regular file
func (a *Accessor) Exists(path string) bool {
	_, resolved, err := a.validate(path)
	if err != nil {
		return false
	}
	info, err := a.fs.Stat(resolved)
	return err == nil && !info.IsDir()
}

// IsDir reports whether path is an allowed, existing directory
func (a *Accessor) IsDir(path string) bool {
	_, resolved, err := a.validate(path)
	if err != nil {
		return false
	}
	info, err := a.fs.Stat(resolved)
	return err == nil && info.IsDir()
}

// ReadDir lists the immediate entries of a validated directory, sorted by name
func (a *Accessor) ReadDir(path string) ([]fs.DirEntry, error) {
	_, resolved, err := a.validate(path)
	if err != nil {
		return nil, err
	}
	entries, err := a.fs.ReadDir(resolved)
	if err != nil {
		return nil, errors.FromOS(err, path)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}
