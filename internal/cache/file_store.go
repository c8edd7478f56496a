package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

const entrySuffix = ".json.zst"

// FileStore keeps one zstd-compressed JSON file per hashed key.
// Files may be deleted externally at any time; a missing file is a miss.
type FileStore struct {
	dir        string
	maxEntries int

	enc *zstd.Encoder
	dec *zstd.Decoder
	// mu orders eviction scans against writes
	mu sync.Mutex
}

// NewFileStore creates the directory if needed. maxEntries <= 0 disables eviction.
func NewFileStore(dir string, maxEntries int) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, maxEntries: maxEntries, enc: enc, dec: dec}, nil
}

// Dir returns the backing directory
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(hash string) string {
	return filepath.Join(s.dir, hash+entrySuffix)
}

func (s *FileStore) Get(hash string) (*Entry, bool, error) {
	raw, err := os.ReadFile(s.path(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	e, err := s.decode(raw)
	if err != nil {
		// Corrupt or truncated; treat as a miss and drop it
		_ = os.Remove(s.path(hash))
		return nil, false, nil
	}
	return e, true, nil
}

func (s *FileStore) Put(e *Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	data := s.enc.EncodeAll(raw, nil)

	tmp, err := os.CreateTemp(s.dir, e.Hash+".tmp*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Rename(tmp.Name(), s.path(e.Hash)); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return s.evictLocked()
}

func (s *FileStore) Delete(hash string) error {
	err := os.Remove(s.path(hash))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *FileStore) Keys() ([]StoredKey, error) {
	names, err := s.entryNames()
	if err != nil {
		return nil, err
	}
	keys := make([]StoredKey, 0, len(names))
	for _, name := range names {
		hash := strings.TrimSuffix(name, entrySuffix)
		e, ok, err := s.Get(hash)
		if err != nil || !ok {
			continue
		}
		keys = append(keys, StoredKey{Hash: hash, Key: e.Key})
	}
	return keys, nil
}

func (s *FileStore) Clear() error {
	names, err := s.entryNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (s *FileStore) Len() (int, error) {
	names, err := s.entryNames()
	return len(names), err
}

func (s *FileStore) Close() error {
	s.dec.Close()
	return s.enc.Close()
}

func (s *FileStore) decode(raw []byte) (*Entry, error) {
	plain, err := s.dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal(plain, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *FileStore) entryNames() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), entrySuffix) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// evictLocked deletes the oldest files beyond maxEntries
func (s *FileStore) evictLocked() error {
	if s.maxEntries <= 0 {
		return nil
	}
	names, err := s.entryNames()
	if err != nil || len(names) <= s.maxEntries {
		return err
	}

	type aged struct {
		name string
		mod  int64
	}
	files := make([]aged, 0, len(names))
	for _, name := range names {
		info, err := os.Stat(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		files = append(files, aged{name: name, mod: info.ModTime().UnixNano()})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].mod == files[j].mod {
			return files[i].name < files[j].name
		}
		return files[i].mod < files[j].mod
	})
	if len(files) <= s.maxEntries {
		return nil
	}
	for _, f := range files[:len(files)-s.maxEntries] {
		_ = os.Remove(filepath.Join(s.dir, f.name))
	}
	return nil
}
