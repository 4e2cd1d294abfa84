package persist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileStore keeps one file per key under a root directory. Keys map to
// relative paths with the configured extension appended, and writes go
// through a temporary file and a rename so a crash never leaves a partial
// snapshot.
type FileStore struct {
	root string
	ext  string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore rooted at root. ext, when non-empty, is
// appended to every file name (".json", ".yaml").
func NewFileStore(root, ext string) *FileStore {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &FileStore{root: root, ext: ext}
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key)+s.ext)
}

func (s *FileStore) List(_ context.Context) ([]string, error) {
	var keys []string

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		switch {
		case errors.Is(err, fs.ErrNotExist) && path == s.root:
			return fs.SkipAll
		case err != nil:
			return err
		case strings.HasPrefix(d.Name(), "."):
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		case d.IsDir():
			return nil
		case s.ext != "" && filepath.Ext(path) != s.ext:
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		keys = append(keys, strings.TrimSuffix(filepath.ToSlash(rel), s.ext))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	sort.Strings(keys)
	return keys, nil
}

func (s *FileStore) Load(_ context.Context, keys ...string) ([]Entry, error) {
	out := make([]Entry, 0, len(keys))
	for _, key := range keys {
		data, err := os.ReadFile(s.path(key))
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		case err != nil:
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, key, err)
		}
		out = append(out, Entry{Key: key, Value: data})
	}
	return out, nil
}

func (s *FileStore) Save(_ context.Context, entries ...Entry) error {
	for _, e := range entries {
		if err := writeAtomic(s.path(e.Key), e.Value); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrSaveFailed, e.Key, err)
		}
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return err
	}
	name := tmp.Name()

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(name)
		return err
	}

	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		path := s.path(key)
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("snapshot delete failed: %s: %w", key, err)
		}

		for dir := filepath.Dir(path); dir != filepath.Clean(s.root); dir = filepath.Dir(dir) {
			if os.Remove(dir) != nil {
				break
			}
		}
	}
	return nil
}
