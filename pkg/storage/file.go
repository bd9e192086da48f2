package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sw33tLie/scopediff/pkg/snapshot"
)

// FileStore keeps one file per key: <dir>/<name>_data.json or <dir>/<name>_data.txt.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) Load(_ context.Context, key snapshot.Key) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(s.dir, key.FileName()))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key.FileName(), snapshot.ErrNotFound)
		}
		return nil, err
	}
	return b, nil
}

// Save writes the snapshot into a temporary file in the same directory and
// renames it so readers never observe a partial file.
func (s *FileStore) Save(_ context.Context, key snapshot.Key, data []byte) error {
	f, err := os.CreateTemp(s.dir, "."+key.FileName()+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, filepath.Join(s.dir, key.FileName()))
}

func (s *FileStore) List(_ context.Context) ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []Info
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key, err := snapshot.ParseKey(e.Name())
		if err != nil {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			return nil, err
		}
		out = append(out, Info{Key: key, Size: int(fi.Size()), UpdatedAt: fi.ModTime().UTC()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.FileName() < out[j].Key.FileName() })
	return out, nil
}

func (s *FileStore) Close() error { return nil }
