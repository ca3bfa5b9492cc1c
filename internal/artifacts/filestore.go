package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dvloznov/finance-insights/internal/model"
)

// FileStore keeps model artifacts as files in a local directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("NewFileStore: creating %q: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Put writes data to a temporary file and renames it into place so readers
// never observe a partial artifact.
func (s *FileStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.CreateTemp(s.dir, ".tmp-"+key+"-*")
	if err != nil {
		return fmt.Errorf("FileStore.Put: create temp file: %w", err)
	}
	tmp := f.Name()
	committed := false
	defer func() {
		_ = f.Close()
		if !committed {
			_ = os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("FileStore.Put: write %q: %w", key, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("FileStore.Put: sync %q: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("FileStore.Put: close %q: %w", key, err)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		return fmt.Errorf("FileStore.Put: rename %q: %w", key, err)
	}
	committed = true
	return nil
}

// Get reads the artifact stored under key.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("FileStore.Get: %s: %w", key, model.ErrArtifactNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("FileStore.Get: open %q: %w", key, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("FileStore.Get: read %q: %w", key, err)
	}
	return data, nil
}

// Location returns the file path for key.
func (s *FileStore) Location(key string) string {
	return s.path(key)
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, filepath.Base(key))
}

var _ model.Store = (*FileStore)(nil)
