package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/viralscan/internal/domain"
	"github.com/kailas-cloud/viralscan/internal/domain/model"
)

// FileStore keeps the current bundle in one file on disk.
type FileStore struct {
	path string
}

// NewFileStore creates a store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: filepath.Clean(path)}
}

// Path returns the artifact location.
func (s *FileStore) Path() string { return s.path }

// Save writes the bundle to a temp file in the same directory, syncs it and
// renames it over the current artifact.
func (s *FileStore) Save(ctx context.Context, m model.Model) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}

// Load reads the current bundle; domain.ErrArtifactNotFound when none was saved.
func (s *FileStore) Load(ctx context.Context) (model.Model, error) {
	if err := ctx.Err(); err != nil {
		return model.Model{}, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.Model{}, domain.ErrArtifactNotFound
	}
	if err != nil {
		return model.Model{}, fmt.Errorf("read artifact: %w", err)
	}
	return Decode(data)
}

// Describe decodes the current bundle and returns its metadata.
func (s *FileStore) Describe(ctx context.Context) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Metadata{}, domain.ErrArtifactNotFound
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("read artifact: %w", err)
	}
	m, err := Decode(data)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{
		ID:        m.ID(),
		Family:    m.Family(),
		Accuracy:  m.Accuracy(),
		CreatedAt: m.CreatedAt(),
		Bytes:     len(data),
	}, nil
}

// Check reports whether the artifact directory is usable.
func (s *FileStore) Check(_ context.Context) error {
	st, err := os.Stat(filepath.Dir(s.path))
	if errors.Is(err, fs.ErrNotExist) {
		// created on first save
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat artifact dir: %w", err)
	}
	if !st.IsDir() {
		return fmt.Errorf("artifact dir %s is not a directory", filepath.Dir(s.path))
	}
	return nil
}
