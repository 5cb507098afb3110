package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, errors.New("artifact root path is empty")
	}

	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create artifact root %q: %w", root, err)
	}

	return &FileStore{root: root}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.root, filepath.FromSlash(id))
}

func (s *FileStore) Put(_ context.Context, data []byte, meta Metadata) (string, error) {
	id := idFor(data, meta)
	target := s.path(id)

	if _, err := os.Stat(target); err == nil {
		return id, nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary artifact: %w", err)
	}

	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()

		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close artifact: %w", err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to move artifact into place: %w", err)
	}

	return id, nil
}

func (s *FileStore) Get(_ context.Context, id string) ([]byte, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		return nil, fmt.Errorf("failed to read artifact %s: %w", id, err)
	}

	return data, nil
}
