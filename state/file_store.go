package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore persists the state as a JSON object keyed by logical name.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore backed by the file at path. The file does not need to exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the location of the state file.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the state file. A missing or empty file yields an empty state.
func (f *FileStore) Load(_ context.Context) (DeploymentState, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", f.path, err)
	}
	if len(b) == 0 {
		return New(), nil
	}

	var s DeploymentState
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptState, f.path, err)
	}
	if s == nil {
		s = New()
	}

	return s, nil
}

// Save writes the state to a temporary file in the same directory and renames it over the state
// file, so readers never observe a partially written state.
func (f *FileStore) Save(_ context.Context, s DeploymentState) error {
	if s == nil {
		s = New()
	}

	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	if _, err = tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync state: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state file: %w", err)
	}

	if err = os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace state file %s: %w", f.path, err)
	}

	return nil
}
