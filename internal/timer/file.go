package timer

import (
	"fmt"
	"os"
)

// FileStore persists the timer as a single local file.
// Writes go through a temporary file and rename to stay atomic.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore backed by the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Read implements Store.
func (s *FileStore) Read() (int64, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("read timer file %s: %w", s.path, err)
	}

	return Parse(payload)
}

// Write implements Store.
func (s *FileStore) Write(ts int64) error {
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, Format(ts), 0600); err != nil {
		return fmt.Errorf("write timer file %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace timer file %s: %w", s.path, err)
	}

	return nil
}
