package alias

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// FileStore persists alias chains as pretty-printed JSON at a fixed path.
// Writes are atomic (write-then-rename) so a crash cannot leave a
// half-written document behind.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed alias store
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the chain document. A missing file is an empty document,
// not an error.
func (s *FileStore) Load() (map[string][]string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(map[string][]string), nil
	}
	if err != nil {
		return nil, err
	}

	var chains map[string][]string
	if err := json.Unmarshal(data, &chains); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return chains, nil
}

// Save writes the chain document atomically, creating the parent
// directory on first use.
func (s *FileStore) Save(chains map[string][]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(chains, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	return atomic.WriteFile(s.path, bytes.NewReader(data))
}
