package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/voterlab/poker-session-service/internal/domain/model"
)

// FileStore is the durable-storage collaborator: a single JSON document
// mapping session ids to sessions.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads every persisted session. A missing file is an empty store.
func (f *FileStore) Load() (map[string]*model.Session, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]*model.Session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}
	sessions := map[string]*model.Session{}
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("decode data file: %w", err)
	}
	return sessions, nil
}

// Write replaces the data file with a pre-marshaled snapshot.
func (f *FileStore) Write(data []byte) error {
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("write data file: %w", err)
	}
	return nil
}
