package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore implements Store using file-based persistence.
// The snapshot is stored as JSON in a file within the state directory.
type FileStore struct {
	stateDir  string
	stateFile string
	mu        sync.Mutex
}

// NewFileStore creates a new file-based snapshot store.
// If stateDir is empty, it defaults to ".pluggable/state" in the current directory.
func NewFileStore(stateDir string) *FileStore {
	if stateDir == "" {
		stateDir = filepath.Join(".", ".pluggable", "state")
	}

	return &FileStore{
		stateDir:  stateDir,
		stateFile: filepath.Join(stateDir, "snapshot.json"),
	}
}

// Path returns the location of the snapshot file
func (f *FileStore) Path() string {
	return f.stateFile
}

// Load retrieves the previously saved snapshot from the file.
func (f *FileStore) Load() (*Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.stateFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	s := &Snapshot{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return s, nil
}

// Save persists the snapshot to the file.
func (f *FileStore) Save(s *Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	buf := bytes.NewBuffer([]byte{})
	enc := json.NewEncoder(buf)
	enc.SetIndent("", " ")

	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	if err := os.MkdirAll(f.stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	// write to a temporary file first, the rename is atomic
	tmpFile := f.stateFile + ".tmp"
	if err := os.WriteFile(tmpFile, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write temporary state file: %w", err)
	}

	if err := os.Rename(tmpFile, f.stateFile); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to save state file: %w", err)
	}

	return nil
}

// Exists returns true if a saved snapshot exists.
func (f *FileStore) Exists() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, err := os.Stat(f.stateFile)
	return err == nil
}

// Clear removes the saved snapshot.
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.stateFile)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear state: %w", err)
	}

	return nil
}

var _ Store = (*FileStore)(nil)
