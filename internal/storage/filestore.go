package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileBackend stores each key as <dir>/<key>.json.
//
// Writes go to a temporary file in the same directory which is then renamed
// over the target, so readers never observe a half-written blob. When a
// History is attached, every write is committed to it.
type FileBackend struct {
	dir     string
	history *History
	mu      sync.Mutex
}

// NewFileBackend creates the directory if needed and returns a FileBackend
// rooted at it.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return &FileBackend{dir: dir}, nil
}

// SetHistory attaches a git history that records every Set.
func (b *FileBackend) SetHistory(h *History) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = h
}

// Dir returns the data directory.
func (b *FileBackend) Dir() string {
	return b.dir
}

// FileName returns the name of the file holding key, relative to Dir.
func (b *FileBackend) FileName(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	return key + ".json", nil
}

// Get implements Backend.
func (b *FileBackend) Get(key string) (string, bool, error) {
	name, err := b.FileName(key)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(filepath.Join(b.dir, name)) //nolint:gosec // G304: name is a validated key
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return string(data), true, nil
}

// Set implements Backend.
func (b *FileBackend) Set(key, value string) error {
	name, err := b.FileName(key)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := os.CreateTemp(b.dir, ".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := f.Name()
	if _, err := f.WriteString(value); err != nil {
		_ = f.Close()
		return errors.Join(fmt.Errorf("failed to write %s: %w", name, err), os.Remove(tmpPath))
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return errors.Join(fmt.Errorf("failed to sync %s: %w", name, err), os.Remove(tmpPath))
	}
	if err := f.Close(); err != nil {
		return errors.Join(fmt.Errorf("failed to close temp file: %w", err), os.Remove(tmpPath))
	}
	if err := os.Rename(tmpPath, filepath.Join(b.dir, name)); err != nil {
		return errors.Join(fmt.Errorf("failed to rename %s into place: %w", name, err), os.Remove(tmpPath))
	}

	if b.history != nil {
		// The blob is already on disk; a failed commit only loses history.
		if err := b.history.Commit(name, "update "+key); err != nil {
			slog.Warn("Failed to commit blob to history", "key", key, "err", err)
		}
	}
	return nil
}

// History returns the attached git history, or nil.
func (b *FileBackend) History() *History {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history
}
