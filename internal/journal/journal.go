// Package journal keeps an append-only JSONL record of template changes.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is one recorded change.
type Entry struct {
	Time     time.Time `json:"time"`
	Kind     string    `json:"kind"`
	Template string    `json:"template,omitempty"`
	Field    string    `json:"field,omitempty"`
	// Error is set when the change could not be persisted.
	Error string `json:"error,omitempty"`
}

// Journal appends entries to a JSONL file, one JSON object per line.
type Journal struct {
	path string
	mu   sync.Mutex
}

// Open returns a Journal writing to path, creating its directory if needed.
// The file itself is created on the first Append.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return &Journal{path: path}, nil
}

// Path returns the file path.
func (j *Journal) Path() string {
	return j.path
}

// Append adds e to the end of the journal.
func (j *Journal) Append(e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G302: journal is not secret
	if err != nil {
		return fmt.Errorf("failed to open journal for append: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write entry: %w", err)
	}
	return f.Close()
}

// Tail returns the last n entries in chronological order; n <= 0 returns
// all of them. Lines that do not decode are skipped.
func (j *Journal) Tail(n int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	f, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to open journal %s: %w", j.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	entries := []Entry{}
	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		b := scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(b, &e); err != nil {
			slog.Warn("Skipping malformed journal line", "path", j.path, "line", line, "err", err)
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal %s: %w", j.path, err)
	}
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}
