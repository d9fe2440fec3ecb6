package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls fn whenever the blob stored under key changes on disk,
// including writes made by other processes. The directory is watched rather
// than the file because Set replaces the file by rename.
//
// Watching stops when ctx is canceled.
func (b *FileBackend) Watch(ctx context.Context, key string, fn func()) error {
	name, err := b.FileName(key)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(b.dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to watch %s: %w", b.dir, err)
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != name {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					fn()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching data directory", "dir", b.dir, "err", err)
			}
		}
	}()
	return nil
}
