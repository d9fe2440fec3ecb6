// Records blob writes as commits in a git repository using go-git.

package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// History commits files of a directory to a git repository rooted there.
type History struct {
	dir   string
	name  string
	email string
	repo  *gogit.Repository
	mu    sync.Mutex
}

// Version is one recorded state of a file.
type Version struct {
	Hash    string
	Message string
	Author  string
	When    time.Time
}

// OpenHistory opens the git repository in dir, initializing it on first use.
func OpenHistory(dir, name, email string) (*History, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create repo directory: %w", err)
	}
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		repo, err = gogit.PlainInit(dir, false)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize git repo: %w", err)
		}
		cfg, err := repo.Config()
		if err != nil {
			return nil, fmt.Errorf("failed to read git config: %w", err)
		}
		cfg.User.Name = name
		cfg.User.Email = email
		if err := repo.SetConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to write git config: %w", err)
		}
	}
	return &History{dir: dir, name: name, email: email, repo: repo}, nil
}

// Commit stages file (relative to the repository root) and commits it with
// msg. Nothing is recorded when the file is unchanged.
func (h *History) Commit(file, msg string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	w, err := h.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := w.Add(file); err != nil {
		return fmt.Errorf("failed to stage %s: %w", file, err)
	}
	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}
	if s, ok := status[file]; !ok || s.Staging == gogit.Unmodified {
		return nil
	}

	now := time.Now()
	sig := &object.Signature{Name: h.name, Email: h.email, When: now}
	if _, err := w.Commit(msg, &gogit.CommitOptions{Author: sig, Committer: sig}); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Versions returns up to n versions of file, newest first.
func (h *History) Versions(file string, n int) ([]Version, error) {
	if n <= 0 || n > 1000 {
		n = 1000
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	iter, err := h.repo.Log(&gogit.LogOptions{FileName: &file})
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		// No commit yet.
		return []Version{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history of %s: %w", file, err)
	}
	defer iter.Close()

	out := []Version{}
	for range n {
		c, err := iter.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read history of %s: %w", file, err)
		}
		subject, _, _ := strings.Cut(c.Message, "\n")
		out = append(out, Version{
			Hash:    c.Hash.String(),
			Message: subject,
			Author:  c.Author.Name,
			When:    c.Author.When,
		})
	}
	return out, nil
}

// ReadAt returns the content of file as of the commit hash, which may be
// abbreviated.
func (h *History) ReadAt(hash, file string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id, err := h.repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", hash, err)
	}
	c, err := h.repo.CommitObject(*id)
	if err != nil {
		return "", fmt.Errorf("failed to get commit %s: %w", hash, err)
	}
	f, err := c.File(file)
	if err != nil {
		return "", fmt.Errorf("failed to find %s at %s: %w", file, hash, err)
	}
	return f.Contents()
}
