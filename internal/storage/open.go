package storage

import (
	"fmt"
	"path/filepath"
)

// Kind names a backend implementation.
type Kind string

const (
	// KindFile stores blobs as JSON files in a directory.
	KindFile Kind = "file"
	// KindSQLite stores blobs in a SQLite database.
	KindSQLite Kind = "sqlite"
	// KindRedis stores blobs in Redis.
	KindRedis Kind = "redis"
	// KindMemory keeps blobs in memory only.
	KindMemory Kind = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Kind Kind
	// Dir is the data directory of the file backend.
	Dir string
	// SQLitePath defaults to <Dir>/formdb.sqlite.
	SQLitePath  string
	RedisURL    string
	RedisPrefix string

	// History enables git history for the file backend.
	History      bool
	HistoryName  string
	HistoryEmail string
}

// Open returns the backend described by opts. Release it with Close.
func Open(opts Options) (Backend, error) {
	switch opts.Kind {
	case KindFile, "":
		b, err := NewFileBackend(opts.Dir)
		if err != nil {
			return nil, err
		}
		if opts.History {
			h, err := OpenHistory(opts.Dir, opts.HistoryName, opts.HistoryEmail)
			if err != nil {
				return nil, err
			}
			b.SetHistory(h)
		}
		return b, nil
	case KindSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = filepath.Join(opts.Dir, "formdb.sqlite")
		}
		return NewSQLiteBackend(path)
	case KindRedis:
		return NewRedisBackend(opts.RedisURL, opts.RedisPrefix)
	case KindMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Kind)
	}
}
