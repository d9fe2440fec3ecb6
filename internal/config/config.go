// Package config resolves formdb settings from defaults, a .env file in the
// data directory, the process environment and command line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/maruel/formdb/internal/ids"
	"github.com/maruel/formdb/internal/storage"
)

// Config holds the resolved settings.
type Config struct {
	DataDir     string `env:"FORMDB_DATA_DIR" envDefault:"./data"`
	Backend     string `env:"FORMDB_BACKEND" envDefault:"file"`
	SQLitePath  string `env:"FORMDB_SQLITE_PATH"` // Defaults to <data-dir>/formdb.sqlite
	RedisURL    string `env:"FORMDB_REDIS_URL"`
	RedisPrefix string `env:"FORMDB_REDIS_PREFIX" envDefault:"formdb:"`
	Key         string `env:"FORMDB_KEY" envDefault:"formTemplates_v1"`
	IDScheme    string `env:"FORMDB_ID_SCHEME" envDefault:"ksid"`
	LogLevel    string `env:"FORMDB_LOG_LEVEL" envDefault:"warn"`

	// Journal records every change in <data-dir>/journal.jsonl.
	Journal bool `env:"FORMDB_JOURNAL" envDefault:"true"`

	// Git history of the file backend.
	History      bool   `env:"FORMDB_HISTORY" envDefault:"false"`
	HistoryName  string `env:"FORMDB_HISTORY_NAME" envDefault:"formdb"`
	HistoryEmail string `env:"FORMDB_HISTORY_EMAIL" envDefault:"formdb@localhost"`
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Defaults returns the configuration with only envDefault values applied.
func Defaults() Config {
	var c Config
	// Cannot fail: every default is a valid value for its field type.
	_ = env.ParseWithOptions(&c, env.Options{Environment: map[string]string{}})
	return c
}

// Load registers the global flags on fs, parses args and resolves the
// configuration. It returns the arguments left after the flags.
//
// environ is the process environment as returned by os.Environ. Values from
// <data-dir>/.env apply only to variables environ does not set.
func Load(fs *flag.FlagSet, args, environ []string) (*Config, []string, error) {
	fromFlags := Defaults()
	fromFlags.bindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	vars := environMap(environ)
	dataDir := fromFlags.DataDir
	if !set["data-dir"] {
		if v := vars["FORMDB_DATA_DIR"]; v != "" {
			dataDir = v
		}
	}
	dotenv, err := readDotEnv(dataDir)
	if err != nil {
		return nil, nil, err
	}
	for k, v := range vars {
		dotenv[k] = v
	}

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: dotenv}); err != nil {
		return nil, nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.DataDir = dataDir
	cfg.override(&fromFlags, set)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, fs.Args(), nil
}

func (c *Config) bindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "Data directory")
	fs.StringVar(&c.Backend, "backend", c.Backend, "Storage backend ("+strings.Join(backendNames(), ", ")+")")
	fs.StringVar(&c.SQLitePath, "sqlite", c.SQLitePath, "SQLite database path (default <data-dir>/formdb.sqlite)")
	fs.StringVar(&c.RedisURL, "redis", c.RedisURL, "Redis URL, e.g. redis://localhost:6379/0")
	fs.StringVar(&c.RedisPrefix, "redis-prefix", c.RedisPrefix, "Redis key prefix")
	fs.StringVar(&c.Key, "key", c.Key, "Storage key of the template collection")
	fs.StringVar(&c.IDScheme, "ids", c.IDScheme, "Identifier scheme (ksid, uuid)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")
	fs.BoolVar(&c.Journal, "journal", c.Journal, "Append every change to <data-dir>/journal.jsonl")
	fs.BoolVar(&c.History, "history", c.History, "Record every write as a git commit (file backend)")
	fs.StringVar(&c.HistoryName, "history-name", c.HistoryName, "Git author name")
	fs.StringVar(&c.HistoryEmail, "history-email", c.HistoryEmail, "Git author email")
}

// override copies the values of the flags named in set from f.
func (c *Config) override(f *Config, set map[string]bool) {
	for name := range set {
		switch name {
		case "backend":
			c.Backend = f.Backend
		case "sqlite":
			c.SQLitePath = f.SQLitePath
		case "redis":
			c.RedisURL = f.RedisURL
		case "redis-prefix":
			c.RedisPrefix = f.RedisPrefix
		case "key":
			c.Key = f.Key
		case "ids":
			c.IDScheme = f.IDScheme
		case "log-level":
			c.LogLevel = f.LogLevel
		case "journal":
			c.Journal = f.Journal
		case "history":
			c.History = f.History
		case "history-name":
			c.HistoryName = f.HistoryName
		case "history-email":
			c.HistoryEmail = f.HistoryEmail
		}
	}
}

// Validate rejects unknown enumerated values and incomplete backend settings.
func (c *Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data dir is required"))
	}
	if !slices.Contains(backendNames(), c.Backend) {
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if c.Backend == string(storage.KindRedis) && c.RedisURL == "" {
		errs = append(errs, errors.New("redis backend requires a redis URL"))
	}
	if c.Key == "" {
		errs = append(errs, errors.New("storage key is required"))
	}
	if _, err := ids.ByName(c.IDScheme); err != nil {
		errs = append(errs, err)
	}
	if _, ok := logLevels[c.LogLevel]; !ok {
		errs = append(errs, fmt.Errorf("unknown log level: %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() slog.Level {
	return logLevels[c.LogLevel]
}

// JournalPath returns the path of the change journal.
func (c *Config) JournalPath() string {
	return filepath.Join(c.DataDir, "journal.jsonl")
}

// StorageOptions returns the backend selection.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Kind:         storage.Kind(c.Backend),
		Dir:          c.DataDir,
		SQLitePath:   c.SQLitePath,
		RedisURL:     c.RedisURL,
		RedisPrefix:  c.RedisPrefix,
		History:      c.History,
		HistoryName:  c.HistoryName,
		HistoryEmail: c.HistoryEmail,
	}
}

func backendNames() []string {
	return []string{string(storage.KindFile), string(storage.KindSQLite), string(storage.KindRedis), string(storage.KindMemory)}
}

func environMap(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}

// readDotEnv returns the variables of <dir>/.env, or an empty map when the
// file does not exist.
func readDotEnv(dir string) (map[string]string, error) {
	vars, err := godotenv.Read(filepath.Join(dir, ".env"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return vars, nil
}
