package config

import (
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/maruel/formdb/internal/storage"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("formdb", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		cfg, rest, err := Load(newFlagSet(), []string{"-data-dir", dir, "list"}, nil)
		if err != nil {
			t.Fatal(err)
		}
		want := Defaults()
		want.DataDir = dir
		if diff := cmp.Diff(&want, cfg); diff != "" {
			t.Errorf("config (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"list"}, rest); diff != "" {
			t.Errorf("rest (-want +got):\n%s", diff)
		}
		if cfg.Backend != "file" || cfg.Key != "formTemplates_v1" || cfg.IDScheme != "ksid" {
			t.Errorf("unexpected defaults %+v", cfg)
		}
	})

	t.Run("precedence", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		dotenv := "FORMDB_BACKEND=sqlite\nFORMDB_KEY=from-dotenv\nFORMDB_ID_SCHEME=uuid\nFORMDB_LOG_LEVEL=debug\n"
		if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(dotenv), 0o600); err != nil {
			t.Fatal(err)
		}
		environ := []string{"FORMDB_DATA_DIR=" + dir, "FORMDB_KEY=from-env", "FORMDB_HISTORY=true", "UNRELATED"}
		cfg, _, err := Load(newFlagSet(), []string{"-log-level", "error"}, environ)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.DataDir != dir {
			t.Errorf("DataDir = %q, want %q", cfg.DataDir, dir)
		}
		if cfg.Backend != "sqlite" || cfg.IDScheme != "uuid" {
			t.Errorf(".env values not applied: %+v", cfg)
		}
		if cfg.Key != "from-env" {
			t.Errorf("Key = %q, environment must win over .env", cfg.Key)
		}
		if cfg.LogLevel != "error" || cfg.Level() != slog.LevelError {
			t.Errorf("LogLevel = %q, flag must win", cfg.LogLevel)
		}
		if !cfg.History {
			t.Error("History not read from environment")
		}
		if !cfg.Journal || cfg.JournalPath() != filepath.Join(dir, "journal.jsonl") {
			t.Errorf("Journal = %v at %q", cfg.Journal, cfg.JournalPath())
		}
	})

	t.Run("flag reset to default wins", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		environ := []string{"FORMDB_BACKEND=memory"}
		cfg, _, err := Load(newFlagSet(), []string{"-data-dir", dir, "-backend", "file", "-journal=false"}, environ)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Backend != "file" {
			t.Errorf("Backend = %q, want file", cfg.Backend)
		}
		if cfg.Journal {
			t.Error("-journal=false ignored")
		}
	})

	t.Run("invalid", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		_, _, err := Load(newFlagSet(), []string{"-data-dir", dir, "-backend", "redis", "-ids", "seq", "-log-level", "loud"}, nil)
		if err == nil {
			t.Fatal("expected error")
		}
		for _, want := range []string{"redis URL", `unknown id scheme "seq"`, `unknown log level: "loud"`} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("error %q lacks %q", err, want)
			}
		}
	})

	t.Run("bad flag", func(t *testing.T) {
		t.Parallel()
		if _, _, err := Load(newFlagSet(), []string{"-nope"}, nil); err == nil {
			t.Error("expected error")
		}
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()
	c := Defaults()
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	c.Backend = "etcd"
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), `unknown backend "etcd"`) {
		t.Errorf("Validate() = %v", err)
	}
	c = Defaults()
	c.Key = ""
	if err := c.Validate(); err == nil {
		t.Error("empty key accepted")
	}
}

func TestStorageOptions(t *testing.T) {
	t.Parallel()
	c := Defaults()
	c.Backend = "redis"
	c.RedisURL = "redis://localhost:6379/1"
	c.History = true
	got := c.StorageOptions()
	want := storage.Options{
		Kind:         storage.KindRedis,
		Dir:          "./data",
		RedisURL:     "redis://localhost:6379/1",
		RedisPrefix:  "formdb:",
		History:      true,
		HistoryName:  "formdb",
		HistoryEmail: "formdb@localhost",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("StorageOptions (-want +got):\n%s", diff)
	}
}

func TestReadDotEnvMissing(t *testing.T) {
	t.Parallel()
	vars, err := readDotEnv(t.TempDir())
	if err != nil || len(vars) != 0 {
		t.Errorf("readDotEnv() = %v, %v", vars, err)
	}
	if vars, err := readDotEnv(filepath.Join(t.TempDir(), "missing")); err != nil || len(vars) != 0 {
		t.Errorf("readDotEnv(missing dir) = %v, %v", vars, err)
	}
	bad := t.TempDir()
	if err := os.WriteFile(filepath.Join(bad, ".env"), []byte("KEY='unterminated\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readDotEnv(bad); err == nil {
		t.Error("malformed .env accepted")
	}
}
