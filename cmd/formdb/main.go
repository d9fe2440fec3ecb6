// Command formdb designs form templates from the command line.
//
// Templates are stored as one JSON array under a single key of the selected
// storage backend. Configuration is read from CLI flags, the environment and
// a .env file in the data directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/maruel/formdb/internal/config"
	"github.com/maruel/formdb/internal/fill"
	"github.com/maruel/formdb/internal/ids"
	"github.com/maruel/formdb/internal/journal"
	"github.com/maruel/formdb/internal/storage"
	"github.com/maruel/formdb/internal/templatestore"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "formdb: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	flag.Usage = usage
	cfg, args, err := config.Load(flag.CommandLine, os.Args[1:], os.Environ())
	if err != nil {
		return err
	}
	if len(args) == 0 {
		usage()
		return errors.New("missing command")
	}
	if args[0] == "version" {
		return printVersion(os.Stdout)
	}
	c, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", args[0])
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	slog.SetDefault(newLogger(os.Stderr, cfg.Level()))

	a, err := openApp(cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			slog.WarnContext(ctx, "Failed to close storage", "err", err)
		}
	}()
	a.prompt = fill.NewSurveyDriver()
	return c.run(ctx, a, args[1:])
}

// openApp opens the configured backend and hydrates a store from it.
func openApp(cfg *config.Config, out io.Writer) (*app, error) {
	backend, err := storage.Open(cfg.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Backend, err)
	}
	newID, err := ids.ByName(cfg.IDScheme)
	if err != nil {
		_ = storage.Close(backend)
		return nil, err
	}
	a := &app{cfg: cfg, backend: backend, out: out}
	if cfg.Journal {
		if a.journal, err = journal.Open(cfg.JournalPath()); err != nil {
			_ = storage.Close(backend)
			return nil, err
		}
	}
	store := templatestore.New(backend, templatestore.Options{Key: cfg.Key, NewID: newID, Logger: slog.Default()})
	store.LoadAll()
	a.store = store
	a.unsubscribe = store.Subscribe(a.onEvent)
	return a, nil
}

func newLogger(w *os.File, level slog.Level) *slog.Logger {
	// Skip timestamps when running under systemd (it adds its own).
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	return slog.New(tint.NewHandler(colorable.NewColorable(w), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(w.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			if skipAttr(a.Value.Any()) {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// skipAttr reports whether a log attribute value is a zero value not worth
// printing.
func skipAttr(val any) bool {
	switch t := val.(type) {
	case string:
		return t == ""
	case bool:
		return !t
	case uint64:
		return t == 0
	case int64:
		return t == 0
	case float64:
		return t == 0
	case time.Time:
		return t.IsZero()
	case time.Duration:
		return t == 0
	case nil:
		return true
	}
	return false
}

func usage() {
	w := flag.CommandLine.Output()
	fmt.Fprintf(w, "usage: formdb [flags] <command> [command flags]\n\ncommands:\n")
	for _, name := range commandNames() {
		fmt.Fprintf(w, "  %-13s %s\n", name, commands[name].help)
	}
	fmt.Fprintf(w, "  %-13s %s\n\nflags:\n", "version", "Print version and exit")
	flag.PrintDefaults()
}

// buildInfo is what `formdb version` reports.
type buildInfo struct {
	Version   string
	GoVersion string
	Revision  string
	Modified  bool
}

// newBuildInfo extracts module and VCS details from bi, which may be nil.
func newBuildInfo(bi *debug.BuildInfo) buildInfo {
	b := buildInfo{Version: "unknown", GoVersion: "unknown", Revision: "unknown"}
	if bi == nil {
		return b
	}
	b.GoVersion = bi.GoVersion
	switch bi.Main.Version {
	case "", "(devel)":
		b.Version = "dev"
	default:
		b.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			b.Revision = s.Value
		case "vcs.modified":
			b.Modified = s.Value == "true"
		}
	}
	return b
}

func (b buildInfo) write(w io.Writer) error {
	modified := ""
	if b.Modified {
		modified = " (modified)"
	}
	_, err := fmt.Fprintf(w, "formdb %s\n  go:       %s\n  revision: %s%s\n", b.Version, b.GoVersion, b.Revision, modified)
	return err
}

func printVersion(w io.Writer) error {
	bi, _ := debug.ReadBuildInfo()
	return newBuildInfo(bi).write(w)
}
