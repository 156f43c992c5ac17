package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/blogbuilder/internal/events"
	"git.home.luguber.info/inful/blogbuilder/internal/eventstore"
	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/notify"
)

// DefaultHistoryDB is the build history database, relative to the site directory.
const DefaultHistoryDB = ".blogbuilder/history.db"

// Global context passed to subcommands.
type Global struct {
	Stdout io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" enum:"text,json" default:"text" help:"Log output format (text|json)."`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Build the site into the output directory"`
	Serve   ServeCmd   `cmd:"" help:"Build, serve and rebuild the site on changes"`
	New     NewCmd     `cmd:"" help:"Create a new site with a default theme"`
	History HistoryCmd `cmd:"" help:"Show recent builds"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	slog.SetDefault(NewLogger(os.Stderr, c.Verbose, c.LogFormat))
	return nil
}

// NewLogger returns a text or JSON logger writing to w.
func NewLogger(w io.Writer, verbose bool, format string) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// SinkFlags selects where build events go besides the log.
type SinkFlags struct {
	HistoryDB  string `name:"history-db" default:"${history_db}" help:"Build history database, relative to the input directory."`
	NoHistory  bool   `name:"no-history" help:"Do not record build history."`
	NATSURL    string `name:"nats-url" env:"BLOGBUILDER_NATS_URL" help:"Publish build events to this NATS server."`
	NATSPrefix string `name:"nats-subject-prefix" default:"${nats_prefix}" help:"Subject prefix for published build events."`
}

// resolveHistoryDB makes a relative database path relative to inputDir.
func resolveHistoryDB(inputDir, db string) string {
	if db == "" {
		db = DefaultHistoryDB
	}
	if filepath.IsAbs(db) {
		return db
	}
	return filepath.Join(inputDir, db)
}

// sinks fans build events out to the history store and NATS.
type sinks struct {
	bus      *events.Bus
	store    *eventstore.SQLiteStore
	notifier *notify.Notifier
	done     []<-chan struct{}
}

// openSinks connects the configured event consumers. The returned sinks must
// be closed to flush pending events.
func openSinks(ctx context.Context, inputDir string, f SinkFlags) (*sinks, error) {
	s := &sinks{bus: events.NewBus()}

	if !f.NoHistory {
		path := resolveHistoryDB(inputDir, f.HistoryDB)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "create history directory").
				WithContext("path", path).
				Build()
		}
		store, err := eventstore.NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		s.store = store
		s.done = append(s.done, eventstore.Attach(ctx, s.bus, store))
	}

	if f.NATSURL != "" {
		n, err := notify.Connect(f.NATSURL, f.NATSPrefix)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.notifier = n
		s.done = append(s.done, n.Attach(ctx, s.bus))
	}
	return s, nil
}

// Close drains the bus and releases the consumers.
func (s *sinks) Close() {
	s.bus.Close()
	for _, done := range s.done {
		<-done
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Warn("Failed to close history database", logfields.Error(err))
		}
	}
	if s.notifier != nil {
		if err := s.notifier.Close(); err != nil {
			slog.Warn("Failed to close NATS connection", logfields.Error(err))
		}
	}
}
