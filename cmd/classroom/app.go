package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Bidon15/classroom/internal/api"
	"github.com/Bidon15/classroom/internal/config"
	"github.com/Bidon15/classroom/internal/feed"
	"github.com/Bidon15/classroom/internal/guard"
	"github.com/Bidon15/classroom/internal/kv"
	"github.com/Bidon15/classroom/internal/members"
	"github.com/Bidon15/classroom/internal/metrics"
	"github.com/Bidon15/classroom/internal/session"
)

// errNotSignedIn aborts commands the guard sends back to the login screen.
var errNotSignedIn = errors.New("not signed in: run `classroom login`")

// app holds everything a command needs. It is built once per invocation by
// setup and torn down by close.
type app struct {
	// global flags
	cfgFile  string
	output   string
	logLevel string

	out    io.Writer
	errOut io.Writer
	color  bool

	cfg       *config.Config
	logger    *slog.Logger
	metrics   *metrics.Collector
	writer    *kv.Writer
	client    *api.Client
	session   *session.Store
	feed      *feed.Store
	directory *members.Directory
	guard     *guard.Guard

	// redirects issued by the guard during this invocation
	redirects []guard.Location
}

// loadConfig reads configuration and applies the --log-level override.
func (a *app) loadConfig() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg
	a.logger = newLogger(a.errOut, cfg.Log)
	return nil
}

// setup wires the stores for a command at loc and runs the guard once. An
// empty loc skips the guard and the API key check.
func (a *app) setup(ctx context.Context, loc guard.Location) error {
	if err := a.loadConfig(); err != nil {
		return err
	}
	if loc != "" {
		if err := a.cfg.RequireAPIKey(); err != nil {
			return err
		}
	}
	a.metrics = metrics.NewCollector()

	opts := a.cfg.StoreOptions()
	opts.Logger = a.logger
	store, err := kv.Open(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	a.writer = kv.NewWriter(store,
		kv.WithWriterLogger(a.logger),
		kv.WithWriterMetrics(a.metrics),
		kv.WithMaxPending(a.cfg.Storage.QueueSize),
	)

	clientOpts := []api.Option{
		api.WithBaseURL(a.cfg.API.BaseURL),
		api.WithLogger(a.logger),
		api.WithMetrics(a.metrics),
	}
	if a.cfg.API.Timeout > 0 {
		clientOpts = append(clientOpts, api.WithHTTPClient(&http.Client{Timeout: a.cfg.API.Timeout}))
	}
	a.client = api.NewClient(a.cfg.API.Key, clientOpts...)

	a.session = session.New(a.client, a.writer,
		session.WithLogger(a.logger),
		session.WithMetrics(a.metrics),
	)
	a.session.Restore(ctx)

	a.feed = feed.New(a.writer, a.session,
		feed.WithLogger(a.logger),
		feed.WithMetrics(a.metrics),
	)
	a.feed.Load(ctx)

	a.directory = members.NewDirectory(a.client, a.session, members.WithLogger(a.logger))

	if loc == "" {
		return nil
	}
	a.guard = guard.New(a.session, guard.NavigatorFunc(func(to guard.Location) {
		a.redirects = append(a.redirects, to)
	}), loc, guard.WithLogger(a.logger))

	if d := a.guard.SetReady(); d.Redirect && d.To == guard.Login {
		return errNotSignedIn
	}
	return nil
}

// redirected reports whether the guard sent the command to loc.
func (a *app) redirected(loc guard.Location) bool {
	for _, r := range a.redirects {
		if r == loc {
			return true
		}
	}
	return false
}

// close flushes pending writes and writes the metrics textfile.
func (a *app) close() error {
	if a.guard != nil {
		a.guard.Close()
	}

	var errs []error
	if a.writer != nil {
		if err := a.writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush storage: %w", err))
		}
	}
	if a.cfg != nil && a.cfg.Metrics.Textfile != "" {
		if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// newLogger builds the stderr logger from the log section.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
