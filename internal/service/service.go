// Package service implements the daemon orchestrator that wires together
// configuration, the device directory, the rule store and engine, the
// context source, the exposure probe and the control API.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/go-ports/homie/internal/api"
	"github.com/go-ports/homie/internal/buildinfo"
	"github.com/go-ports/homie/internal/config"
	"github.com/go-ports/homie/internal/contextsource"
	"github.com/go-ports/homie/internal/devices"
	"github.com/go-ports/homie/internal/engine"
	"github.com/go-ports/homie/internal/events"
	"github.com/go-ports/homie/internal/models"
	"github.com/go-ports/homie/internal/probe"
	"github.com/go-ports/homie/internal/rulestore"
)

// NoSource is reported as the context source when none could be started.
const NoSource = "none"

// SourceOpener starts a context source delivering to handler.
type SourceOpener func(ctx context.Context, cfg config.ContextConfig, handler contextsource.Handler, logger *slog.Logger) (contextsource.Source, error)

// Options configures New.
type Options struct {
	// Home is the application directory. Empty resolves via config.GetHome.
	Home string
	// Addr overrides server.addr from the config file when set.
	Addr string
	// LogOutput receives log lines. Nil means stderr.
	LogOutput io.Writer
	// OpenSource replaces contextsource.Open.
	OpenSource SourceOpener
}

// Service owns every long-lived component of the daemon.
type Service struct {
	Home   string
	Config *config.Config
	Status *Status

	logger     *slog.Logger
	directory  *devices.SQLiteDirectory
	store      *rulestore.Store
	events     *events.Broadcaster
	engine     *engine.Engine
	api        *api.Server
	openSource SourceOpener
}

// New loads configuration from home, opens and seeds the device directory and
// loads the rule set. A corrupt rule store is logged and the defaults are used.
func New(opts Options) (*Service, error) {
	home := opts.Home
	if home == "" {
		home = config.GetHome()
	}
	if err := os.MkdirAll(home, 0o755); err != nil {
		return nil, fmt.Errorf("service.New: create home: %w", err)
	}

	cfg, err := config.Load(filepath.Join(home, "config.yaml"))
	if err != nil {
		return nil, fmt.Errorf("service.New: load config: %w", err)
	}
	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("service.New: %w", err)
		}
	}

	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger := NewLogger(out, cfg.Logging)

	dir, err := devices.Open(cfg.DatabasePath(home), logger)
	if err != nil {
		return nil, fmt.Errorf("service.New: open directory: %w", err)
	}
	if err := dir.Seed(context.Background(), cfg.Home); err != nil {
		_ = dir.Close()
		return nil, fmt.Errorf("service.New: seed directory: %w", err)
	}

	status := &Status{}

	bc := events.NewBroadcaster(logger)
	store := rulestore.InHome(home)
	eng := engine.New(engine.Options{
		Directory: dir,
		Store:     store,
		Events:    bc,
		Logger:    logger,
	})
	if err := eng.Load(); err != nil {
		logger.Warn("rule store unusable; running with defaults", "path", store.Path(), "err", err)
	}

	openSource := opts.OpenSource
	if openSource == nil {
		openSource = contextsource.Open
	}

	return &Service{
		Home:   home,
		Config: cfg,
		Status: status,
		logger: logger,
		api: api.New(api.Options{
			Addr:        cfg.Server.Addr,
			Directory:   dir,
			Engine:      eng,
			Broadcaster: bc,
			Status:      status,
			Version:     buildinfo.Version,
			Logger:      logger,
		}),
		directory:  dir,
		store:      store,
		events:     bc,
		engine:     eng,
		openSource: openSource,
	}, nil
}

// Engine returns the rule engine.
func (s *Service) Engine() *engine.Engine { return s.engine }

// Directory returns the device directory.
func (s *Service) Directory() devices.Directory { return s.directory }

// Close releases the directory and ends every event subscription.
func (s *Service) Close() error {
	s.engine.Close()
	s.events.Close()
	return s.directory.Close()
}

// Run serves the control API on the configured address until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	return s.run(ctx, s.Config.Server.Addr, s.api.ListenAndServe)
}

// Serve is like Run but accepts connections on ln.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	return s.run(ctx, ln.Addr().String(), func(ctx context.Context) error {
		return s.api.Serve(ctx, ln)
	})
}

func (s *Service) run(ctx context.Context, addr string, serve func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	src, err := s.openSource(ctx, s.Config.Context, s.engine.Evaluate, s.logger)
	switch {
	case errors.Is(err, contextsource.ErrNoBackend):
		s.logger.Info("no context backend on this session; rules react only to injected context")
	case err != nil:
		s.logger.Warn("context source failed; rules react only to injected context", "err", err)
	default:
		s.Status.setSource(src)
		s.logger.Info("context source started", "backend", src.Name())
		defer func() {
			src.Stop()
			s.Status.setSource(nil)
		}()
	}

	var wg sync.WaitGroup
	prober := probe.New(addr, s.Config.Probe.Interval, s.logger)
	wg.Go(func() { prober.Run(ctx, s.reportExposure) })

	err = serve(ctx)
	cancel()
	wg.Wait()
	return err
}

// reportExposure records a probe result and publishes it when it changes.
func (s *Service) reportExposure(exposed bool) {
	if !s.Status.setDegraded(exposed) {
		return
	}
	s.events.Publish(events.Event{Type: events.TypeSecurityChanged, Degraded: models.Ptr(exposed)})
}

// ---------------------------------------------------------------------------
// Status
// ---------------------------------------------------------------------------

// Status is daemon state written by background components and read by the
// control API.
type Status struct {
	degraded atomic.Bool
	source   atomic.Pointer[contextsource.Source]
}

// SecurityDegraded reports whether the last probe found the API reachable
// from the network.
func (s *Status) SecurityDegraded() bool { return s.degraded.Load() }

// ContextSource returns the running context source backend, or NoSource
// once that source has stopped delivering events.
func (s *Status) ContextSource() string {
	src := s.source.Load()
	if src == nil || !(*src).Running() {
		return NoSource
	}
	return (*src).Name()
}

// setDegraded stores v and reports whether it differs from the previous value.
func (s *Status) setDegraded(v bool) bool {
	return s.degraded.Swap(v) != v
}

func (s *Status) setSource(src contextsource.Source) {
	if src == nil {
		s.source.Store(nil)
		return
	}
	s.source.Store(&src)
}

// ---------------------------------------------------------------------------
// Logging
// ---------------------------------------------------------------------------

// NewLogger builds a slog logger from the logging config. Unknown levels fall
// back to info and unknown formats to text.
func NewLogger(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
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
