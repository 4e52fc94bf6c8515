// Package api serves the local control API: device and scene control with
// fuzzy name matching, rule management through the engine, diagnostics and a
// server-sent event stream.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-ports/homie/internal/devices"
	"github.com/go-ports/homie/internal/engine"
	"github.com/go-ports/homie/internal/events"
)

const shutdownTimeout = 5 * time.Second

// StatusReader exposes daemon status that the API reports but does not own.
type StatusReader interface {
	SecurityDegraded() bool
	ContextSource() string
}

// Options configures a Server. Directory and Engine are required.
type Options struct {
	Addr        string
	Directory   devices.Directory
	Engine      *engine.Engine
	Broadcaster *events.Broadcaster // nil disables GET /events
	Status      StatusReader        // nil reports healthy with no context source
	Version     string
	Logger      *slog.Logger
}

// Server is the control API.
type Server struct {
	addr    string
	dir     devices.Directory
	eng     *engine.Engine
	bc      *events.Broadcaster
	status  StatusReader
	version string
	logger  *slog.Logger
	mux     *http.ServeMux
}

// New builds a server and registers its routes.
func New(opts Options) *Server {
	s := &Server{
		addr:    opts.Addr,
		dir:     opts.Directory,
		eng:     opts.Engine,
		bc:      opts.Broadcaster,
		status:  opts.Status,
		version: opts.Version,
		logger:  opts.Logger,
		mux:     http.NewServeMux(),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "api")
	if s.status == nil {
		s.status = noStatus{}
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /devices", s.handleDevices)
	s.mux.HandleFunc("GET /scenes", s.handleScenes)
	s.mux.HandleFunc("GET /device/{name}", s.handleDevice)
	s.mux.HandleFunc("POST /device/{name}/toggle", s.handleToggle)
	s.mux.HandleFunc("POST /device/{name}/set", s.handleSet)
	s.mux.HandleFunc("POST /scene/{name}/trigger", s.handleTriggerScene)
	s.mux.HandleFunc("GET /debug", s.handleDebug)

	s.mux.HandleFunc("GET /rules", s.handleListRules)
	s.mux.HandleFunc("POST /rules", s.handleAddRule)
	s.mux.HandleFunc("PUT /rules/{id}", s.handleUpdateRule)
	s.mux.HandleFunc("DELETE /rules/{id}", s.handleDeleteRule)
	s.mux.HandleFunc("POST /context", s.handleContext)
	s.mux.HandleFunc("GET /events", s.handleEvents)
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.mux.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// ListenAndServe binds the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if !IsLoopback(s.addr) {
		s.logger.Warn("control API bound beyond localhost; anyone on the network can control devices", "addr", s.addr)
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("api.ListenAndServe: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully. In-flight event streams end with ctx.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("shutdown failed", "err", err)
		}
	}()

	s.logger.Info("control API listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api.Serve: %w", err)
	}
	return nil
}

// IsLoopback reports whether addr binds only a loopback interface.
func IsLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

type noStatus struct{}

func (noStatus) SecurityDegraded() bool { return false }
func (noStatus) ContextSource() string  { return "" }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
