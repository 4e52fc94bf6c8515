// Package contextsource reports foreground-application transitions to a
// handler. Two backends exist: Push subscribes to compositor focus events and
// Poll samples the on-screen window list. Both deliver an event only when the
// application identifier actually changes.
package contextsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/go-ports/homie/internal/config"
	"github.com/go-ports/homie/internal/models"
)

// ErrNoBackend is returned when no context backend is usable in this session.
var ErrNoBackend = errors.New("no context backend available")

// Source produces context events until stopped.
type Source interface {
	// Start begins delivering events. Calling Start on a running source is a no-op.
	Start(ctx context.Context) error
	// Stop halts delivery and waits for the backend goroutine. Safe to call repeatedly.
	Stop()
	// Running reports whether events are still being delivered. A push
	// source stops running when its subscription ends.
	Running() bool
	// Name is "push" or "poll".
	Name() string
}

// Handler receives deduplicated context events.
type Handler func(models.ContextEvent)

// emitter forwards events to the handler, dropping any whose identifier
// matches the previous one.
type emitter struct {
	mu      sync.Mutex
	last    string
	handler Handler
}

func newEmitter(h Handler) *emitter {
	if h == nil {
		h = func(models.ContextEvent) {}
	}
	return &emitter{handler: h}
}

// emit reports whether ev was delivered.
func (e *emitter) emit(ev models.ContextEvent) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last != "" && strings.EqualFold(e.last, ev.AppIdentifier) {
		return false
	}
	e.last = ev.AppIdentifier
	e.handler(ev)
	return true
}

// New selects a backend from cfg.Backend. With "auto" it prefers push when a
// Hyprland session is detected and poll when an X display is available.
func New(cfg config.ContextConfig, handler Handler, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch backend(cfg.Backend) {
	case config.BackendPush:
		path, err := HyprlandSocketPath()
		if err != nil {
			return nil, fmt.Errorf("contextsource.New: %w", err)
		}
		return NewPush(&HyprlandSubscriber{Path: path}, handler, logger), nil
	case config.BackendPoll:
		return NewPoll(NewXpropSampler(), cfg.PollInterval, handler, logger), nil
	default:
		return nil, fmt.Errorf("contextsource.New: %w", ErrNoBackend)
	}
}

// Open creates and starts a source. When auto-selection picked push and the
// subscription fails, it falls back to poll if a display is available.
func Open(ctx context.Context, cfg config.ContextConfig, handler Handler, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	src, err := New(cfg, handler, logger)
	if err != nil {
		return nil, err
	}
	err = src.Start(ctx)
	if err == nil {
		return src, nil
	}
	if cfg.Backend != config.BackendAuto || src.Name() != config.BackendPush || os.Getenv("DISPLAY") == "" {
		return nil, fmt.Errorf("contextsource.Open: %w", err)
	}

	logger.Warn("push context source unavailable, falling back to polling", "err", err)
	poll := NewPoll(NewXpropSampler(), cfg.PollInterval, handler, logger)
	if err := poll.Start(ctx); err != nil {
		return nil, fmt.Errorf("contextsource.Open: %w", err)
	}
	return poll, nil
}

// backend resolves "auto" (or empty) against the environment.
func backend(configured string) string {
	switch configured {
	case config.BackendPush, config.BackendPoll:
		return configured
	}
	if os.Getenv(hyprlandSignatureEnv) != "" {
		return config.BackendPush
	}
	if os.Getenv("DISPLAY") != "" {
		return config.BackendPoll
	}
	return ""
}
