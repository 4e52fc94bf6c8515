package contextsource

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-ports/homie/internal/config"
	"github.com/go-ports/homie/internal/models"
)

// DefaultPollInterval is used when NewPoll is given a non-positive interval.
const DefaultPollInterval = 1500 * time.Millisecond

// Window is one on-screen window.
type Window struct {
	OwnerName string
	OwnerPID  int
}

// WindowSampler lists on-screen windows, frontmost first.
type WindowSampler interface {
	Windows(ctx context.Context) ([]Window, error)
}

// Poll is the sampling backend.
type Poll struct {
	sampler  WindowSampler
	interval time.Duration
	pid      int
	em       *emitter
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoll returns a poll source sampling every interval.
func NewPoll(sampler WindowSampler, interval time.Duration, handler Handler, logger *slog.Logger) *Poll {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poll{
		sampler:  sampler,
		interval: interval,
		pid:      os.Getpid(),
		em:       newEmitter(handler),
		logger:   logger.With("component", "contextsource", "backend", config.BackendPoll),
	}
}

// Name implements Source.
func (p *Poll) Name() string { return config.BackendPoll }

// Start implements Source. The first sample is taken immediately.
func (p *Poll) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(runCtx, p.done)
	p.logger.Info("context source started", "interval", p.interval)
	return nil
}

func (p *Poll) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.sample(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sample(ctx)
		}
	}
}

func (p *Poll) sample(ctx context.Context) {
	windows, err := p.sampler.Windows(ctx)
	if err != nil {
		p.logger.Debug("window sample failed", "err", err)
		return
	}
	w, ok := p.frontmost(windows)
	if !ok {
		return
	}
	ev := models.ContextEvent{AppIdentifier: Identify(w.OwnerName), DisplayName: w.OwnerName}
	if p.em.emit(ev) {
		p.logger.Debug("app changed", "app", ev.AppIdentifier, "name", ev.DisplayName)
	}
}

// frontmost returns the first window not owned by this process or the desktop shell.
func (p *Poll) frontmost(windows []Window) (Window, bool) {
	for _, w := range windows {
		if w.OwnerPID == p.pid || w.OwnerName == "" || shellOwners[w.OwnerName] {
			continue
		}
		return w, true
	}
	return Window{}, false
}

// Running implements Source.
func (p *Poll) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Stop implements Source.
func (p *Poll) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.logger.Info("context source stopped")
}
