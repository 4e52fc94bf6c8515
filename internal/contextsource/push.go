package contextsource

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-ports/homie/internal/config"
	"github.com/go-ports/homie/internal/models"
)

// Focus is one focus-change notification from a Subscriber.
type Focus struct {
	Identifier  string
	DisplayName string
}

// Subscriber delivers focus changes until ctx is cancelled, then closes the
// channel.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan Focus, error)
}

// Push is the event-driven backend.
type Push struct {
	sub    Subscriber
	em     *emitter
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPush returns a push source reading from sub.
func NewPush(sub Subscriber, handler Handler, logger *slog.Logger) *Push {
	if logger == nil {
		logger = slog.Default()
	}
	return &Push{
		sub:    sub,
		em:     newEmitter(handler),
		logger: logger.With("component", "contextsource", "backend", config.BackendPush),
	}
}

// Name implements Source.
func (p *Push) Name() string { return config.BackendPush }

// Start implements Source.
func (p *Push) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	ch, err := p.sub.Subscribe(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("contextsource.Push.Start: %w", err)
	}

	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(runCtx, ch, p.done)
	p.logger.Info("context source started")
	return nil
}

func (p *Push) run(ctx context.Context, ch <-chan Focus, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-ch:
			if !ok {
				p.logger.Warn("focus subscription closed")
				p.release(done)
				return
			}
			if f.Identifier == "" {
				continue
			}
			ev := models.ContextEvent{AppIdentifier: f.Identifier, DisplayName: f.DisplayName}
			if p.em.emit(ev) {
				p.logger.Debug("app changed", "app", ev.AppIdentifier, "name", ev.DisplayName)
			}
		}
	}
}

// release clears the running state left by the run that owns done, so a
// later Start subscribes again.
func (p *Push) release(done chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != done {
		return
	}
	p.cancel()
	p.cancel, p.done = nil, nil
}

// Running implements Source.
func (p *Push) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Stop implements Source.
func (p *Push) Stop() {
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
