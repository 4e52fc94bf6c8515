// Package probe checks whether the control API port is reachable from outside
// the loopback interface.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// DefaultInterval is the audit period used when none is configured.
const DefaultInterval = 5 * time.Minute

const dialTimeout = 500 * time.Millisecond

// Prober audits one listen address.
type Prober struct {
	addr     string
	interval time.Duration
	logger   *slog.Logger

	// InterfaceAddrs and Dial are replaceable for tests.
	InterfaceAddrs func() ([]net.Addr, error)
	Dial           func(ctx context.Context, network, address string) (net.Conn, error)
}

// New returns a prober for the API listening on addr.
func New(addr string, interval time.Duration, logger *slog.Logger) *Prober {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &net.Dialer{Timeout: dialTimeout}
	return &Prober{
		addr:           addr,
		interval:       interval,
		logger:         logger.With("component", "probe"),
		InterfaceAddrs: net.InterfaceAddrs,
		Dial:           d.DialContext,
	}
}

// Check reports whether the port is exposed. An unspecified bind host
// (empty, 0.0.0.0 or ::) counts as exposed without dialing.
func (p *Prober) Check(ctx context.Context) (bool, error) {
	host, port, err := net.SplitHostPort(p.addr)
	if err != nil {
		return false, fmt.Errorf("probe.Check: %w", err)
	}
	if host == "" {
		return true, nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsUnspecified() {
		return true, nil
	}

	addrs, err := p.InterfaceAddrs()
	if err != nil {
		return false, fmt.Errorf("probe.Check: interface addrs: %w", err)
	}
	for _, a := range addrs {
		ip := addrIP(a)
		if ip == nil || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
			continue
		}
		dctx, cancel := context.WithTimeout(ctx, dialTimeout)
		conn, err := p.Dial(dctx, "tcp", net.JoinHostPort(ip.String(), port))
		cancel()
		if err == nil {
			_ = conn.Close()
			p.logger.Debug("port reachable", "addr", ip.String(), "port", port)
			return true, nil
		}
	}
	return false, nil
}

// Run audits immediately and then once per interval until ctx is done,
// passing every result to report. Failed checks are logged and not reported.
func (p *Prober) Run(ctx context.Context, report func(exposed bool)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		exposed, err := p.Check(ctx)
		switch {
		case err != nil:
			p.logger.Warn("security audit failed", "err", err)
		case exposed:
			p.logger.Warn("control API is reachable beyond localhost", "addr", p.addr)
			report(true)
		default:
			p.logger.Debug("security audit passed", "addr", p.addr)
			report(false)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func addrIP(a net.Addr) net.IP {
	switch v := a.(type) {
	case *net.IPNet:
		return v.IP
	case *net.IPAddr:
		return v.IP
	}
	return nil
}
