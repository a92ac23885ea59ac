// Package connectivity tracks whether the remote table is reachable and
// signals reconnects.
package connectivity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Prober checks reachability. remote.Table satisfies it.
type Prober interface {
	Ping(ctx context.Context) error
}

// Monitor holds the latest online state. It starts offline, so the first
// successful probe counts as a reconnect.
type Monitor struct {
	prober   Prober
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	online    bool
	lastErr   error
	reconnect []func(ctx context.Context)

	done chan struct{}
}

func NewMonitor(prober Prober, interval time.Duration, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Monitor{
		prober:   prober,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// OnReconnect registers fn to run on every offline to online transition.
// Hooks run synchronously on the goroutine that observed the transition.
func (m *Monitor) OnReconnect(fn func(ctx context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconnect = append(m.reconnect, fn)
}

func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Set records a connectivity signal.
func (m *Monitor) Set(ctx context.Context, online bool) {
	m.mu.Lock()
	wasOnline := m.online
	m.online = online
	hooks := append([]func(context.Context){}, m.reconnect...)
	m.mu.Unlock()

	if online == wasOnline {
		return
	}
	m.logger.InfoContext(ctx, "connectivity changed", "online", online)
	if !online {
		return
	}
	for _, fn := range hooks {
		fn(ctx)
	}
}

// Probe pings once and records the result.
func (m *Monitor) Probe(ctx context.Context) bool {
	err := m.prober.Ping(ctx)

	m.mu.Lock()
	repeated := err != nil && m.lastErr != nil && errors.Is(err, m.lastErr)
	m.lastErr = err
	m.mu.Unlock()

	if err != nil && !repeated {
		m.logger.WarnContext(ctx, "remote unreachable", "error", err)
	}
	m.Set(ctx, err == nil)
	return err == nil
}

// Run probes immediately and then on every interval until ctx is done. It
// should be called in a goroutine.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer func() {
		ticker.Stop()
		close(m.done)
	}()

	for {
		m.Probe(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Wait blocks until Run returns.
func (m *Monitor) Wait() {
	<-m.done
}
