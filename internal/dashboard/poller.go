// ABOUTME: Poller runs a fetch immediately and then on every tick until its context ends
// ABOUTME: Overlapping ticks are skipped so at most one fetch is in flight

package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Poller errors
var (
	ErrFetchInFlight   = errors.New("fetch already in flight")
	ErrInvalidInterval = errors.New("poll interval must be positive")
)

// FetchFunc performs one refresh.
type FetchFunc func(ctx context.Context) error

// Poller calls a FetchFunc on a fixed interval.
type Poller struct {
	name     string
	interval time.Duration
	fetch    FetchFunc

	busy    atomic.Bool
	skipped atomic.Int64
	wg      sync.WaitGroup

	logger *slog.Logger
}

// NewPoller creates a Poller. name tags log output.
func NewPoller(name string, interval time.Duration, fetch FetchFunc, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		name:     name,
		interval: interval,
		fetch:    fetch,
		logger:   logger.With("component", "dashboard", "poller", name),
	}
}

// Run fetches once right away and then every interval. It blocks until ctx is
// done and any in-flight fetch has returned.
func (p *Poller) Run(ctx context.Context) error {
	if p.interval <= 0 {
		return ErrInvalidInterval
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer p.wg.Wait()

	p.logger.Debug("poller started", "interval", p.interval)
	p.trigger(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("poller stopped", "skipped_ticks", p.skipped.Load())
			return nil
		case <-ticker.C:
			p.trigger(ctx)
		}
	}
}

// Refresh fetches now and waits for the result. It returns ErrFetchInFlight if
// a fetch is already running.
func (p *Poller) Refresh(ctx context.Context) error {
	if !p.busy.CompareAndSwap(false, true) {
		return ErrFetchInFlight
	}
	defer p.busy.Store(false)
	return p.fetch(ctx)
}

// Skipped returns how many ticks were dropped because a fetch was running.
func (p *Poller) Skipped() int64 {
	return p.skipped.Load()
}

// trigger starts a fetch in the background unless one is already running.
func (p *Poller) trigger(ctx context.Context) {
	if !p.busy.CompareAndSwap(false, true) {
		n := p.skipped.Add(1)
		p.logger.Debug("tick skipped, fetch still in flight", "skipped_ticks", n)
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.busy.Store(false)

		if err := p.fetch(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("fetch failed", "error", err)
		}
	}()
}
