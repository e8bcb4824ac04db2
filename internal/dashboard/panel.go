// ABOUTME: Panel keeps the latest payload, error and timing for one dashboard endpoint
// ABOUTME: A failed fetch keeps the previous payload visible alongside the error

package dashboard

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"
)

// Source returns one raw payload.
type Source func(ctx context.Context) (json.RawMessage, error)

// HealthSource is satisfied by *backend.Client.
type HealthSource interface {
	Health(ctx context.Context) (json.RawMessage, error)
}

// MetricsSource is satisfied by *backend.Client.
type MetricsSource interface {
	PerformanceMetrics(ctx context.Context) (json.RawMessage, error)
}

// View is a point-in-time copy of a Panel.
type View struct {
	Name      string
	Payload   json.RawMessage
	Err       error
	UpdatedAt time.Time // last successful fetch
	Fetches   int
	Failures  int
}

// Stale reports whether the payload predates the last error.
func (v View) Stale() bool {
	return v.Err != nil && v.Payload != nil
}

// Panel is one dashboard view bound to a Source.
type Panel struct {
	name   string
	source Source
	now    func() time.Time

	mu        sync.RWMutex
	payload   json.RawMessage
	lastErr   error
	updatedAt time.Time
	fetches   int
	failures  int
}

// NewPanel creates a Panel.
func NewPanel(name string, source Source) *Panel {
	return &Panel{name: name, source: source, now: time.Now}
}

// NewHealthPanel creates a Panel for the health endpoint.
func NewHealthPanel(src HealthSource) *Panel {
	return NewPanel("health", src.Health)
}

// NewMetricsPanel creates a Panel for the performance metrics endpoint.
func NewMetricsPanel(src MetricsSource) *Panel {
	return NewPanel("metrics", src.PerformanceMetrics)
}

// Name returns the panel name.
func (p *Panel) Name() string {
	return p.name
}

// Fetch refreshes the panel from its source. It satisfies FetchFunc.
func (p *Panel) Fetch(ctx context.Context) error {
	payload, err := p.source(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.fetches++
	if err != nil {
		p.failures++
		p.lastErr = err
		return err
	}
	p.payload = slices.Clone(payload)
	p.lastErr = nil
	p.updatedAt = p.now()
	return nil
}

// View returns a copy of the panel state.
func (p *Panel) View() View {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return View{
		Name:      p.name,
		Payload:   slices.Clone(p.payload),
		Err:       p.lastErr,
		UpdatedAt: p.updatedAt,
		Fetches:   p.fetches,
		Failures:  p.failures,
	}
}
