package render

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/Veraticus/tally/internal/service"
)

// maxConsecutiveFailures marks the pool dead after this many failed
// renders in a row; a later successful health check revives it.
const maxConsecutiveFailures = 3

// Pool wraps a renderer client with a fixed number of render slots.
// Slots are acquired per call and released on every exit path, so a
// panicking or failing render never leaks capacity. A dead backing
// service makes the pool report unhealthy, which in turn makes the
// cascade skip the rendered-body stage instead of failing the batch.
type Pool struct {
	client   *Client
	slots    chan struct{}
	logger   *slog.Logger
	failures atomic.Int32
}

// NewPool creates a pool of render slots over the client.
func NewPool(client *Client, size int) *Pool {
	if size <= 0 {
		size = DefaultConfig().PoolSize
	}

	slots := make(chan struct{}, size)
	for i := 0; i < size; i++ {
		slots <- struct{}{}
	}

	return &Pool{
		client: client,
		slots:  slots,
		logger: slog.Default().With("component", "render"),
	}
}

// acquire blocks for a slot or the context. release must be called on
// every exit path; callers use defer immediately after a nil error.
func (p *Pool) acquire(ctx context.Context) error {
	select {
	case <-p.slots:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) release() {
	p.slots <- struct{}{}
}

// Render acquires a slot and captures the HTML.
func (p *Pool) Render(ctx context.Context, html string) ([]byte, error) {
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}
	defer p.release()

	page, err := p.client.Render(ctx, html)
	if err != nil {
		if p.failures.Add(1) >= maxConsecutiveFailures {
			p.logger.Warn("Renderer marked dead after consecutive failures")
		}
		return nil, err
	}

	p.failures.Store(0)
	return page, nil
}

// LocateReceiptRegion proxies to the client; it is cheap relative to a
// render and does not consume a slot.
func (p *Pool) LocateReceiptRegion(ctx context.Context, page []byte) (*service.BoundingBox, error) {
	return p.client.LocateReceiptRegion(ctx, page)
}

// Crop proxies to the client.
func (p *Pool) Crop(ctx context.Context, page []byte, box service.BoundingBox) ([]byte, error) {
	return p.client.Crop(ctx, page, box)
}

// Healthy reports whether the pool should be offered work. A run of
// failed renders short-circuits to unavailable without a network call.
func (p *Pool) Healthy(ctx context.Context) bool {
	if p.failures.Load() >= maxConsecutiveFailures {
		if !p.client.Healthy(ctx) {
			return false
		}
		p.failures.Store(0)
		return true
	}
	return p.client.Healthy(ctx)
}
