package analytics

import (
	"context"
)

// AsyncClient sends messages without blocking the caller. Each Send runs
// the same pipeline as Client.Send on its own goroutine. It is safe for
// concurrent use.
type AsyncClient struct {
	d *dispatcher
}

// LoadAsync creates a non-blocking client. Unlike Load it sets no request
// timeout by default; requests are bounded by the context passed to Send.
func LoadAsync(writeKey, dataPlaneURL string, opts ...Option) *AsyncClient {
	cfg := defaultClientConfig(0)
	for _, opt := range opts {
		opt(&cfg)
	}
	return &AsyncClient{d: newDispatcher(writeKey, dataPlaneURL, cfg)}
}

// WriteKey returns the write key the client authenticates with.
func (c *AsyncClient) WriteKey() string { return c.d.writeKey }

// DataPlaneURL returns the base URL messages are posted to.
func (c *AsyncClient) DataPlaneURL() string { return c.d.dataPlaneURL }

// Send starts delivering msg and returns immediately. Cancel ctx to abandon
// the request; the Pending then completes with a *RequestError wrapping the
// context error.
func (c *AsyncClient) Send(ctx context.Context, msg Message) *Pending {
	if ctx == nil {
		ctx = context.Background()
	}
	p := &Pending{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.err = c.d.send(ctx, msg)
	}()
	return p
}

// Pending is the outcome of an AsyncClient.Send that may not have finished.
type Pending struct {
	done chan struct{}
	err  error
}

// Done returns a channel closed once the send has finished.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Err returns the send result. It is only meaningful after Done is closed;
// before that it returns nil.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Wait blocks until the send finishes or ctx is done, and returns the send
// result or ctx.Err(). Giving up on Wait does not cancel the request.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
