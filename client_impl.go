package purity

import (
	"context"
	"net"

	"github.com/wagiedev/purity-go/internal/client"
)

// clientWrapper wraps the internal client to adapt it to the public interface.
type clientWrapper struct {
	impl *client.Client
}

// Compile-time check that *clientWrapper implements the Client interface.
var _ Client = (*clientWrapper)(nil)

// newClientImpl creates the internal client implementation.
func newClientImpl() Client {
	return &clientWrapper{impl: client.New()}
}

func (c *clientWrapper) Handle(selector string, handler Handler) error {
	return c.impl.Handle(selector, handler)
}

func (c *clientWrapper) Start(ctx context.Context, opts ...Option) error {
	return c.impl.Start(ctx, applyOptions(opts))
}

func (c *clientWrapper) Send(ctx context.Context, selector string, atoms ...Atom) error {
	return c.impl.Send(ctx, selector, atoms...)
}

func (c *clientWrapper) SendMessage(ctx context.Context, msg Message) error {
	return c.impl.SendMessage(ctx, msg)
}

func (c *clientWrapper) SendUnsynchronized(ctx context.Context, selector string, atoms ...Atom) error {
	return c.impl.SendUnsynchronized(ctx, selector, atoms...)
}

func (c *clientWrapper) ApplyPatch(ctx context.Context, patch Patch) (int, error) {
	if patch == nil {
		return 0, nil
	}

	return c.impl.ApplyPatch(ctx, patch.Messages())
}

func (c *clientWrapper) Ping(ctx context.Context, atoms ...Atom) ([]Atom, error) {
	return c.impl.Ping(ctx, atoms...)
}

func (c *clientWrapper) EnableConfirm(ctx context.Context) error {
	return c.impl.EnableConfirm(ctx)
}

func (c *clientWrapper) ID() string {
	return c.impl.ID()
}

func (c *clientWrapper) State() State {
	return c.impl.State()
}

func (c *clientWrapper) Stats() Stats {
	return c.impl.Stats()
}

func (c *clientWrapper) ReceiveAddr() net.Addr {
	return c.impl.ReceiveAddr()
}

func (c *clientWrapper) Done() <-chan struct{} {
	return c.impl.Done()
}

func (c *clientWrapper) Err() error {
	return c.impl.Err()
}

func (c *clientWrapper) Close() error {
	return c.impl.Close()
}
