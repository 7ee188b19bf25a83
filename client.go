package purity

import (
	"context"
	"net"
)

// Client talks to a Pd instance running the purity patch over two FUDI
// connections: an outbound one carrying messages to Pd and an inbound one
// on which Pd announces readiness and sends replies.
//
// Lifecycle: Clients are single-use. After Close(), create a new client with NewClient().
//
// Example usage:
//
//	client := purity.NewClient()
//	defer client.Close()
//
//	if err := client.Start(ctx,
//	    purity.WithLogger(slog.Default()),
//	    purity.WithSendPort(17777),
//	); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create an oscillator in the patch
//	err := client.Send(ctx, "obj", purity.Int(10), purity.Int(10), purity.String("osc~"), purity.Int(440))
type Client interface {
	// Handle registers a handler for inbound messages with the given
	// selector. Handlers must be registered before Start; handshake
	// selectors are reserved.
	Handle(selector string, handler Handler) error

	// Start opens the inbound listener, connects to Pd and waits until Pd
	// sends __connected__. With WithLaunch, Pd is started first.
	// ctx bounds startup only.
	Start(ctx context.Context, opts ...Option) error

	// Send writes one message. It returns ErrNotReady before the handshake
	// completed and ErrClosed after the session ended.
	Send(ctx context.Context, selector string, atoms ...Atom) error

	// SendMessage writes msg, like Send.
	SendMessage(ctx context.Context, msg Message) error

	// SendUnsynchronized writes a message as soon as the outbound connection
	// exists, without waiting for __connected__.
	SendUnsynchronized(ctx context.Context, selector string, atoms ...Atom) error

	// ApplyPatch sends the patch's messages in order and stops at the first
	// failure, returning how many were sent and a *PatchError.
	ApplyPatch(ctx context.Context, patch Patch) (int, error)

	// Ping sends __ping__ with atoms and returns the atoms of the next
	// __pong__, or ErrPongTimeout.
	Ping(ctx context.Context, atoms ...Atom) ([]Atom, error)

	// EnableConfirm asks the patch to acknowledge each message with
	// __confirm__; acknowledgements are counted in Stats.
	EnableConfirm(ctx context.Context) error

	// ID returns the session ID, or "" before Start.
	ID() string

	// State returns the session state.
	State() State

	// Stats returns a snapshot of the session counters.
	Stats() Stats

	// ReceiveAddr returns the bound inbound address, or nil before Start.
	ReceiveAddr() net.Addr

	// Done is closed once the session ends.
	Done() <-chan struct{}

	// Err returns why the session ended, or nil after an explicit Close.
	Err() error

	// Close terminates the session and any launched Pd process.
	Close() error
}

// NewClient creates a new Client.
func NewClient() Client {
	return newClientImpl()
}
