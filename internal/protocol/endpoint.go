package protocol

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wagiedev/purity-go/internal/errors"
	"github.com/wagiedev/purity-go/internal/fudi"
)

// EndpointState is the lifecycle of a Listener or Sender.
type EndpointState int32

const (
	// EndpointUnconnected is the initial state, and the state after a failed dial.
	EndpointUnconnected EndpointState = iota
	// EndpointConnecting means a dial or bind is in progress.
	EndpointConnecting
	// EndpointConnected means the endpoint can carry messages.
	EndpointConnected
	// EndpointClosed is terminal; every later operation returns ErrClosed.
	EndpointClosed
)

// String returns the state name.
func (s EndpointState) String() string {
	switch s {
	case EndpointUnconnected:
		return "unconnected"
	case EndpointConnecting:
		return "connecting"
	case EndpointConnected:
		return "connected"
	case EndpointClosed:
		return "closed"
	default:
		return fmt.Sprintf("EndpointState(%d)", int32(s))
	}
}

// Conn is one inbound connection accepted by a Listener.
type Conn struct {
	// ID uniquely identifies the connection for logging.
	ID string

	log          *slog.Logger
	conn         net.Conn
	writeTimeout time.Duration

	writeMu sync.Mutex
	closed  atomic.Bool
}

// RemoteAddr returns the peer address of the connection.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Send writes a message back to the peer over this inbound connection.
func (c *Conn) Send(ctx context.Context, selector string, atoms ...fudi.Atom) error {
	line, err := fudi.Encode(fudi.NewMessage(selector, atoms...))
	if err != nil {
		return err
	}

	if c.closed.Load() {
		return errors.ErrClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.log.Debug("Replying on inbound connection", "selector", selector, "atoms", len(atoms))

	return writeLine(ctx, c.conn, line, c.writeTimeout)
}

// Close closes the connection. It's safe to call Close multiple times.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	return c.conn.Close()
}

// writeLine writes one encoded message, bounded by the write timeout and
// the context deadline, whichever is earlier.
func writeLine(ctx context.Context, conn net.Conn, line []byte, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}

	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}

	if _, err := conn.Write(line); err != nil {
		if stderrors.Is(err, net.ErrClosed) {
			return errors.ErrClosed
		}

		return fmt.Errorf("write: %w", err)
	}

	return nil
}
