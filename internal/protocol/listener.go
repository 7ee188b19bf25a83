package protocol

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/purity-go/internal/errors"
	"github.com/wagiedev/purity-go/internal/fudi"
)

// ListenerStats are cumulative counters for a Listener.
type ListenerStats struct {
	Accepted         int64
	Received         int64
	UnknownSelectors int64
	HandlerErrors    int64
}

// ListenerConfig configures a Listener.
type ListenerConfig struct {
	// Addr is the host:port to bind. Port 0 picks an ephemeral port.
	Addr string

	// WriteTimeout bounds replies sent through Conn.Send.
	WriteTimeout time.Duration

	// OnConnClosed is called from the dispatch goroutine after every message
	// the connection delivered has been dispatched.
	OnConnClosed func(conn *Conn)

	// OnUnknownSelector is called from the dispatch goroutine for messages
	// without a handler.
	OnUnknownSelector func(conn *Conn, msg fudi.Message)

	// OnHandlerError is called from the dispatch goroutine when a handler
	// fails.
	OnHandlerError func(conn *Conn, msg fudi.Message, err error)

	// OnFailure is called once if the accept loop fails for a reason other
	// than Close. It must not call Close synchronously.
	OnFailure func(err error)
}

// inbound is one event handed from a connection to the dispatcher.
type inbound struct {
	conn   *Conn
	msg    fudi.Message
	closed bool
}

// Listener is the inbound endpoint. It accepts connections from the peer,
// decodes FUDI messages from each, and dispatches them one at a time to the
// handlers in its Registry.
type Listener struct {
	log      *slog.Logger
	cfg      ListenerConfig
	registry *Registry

	mu    sync.Mutex
	state EndpointState
	ln    net.Listener
	conns map[string]*Conn

	events chan inbound

	eg        *errgroup.Group
	closeOnce sync.Once
	done      chan struct{}

	accepted      atomic.Int64
	received      atomic.Int64
	unknown       atomic.Int64
	handlerErrors atomic.Int64
}

// NewListener creates a listener dispatching to registry.
// The listener does not bind until Listen is called.
func NewListener(log *slog.Logger, registry *Registry, cfg ListenerConfig) *Listener {
	return &Listener{
		log:      log.With("component", "listener"),
		cfg:      cfg,
		registry: registry,
		conns:    make(map[string]*Conn, 4),
		events:   make(chan inbound, 64),
		done:     make(chan struct{}),
	}
}

// Listen binds the configured address and starts accepting connections.
//
// The registry is frozen before the first connection is accepted.
func (l *Listener) Listen(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case EndpointClosed:
		return errors.ErrClosed
	case EndpointUnconnected:
	default:
		return errors.ErrAlreadyStarted
	}

	l.state = EndpointConnecting

	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", l.cfg.Addr)
	if err != nil {
		l.state = EndpointUnconnected

		return &errors.ListenError{Addr: l.cfg.Addr, Err: err}
	}

	l.registry.Freeze()

	l.ln = ln
	l.state = EndpointConnected

	eg, egCtx := errgroup.WithContext(context.Background())
	l.eg = eg

	eg.Go(func() error { return l.dispatchLoop(egCtx) })
	eg.Go(func() error { return l.acceptLoop(egCtx) })

	l.log.Info("Listening for inbound connections",
		"addr", ln.Addr().String(),
		"selectors", l.registry.Selectors(),
	)

	return nil
}

// Addr returns the bound address, or nil before Listen.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ln == nil {
		return nil
	}

	return l.ln.Addr()
}

// State returns the endpoint state.
func (l *Listener) State() EndpointState {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.state
}

// Stats returns a snapshot of the listener counters.
func (l *Listener) Stats() ListenerStats {
	return ListenerStats{
		Accepted:         l.accepted.Load(),
		Received:         l.received.Load(),
		UnknownSelectors: l.unknown.Load(),
		HandlerErrors:    l.handlerErrors.Load(),
	}
}

// Done returns a channel that is closed when the listener closes.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Close stops accepting, closes every open connection and waits for the
// listener's goroutines to exit. It's safe to call Close multiple times.
//
// Close must not be called from a Handler.
func (l *Listener) Close() error {
	var closeErr error

	l.closeOnce.Do(func() {
		l.log.Debug("Closing listener")

		l.mu.Lock()
		l.state = EndpointClosed
		ln := l.ln
		conns := make([]*Conn, 0, len(l.conns))

		for _, c := range l.conns {
			conns = append(conns, c)
		}
		l.mu.Unlock()

		close(l.done)

		if ln != nil {
			if err := ln.Close(); err != nil && !stderrors.Is(err, net.ErrClosed) {
				closeErr = fmt.Errorf("close listener: %w", err)
			}
		}

		for _, c := range conns {
			_ = c.Close()
		}

		if l.eg != nil {
			if err := l.eg.Wait(); err != nil && closeErr == nil {
				closeErr = err
			}
		}

		l.log.Info("Listener closed")
	})

	return closeErr
}

func (l *Listener) acceptLoop(ctx context.Context) error {
	defer l.log.Debug("Accept loop stopped")

	for {
		nc, err := l.ln.Accept()
		if err != nil {
			select {
			case <-l.done:
				return nil
			default:
			}

			l.log.Error("Accept failed", "error", err)

			if l.cfg.OnFailure != nil {
				l.cfg.OnFailure(&errors.ListenError{Addr: l.cfg.Addr, Err: err})
			}

			return nil
		}

		conn := &Conn{
			ID:           uuid.NewString(),
			conn:         nc,
			writeTimeout: l.cfg.WriteTimeout,
		}
		conn.log = l.log.With("conn_id", conn.ID)

		if !l.track(conn) {
			_ = nc.Close()

			return nil
		}

		l.accepted.Add(1)
		conn.log.Info("Accepted inbound connection", "remote_addr", nc.RemoteAddr().String())

		l.eg.Go(func() error {
			l.serve(ctx, conn)

			return nil
		})
	}
}

// track records an accepted connection unless the listener is closing.
func (l *Listener) track(c *Conn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == EndpointClosed {
		return false
	}

	l.conns[c.ID] = c

	return true
}

// serve decodes messages from one connection until it closes.
func (l *Listener) serve(ctx context.Context, c *Conn) {
	defer func() {
		_ = c.Close()

		l.mu.Lock()
		delete(l.conns, c.ID)
		l.mu.Unlock()

		l.emit(ctx, inbound{conn: c, closed: true})
	}()

	scanner := fudi.NewScanner(c.conn)

	for scanner.Scan() {
		msg, err := fudi.Decode(scanner.Bytes())
		if stderrors.Is(err, errors.ErrSkip) {
			continue
		}

		if err != nil {
			c.log.Warn("Dropping undecodable message", "error", err)

			continue
		}

		l.received.Add(1)

		if !l.emit(ctx, inbound{conn: c, msg: msg}) {
			return
		}
	}

	err := scanner.Err()

	switch {
	case err == nil:
		c.log.Info("Inbound connection closed by peer")
	case stderrors.Is(err, bufio.ErrTooLong):
		c.log.Warn("Message exceeds size limit, closing connection", "limit", fudi.MaxMessageSize)
	case stderrors.Is(err, net.ErrClosed) || c.closed.Load():
		c.log.Debug("Inbound connection closed locally")
	default:
		c.log.Warn("Inbound connection read failed", "error", err)
	}
}

// emit hands an event to the dispatcher. It reports false once the
// listener is closing.
func (l *Listener) emit(ctx context.Context, ev inbound) bool {
	select {
	case l.events <- ev:
		return true
	case <-l.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// dispatchLoop runs every handler on a single goroutine, in arrival order.
func (l *Listener) dispatchLoop(ctx context.Context) error {
	defer l.log.Debug("Dispatch loop stopped")

	for {
		select {
		case ev := <-l.events:
			l.dispatch(ctx, ev)

		case <-l.done:
			return nil

		case <-ctx.Done():
			return nil
		}
	}
}

func (l *Listener) dispatch(ctx context.Context, ev inbound) {
	if ev.closed {
		if l.cfg.OnConnClosed != nil {
			l.cfg.OnConnClosed(ev.conn)
		}

		return
	}

	selector := ev.msg.Selector

	handler, ok := l.registry.Lookup(selector)
	if !ok {
		l.unknown.Add(1)
		ev.conn.log.Warn("No handler registered for selector",
			"selector", selector,
			"error", errors.ErrUnknownSelector,
		)

		if l.cfg.OnUnknownSelector != nil {
			l.cfg.OnUnknownSelector(ev.conn, ev.msg)
		}

		return
	}

	ev.conn.log.Debug("Dispatching message", "selector", selector, "atoms", len(ev.msg.Atoms))

	if err := invoke(ctx, handler, ev); err != nil {
		l.handlerErrors.Add(1)

		herr := &errors.HandlerError{Selector: selector, Err: err}
		ev.conn.log.Warn("Handler failed", "selector", selector, "error", herr)

		if l.cfg.OnHandlerError != nil {
			l.cfg.OnHandlerError(ev.conn, ev.msg, herr)
		}
	}
}

// invoke calls the handler, converting a panic into an error.
func invoke(ctx context.Context, h Handler, ev inbound) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return h.HandleMessage(ctx, ev.conn, ev.msg.Atoms)
}
