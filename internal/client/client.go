package client

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/purity-go/internal/config"
	"github.com/wagiedev/purity-go/internal/errors"
	"github.com/wagiedev/purity-go/internal/fudi"
	"github.com/wagiedev/purity-go/internal/protocol"
	"github.com/wagiedev/purity-go/internal/subprocess"
)

// launchRetryInterval is the pause between outbound dials while a launched
// Pd is still loading its patch.
const launchRetryInterval = 100 * time.Millisecond

// Client owns a session and, when configured, the Pd process it talks to.
type Client struct {
	log      *slog.Logger
	options  *config.Options
	launcher config.Launcher
	session  *protocol.Session

	// Handlers registered before Start, installed on every session attempt.
	handlers map[string]protocol.Handler

	// Startup in flight: the session still handshaking and the cancel for
	// Start's context. Close uses both to abandon startup.
	pending     *protocol.Session
	cancelStart context.CancelFunc

	// Errgroup for goroutine management
	eg *errgroup.Group

	// Lifecycle management
	mu        sync.Mutex
	done      chan struct{}
	started   bool
	closed    bool      // Tracks if Close() has been called
	closeOnce sync.Once // Ensures Close() only runs once
}

// New creates a new client.
//
// The client is not connected after creation. Call Start() with options to connect.
func New() *Client {
	return &Client{
		handlers: make(map[string]protocol.Handler),
		done:     make(chan struct{}),
	}
}

// Handle registers a handler for inbound messages with the given selector.
//
// Handlers must be registered before Start; afterwards the registry is
// frozen and ErrRegistryFrozen is returned.
func (c *Client) Handle(selector string, handler protocol.Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		return c.session.Handle(selector, handler)
	}

	if c.started {
		return errors.ErrRegistryFrozen
	}

	if protocol.IsReserved(selector) {
		return fmt.Errorf("%w: %s", errors.ErrReservedSelector, selector)
	}

	if selector == "" || handler == nil {
		return errors.ErrInvalidHandler
	}

	if fn, ok := handler.(protocol.HandlerFunc); ok && fn == nil {
		return errors.ErrInvalidHandler
	}

	c.handlers[selector] = handler

	return nil
}

// Start launches Pd if requested, then connects the session and waits for
// the peer to signal readiness.
//
// The client keeps running after ctx is done; ctx only bounds startup.
// Close may be called while Start is waiting; Start then returns ErrClosed.
func (c *Client) Start(ctx context.Context, options *config.Options) error {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()

		return errors.ErrClosed
	}

	if c.started {
		c.mu.Unlock()

		return errors.ErrAlreadyStarted
	}

	if options == nil {
		options = config.Defaults()
	}

	opts := *options
	opts.ApplyDefaults()

	if err := opts.Validate(); err != nil {
		c.mu.Unlock()

		return err
	}

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	opts.Logger = log

	startCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.log = log.With("component", "client")
	c.options = &opts
	c.started = true
	c.cancelStart = cancel
	handlers := maps.Clone(c.handlers)

	if opts.Launch || opts.Launcher != nil {
		c.launcher = opts.Launcher
		if c.launcher == nil {
			c.launcher = subprocess.NewPdLauncher(log, &opts)
		}
	}

	launcher := c.launcher
	c.mu.Unlock()

	if launcher != nil {
		if err := launcher.Start(startCtx); err != nil {
			return c.abandon(fmt.Errorf("launch pd: %w", err))
		}

		c.log.Info("Pd launched", "pid", launcher.Pid())
	}

	session, err := c.connect(startCtx, handlers)
	if err != nil {
		return c.abandon(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = nil
	c.cancelStart = nil

	if c.closed {
		_ = session.Close()

		return errors.ErrClosed
	}

	c.session = session

	c.eg = new(errgroup.Group)
	c.eg.Go(func() error {
		c.watch(session)

		return nil
	})

	return nil
}

// abandon cleans up after a failed Start. A failure caused by Close is
// reported as ErrClosed.
func (c *Client) abandon(err error) error {
	c.mu.Lock()
	c.pending = nil
	c.cancelStart = nil
	closed := c.closed
	launcher := c.launcher
	c.mu.Unlock()

	if launcher != nil {
		_ = launcher.Close()
	}

	if closed {
		c.log.Debug("Start abandoned by Close", "error", err)

		return errors.ErrClosed
	}

	return err
}

// connect runs the handshake. With a launched Pd, refused dials are
// retried until LaunchTimeout since the patch may not be listening yet.
func (c *Client) connect(ctx context.Context, handlers map[string]protocol.Handler) (*protocol.Session, error) {
	if c.launcher == nil {
		session, err := c.newSession(handlers)
		if err != nil {
			return nil, err
		}

		if err := session.Connect(ctx); err != nil {
			_ = session.Close()

			return nil, err
		}

		return session, nil
	}

	launchCtx, cancel := context.WithTimeout(ctx, c.options.LaunchTimeout)
	defer cancel()

	for attempt := 1; ; attempt++ {
		session, err := c.newSession(handlers)
		if err != nil {
			return nil, err
		}

		err = session.Start(launchCtx)
		if err == nil {
			if err := session.WaitReady(ctx); err != nil {
				_ = session.Close()

				return nil, err
			}

			return session, nil
		}

		_ = session.Close()

		if _, ok := stderrors.AsType[*errors.ConnectError](err); !ok {
			return nil, err
		}

		c.log.Debug("Pd not accepting yet", "attempt", attempt, "error", err)

		select {
		case <-time.After(launchRetryInterval):
		case <-c.launcher.Done():
			return nil, fmt.Errorf("pd exited during startup: %w", c.launcherErr())
		case <-launchCtx.Done():
			return nil, fmt.Errorf("pd did not accept after %d attempts: %w", attempt, err)
		}
	}
}

// newSession creates a session for one connection attempt and records it as
// pending. It fails with ErrClosed once Close has been called.
func (c *Client) newSession(handlers map[string]protocol.Handler) (*protocol.Session, error) {
	session := protocol.NewSession(c.options.Logger, c.options)

	for selector, handler := range handlers {
		if err := session.Handle(selector, handler); err != nil {
			return nil, fmt.Errorf("register %s: %w", selector, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.ErrClosed
	}

	c.pending = session

	return session, nil
}

// watch ends the session when the launched Pd exits.
func (c *Client) watch(session *protocol.Session) {
	var pdDone <-chan struct{}
	if c.launcher != nil {
		pdDone = c.launcher.Done()
	}

	select {
	case <-pdDone:
		err := c.launcherErr()
		c.log.Warn("Pd exited", "error", err)

		session.Abort(fmt.Errorf("pd exited: %w", err))
	case <-session.Done():
	case <-c.done:
	}
}

// launcherErr reports why the launched process ended, when the launcher
// can tell.
func (c *Client) launcherErr() error {
	if l, ok := c.launcher.(interface{ Err() error }); ok {
		if err := l.Err(); err != nil {
			return err
		}
	}

	return io.EOF
}

func (c *Client) getSession() (*protocol.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.ErrClosed
	}

	if c.session == nil {
		return nil, errors.ErrNotConnected
	}

	return c.session, nil
}

// Send writes a message once the session is Ready.
func (c *Client) Send(ctx context.Context, selector string, atoms ...fudi.Atom) error {
	s, err := c.getSession()
	if err != nil {
		return err
	}

	return s.Send(ctx, selector, atoms...)
}

// SendMessage writes msg once the session is Ready.
func (c *Client) SendMessage(ctx context.Context, msg fudi.Message) error {
	s, err := c.getSession()
	if err != nil {
		return err
	}

	return s.SendMessage(ctx, msg)
}

// SendUnsynchronized writes a message without waiting for readiness.
func (c *Client) SendUnsynchronized(ctx context.Context, selector string, atoms ...fudi.Atom) error {
	s, err := c.getSession()
	if err != nil {
		return err
	}

	return s.SendUnsynchronized(ctx, selector, atoms...)
}

// ApplyPatch sends messages in order, stopping at the first failure.
func (c *Client) ApplyPatch(ctx context.Context, messages []fudi.Message) (int, error) {
	s, err := c.getSession()
	if err != nil {
		return 0, err
	}

	return s.ApplyPatch(ctx, messages)
}

// Ping sends __ping__ and waits for the echoed __pong__ atoms.
func (c *Client) Ping(ctx context.Context, atoms ...fudi.Atom) ([]fudi.Atom, error) {
	s, err := c.getSession()
	if err != nil {
		return nil, err
	}

	return s.Ping(ctx, atoms...)
}

// EnableConfirm asks the patch to acknowledge every message with __confirm__.
func (c *Client) EnableConfirm(ctx context.Context) error {
	s, err := c.getSession()
	if err != nil {
		return err
	}

	return s.EnableConfirm(ctx)
}

// Session returns the underlying session, or nil before Start succeeded.
func (c *Client) Session() *protocol.Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.session
}

// State reports the session state. Before Start it is StateIdle, after a
// Close without a session StateClosed.
func (c *Client) State() protocol.State {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.session != nil:
		return c.session.State()
	case c.pending != nil:
		return c.pending.State()
	case c.closed:
		return protocol.StateClosed
	default:
		return protocol.StateIdle
	}
}

// Stats returns a snapshot of the session counters.
func (c *Client) Stats() protocol.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		state := protocol.StateIdle
		if c.closed {
			state = protocol.StateClosed
		}

		return protocol.Stats{State: state}
	}

	return c.session.Stats()
}

// ID returns the session ID, or "" before Start succeeded.
func (c *Client) ID() string {
	if s := c.Session(); s != nil {
		return s.ID()
	}

	return ""
}

// ReceiveAddr returns the bound inbound address, or nil before Start.
func (c *Client) ReceiveAddr() net.Addr {
	if s := c.Session(); s != nil {
		return s.ReceiveAddr()
	}

	return nil
}

// Done is closed once the session ends or the client is closed.
func (c *Client) Done() <-chan struct{} {
	if s := c.Session(); s != nil {
		return s.Done()
	}

	return c.done
}

// Err returns why the session ended, or nil while running or after an
// explicit Close.
func (c *Client) Err() error {
	if s := c.Session(); s != nil {
		return s.Err()
	}

	return nil
}

// Close terminates the session and the launched Pd, if any.
// It's safe to call Close multiple times.
func (c *Client) Close() error {
	var err error

	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		session := c.session
		pending := c.pending
		cancelStart := c.cancelStart
		launcher := c.launcher
		eg := c.eg
		c.mu.Unlock()

		close(c.done)

		// Abandon a Start still in progress; it cleans up after itself.
		if cancelStart != nil {
			cancelStart()
		}

		if pending != nil {
			_ = pending.Close()
		}

		var errs []error

		if session != nil {
			errs = append(errs, session.Close())
		}

		if launcher != nil {
			errs = append(errs, launcher.Close())
		}

		if eg != nil {
			errs = append(errs, eg.Wait())
		}

		err = stderrors.Join(errs...)
	})

	return err
}
