package protocol

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/purity-go/internal/config"
	"github.com/wagiedev/purity-go/internal/errors"
	"github.com/wagiedev/purity-go/internal/fudi"
	"github.com/wagiedev/purity-go/internal/hook"
)

// Selectors reserved for the session's own use on the inbound channel.
const (
	SelectorPing      = "__ping__"
	SelectorPong      = "__pong__"
	SelectorConfirm   = "__confirm__"
	SelectorConnected = "__connected__"
)

// SelectorEnableConfirm asks Pd to acknowledge every message with __confirm__.
const SelectorEnableConfirm = "__enable_confirm__"

// IsReserved reports whether selector is handled by the session itself.
func IsReserved(selector string) bool {
	switch selector {
	case SelectorPing, SelectorPong, SelectorConfirm, SelectorConnected:
		return true
	default:
		return false
	}
}

// Stats is a snapshot of session activity.
type Stats struct {
	State            State `json:"state"`
	Accepted         int64 `json:"accepted"`
	Sent             int64 `json:"sent"`
	Received         int64 `json:"received"`
	UnknownSelectors int64 `json:"unknown_selectors"`
	HandlerErrors    int64 `json:"handler_errors"`
	Confirmed        int64 `json:"confirmed"`
}

// Session manages the two connections to one Pd instance and the handshake
// that gates application traffic.
//
// The lifecycle is:
//
//	Idle -> ListenStarted -> Connecting -> AwaitingPeerReady -> Ready -> Closed
//
// with Failed reachable from any non-terminal state.
type Session struct {
	id      string
	log     *slog.Logger
	options *config.Options

	registry *Registry
	listener *Listener
	sender   *Sender

	mu          sync.Mutex
	state       State
	started     bool
	cause       error
	peerReady   bool
	readyConnID string
	ready       chan struct{}

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}

	pongMu      sync.Mutex
	pongWaiters []chan []fudi.Atom

	confirmed atomic.Int64

	hooks *hook.Dispatcher
}

// NewSession creates an idle session.
//
// Empty host, network and timeout fields of options are defaulted; the
// ports are used as given.
func NewSession(log *slog.Logger, options *config.Options) *Session {
	opts := *options
	opts.ApplyDefaults()

	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	id := ulid.Make().String()
	base := log.With("session_id", id)

	s := &Session{
		id:       id,
		log:      base.With("component", "session"),
		options:  &opts,
		registry: NewRegistry(),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
		hooks:    hook.NewDispatcher(base, opts.Hooks),
	}

	s.listener = NewListener(base, s.registry, ListenerConfig{
		Addr:         opts.ListenAddr(),
		WriteTimeout: opts.WriteTimeout,
		OnConnClosed: s.onConnClosed,
		OnUnknownSelector: func(conn *Conn, msg fudi.Message) {
			s.hooks.Emit(&hook.UnknownSelectorInput{
				BaseInput: hook.BaseInput{SessionID: s.id},
				ConnID:    conn.ID,
				Selector:  msg.Selector,
				Atoms:     len(msg.Atoms),
			})
		},
		OnHandlerError: func(conn *Conn, msg fudi.Message, err error) {
			s.hooks.Emit(&hook.HandlerErrorInput{
				BaseInput: hook.BaseInput{SessionID: s.id},
				ConnID:    conn.ID,
				Selector:  msg.Selector,
				Err:       err,
			})
		},
		OnFailure: func(err error) { go s.peerGone(err) },
	})

	s.sender = NewSender(base, SenderConfig{
		Network:        opts.Network,
		Addr:           opts.PeerAddr(),
		ConnectTimeout: opts.ConnectTimeout,
		WriteTimeout:   opts.WriteTimeout,
		Rate:           opts.SendRate,
		Burst:          opts.SendBurst,
		OnClosed: func(err error) {
			go s.peerGone(fmt.Errorf("outbound connection closed: %w", err))
		},
	})

	s.registerHandshakeHandlers()

	return s
}

func (s *Session) registerHandshakeHandlers() {
	handlers := map[string]HandlerFunc{
		SelectorConnected: s.onConnected,
		SelectorPong:      s.onPong,
		SelectorPing:      s.onPing,
		SelectorConfirm:   s.onConfirm,
	}

	for selector, h := range handlers {
		// Cannot fail: the registry is fresh and the handlers are non-nil.
		_ = s.registry.Register(selector, h)
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current handshake state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Err returns why the session ended, or nil while it is running or after an
// explicit Close.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cause
}

// Done returns a channel that is closed when the session reaches Closed or
// Failed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// ReceiveAddr returns the bound inbound address, or nil before Start.
func (s *Session) ReceiveAddr() net.Addr {
	return s.listener.Addr()
}

// Handle registers a handler for an application selector.
//
// It must be called before Start. Reserved selectors are rejected with
// ErrReservedSelector.
func (s *Session) Handle(selector string, handler Handler) error {
	if IsReserved(selector) {
		return fmt.Errorf("%w: %s", errors.ErrReservedSelector, selector)
	}

	return s.registry.Register(selector, handler)
}

// Start opens the listener, then dials the peer.
//
// On success the session is AwaitingPeerReady, or Ready if the peer already
// announced itself. Any failure moves the session to Failed.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()

	if s.started {
		err := errors.ErrAlreadyStarted
		if s.state.Terminal() {
			err = s.stateErrLocked()
		}

		s.mu.Unlock()

		return err
	}

	s.started = true
	s.mu.Unlock()

	s.hooks.Start()

	s.log.Info("Starting session",
		"listen_addr", s.options.ListenAddr(),
		"peer_addr", s.options.PeerAddr(),
		"network", s.options.Network,
	)

	if err := s.listener.Listen(ctx); err != nil {
		s.fail(err)

		return err
	}

	if err := s.advance(StateIdle, StateListenStarted); err != nil {
		return err
	}

	if err := s.advance(StateListenStarted, StateConnecting); err != nil {
		return err
	}

	if err := s.sender.Connect(ctx); err != nil {
		s.fail(err)

		return err
	}

	return s.outboundConnected()
}

// outboundConnected enters AwaitingPeerReady, or Ready straight away when
// __connected__ arrived during the dial.
func (s *Session) outboundConnected() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnecting {
		return s.stateErrLocked()
	}

	s.setStateLocked(StateAwaitingPeerReady)

	if s.peerReady {
		s.readyLocked()
	}

	return nil
}

// WaitReady blocks until the peer has sent __connected__.
//
// The wait is bounded by the handshake timeout; on expiry the session fails
// with ErrHandshakeTimeout. Cancelling ctx abandons the wait without
// changing the session state.
func (s *Session) WaitReady(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()

		return fmt.Errorf("%w: session not started", errors.ErrNotReady)
	}
	s.mu.Unlock()

	var timeout <-chan time.Time

	if d := s.options.HandshakeTimeout; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()

		timeout = timer.C
	}

	select {
	case <-s.ready:
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.state == StateReady {
			return nil
		}

		return s.stateErrLocked()

	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()

		return s.stateErrLocked()

	case <-timeout:
		return s.handshakeTimedOut()

	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect is Start followed by WaitReady.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	return s.WaitReady(ctx)
}

// Send transmits one message to the peer. It fails with ErrNotReady until
// the handshake has completed.
func (s *Session) Send(ctx context.Context, selector string, atoms ...fudi.Atom) error {
	return s.SendMessage(ctx, fudi.NewMessage(selector, atoms...))
}

// SendMessage is Send for an already built message.
func (s *Session) SendMessage(ctx context.Context, msg fudi.Message) error {
	s.mu.Lock()
	if s.state != StateReady {
		err := s.stateErrLocked()
		s.mu.Unlock()

		return err
	}
	s.mu.Unlock()

	return s.sender.SendMessage(ctx, msg)
}

// SendUnsynchronized transmits a message as soon as the outbound channel is
// connected, without waiting for the peer's __connected__.
func (s *Session) SendUnsynchronized(ctx context.Context, selector string, atoms ...fudi.Atom) error {
	s.mu.Lock()
	if s.state.Terminal() {
		err := s.stateErrLocked()
		s.mu.Unlock()

		return err
	}
	s.mu.Unlock()

	return s.sender.Send(ctx, selector, atoms...)
}

// ApplyPatch sends messages in order and stops at the first failure.
//
// It returns the number of messages sent. A failure is reported as
// *PatchError; messages already sent are not undone.
func (s *Session) ApplyPatch(ctx context.Context, messages []fudi.Message) (int, error) {
	s.log.Debug("Applying patch", "messages", len(messages))

	for i, msg := range messages {
		if err := s.SendMessage(ctx, msg); err != nil {
			s.log.Warn("Patch aborted", "index", i, "selector", msg.Selector, "error", err)

			return i, &errors.PatchError{Index: i, Sent: i, Selector: msg.Selector, Err: err}
		}
	}

	s.log.Info("Patch applied", "messages", len(messages))

	return len(messages), nil
}

// Ping sends __ping__ with the given atoms and waits for the next __pong__,
// returning its atoms.
func (s *Session) Ping(ctx context.Context, atoms ...fudi.Atom) ([]fudi.Atom, error) {
	waiter := make(chan []fudi.Atom, 1)

	s.pongMu.Lock()
	s.pongWaiters = append(s.pongWaiters, waiter)
	s.pongMu.Unlock()

	defer s.removePongWaiter(waiter)

	if err := s.Send(ctx, SelectorPing, atoms...); err != nil {
		return nil, err
	}

	timeout := s.options.PongTimeout

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case reply := <-waiter:
		return reply, nil

	case <-timer.C:
		s.log.Warn("Ping timed out", "timeout", timeout)

		return nil, fmt.Errorf("%w after %s", errors.ErrPongTimeout, timeout)

	case <-s.done:
		return nil, errors.ErrClosed

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// EnableConfirm asks the peer to acknowledge each message with __confirm__.
// Acknowledgements are counted in Stats.
func (s *Session) EnableConfirm(ctx context.Context) error {
	return s.Send(ctx, SelectorEnableConfirm, fudi.Int(1))
}

// Stats returns a snapshot of session counters.
func (s *Session) Stats() Stats {
	ls := s.listener.Stats()

	return Stats{
		State:            s.State(),
		Accepted:         ls.Accepted,
		Sent:             s.sender.Sent(),
		Received:         ls.Received,
		UnknownSelectors: ls.UnknownSelectors,
		HandlerErrors:    ls.HandlerErrors,
		Confirmed:        s.confirmed.Load(),
	}
}

// Close closes both endpoints and releases waiters with ErrClosed.
// It's safe to call Close multiple times.
//
// Close must not be called from a Handler.
func (s *Session) Close() error {
	s.mu.Lock()
	if !s.state.Terminal() {
		s.setStateLocked(StateClosed)
	}
	s.mu.Unlock()

	return s.shutdown()
}

// Abort ends the session with cause, as if the peer had gone away: Closed
// once Ready, Failed before. Err reports cause afterwards.
func (s *Session) Abort(cause error) {
	s.peerGone(cause)
}

func (s *Session) shutdown() error {
	s.closeOnce.Do(func() {
		close(s.done)

		s.closeErr = stderrors.Join(s.sender.Close(), s.listener.Close())
		s.hooks.Close()

		s.log.Info("Session closed", "state", s.State())
	})

	return s.closeErr
}

// advance moves from one state to the next unless the session was closed
// in between.
func (s *Session) advance(from, to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != from {
		return s.stateErrLocked()
	}

	s.setStateLocked(to)

	return nil
}

func (s *Session) setStateLocked(to State) {
	s.log.Debug("Session state transition", "from", s.state.String(), "to", to.String())

	s.hooks.Emit(&hook.StateChangeInput{
		BaseInput: hook.BaseInput{SessionID: s.id},
		From:      s.state.String(),
		To:        to.String(),
		Cause:     s.cause,
	})

	s.state = to
}

func (s *Session) readyLocked() {
	s.setStateLocked(StateReady)
	close(s.ready)
	s.log.Info("Session ready", "inbound_conn", s.readyConnID)
}

// stateErrLocked returns the error for an operation that needs Ready.
func (s *Session) stateErrLocked() error {
	switch s.state {
	case StateClosed:
		return errors.ErrClosed
	case StateFailed:
		return fmt.Errorf("%w: %w", errors.ErrSessionFailed, s.cause)
	default:
		return errors.ErrNotReady
	}
}

// fail moves a running session to Failed and tears it down.
func (s *Session) fail(err error) {
	s.mu.Lock()

	if s.state.Terminal() {
		s.mu.Unlock()

		return
	}

	prev := s.state
	s.cause = err
	s.setStateLocked(StateFailed)
	s.mu.Unlock()

	s.log.Error("Session failed", "state", prev.String(), "error", err)

	_ = s.shutdown()
}

func (s *Session) handshakeTimedOut() error {
	err := fmt.Errorf("%w after %s", errors.ErrHandshakeTimeout, s.options.HandshakeTimeout)

	s.mu.Lock()

	switch {
	case s.state == StateReady:
		s.mu.Unlock()

		return nil
	case s.state.Terminal():
		defer s.mu.Unlock()

		return s.stateErrLocked()
	}

	s.cause = err
	s.setStateLocked(StateFailed)
	s.mu.Unlock()

	s.log.Error("Peer never signalled ready", "timeout", s.options.HandshakeTimeout)

	_ = s.shutdown()

	return err
}

// peerGone ends the session after the peer dropped a channel: Closed if the
// handshake had completed, Failed otherwise.
func (s *Session) peerGone(cause error) {
	s.mu.Lock()

	switch {
	case s.state.Terminal():
		s.mu.Unlock()

		return
	case s.state != StateReady:
		s.mu.Unlock()
		s.fail(cause)

		return
	}

	s.cause = cause
	s.setStateLocked(StateClosed)
	s.mu.Unlock()

	s.log.Info("Peer disconnected", "cause", cause)

	_ = s.shutdown()
}

func (s *Session) onConnClosed(conn *Conn) {
	s.hooks.Emit(&hook.ConnClosedInput{
		BaseInput: hook.BaseInput{SessionID: s.id},
		ConnID:    conn.ID,
	})

	s.mu.Lock()
	signalled := conn.ID == s.readyConnID
	s.mu.Unlock()

	if signalled {
		go s.peerGone(fmt.Errorf("inbound connection %s closed", conn.ID))
	}
}

func (s *Session) onConnected(_ context.Context, conn *Conn, _ []fudi.Atom) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateAwaitingPeerReady:
		s.readyConnID = conn.ID
		s.readyLocked()

	case StateListenStarted, StateConnecting:
		if !s.peerReady {
			s.peerReady = true
			s.readyConnID = conn.ID
			s.log.Info("Peer ready before outbound connect completed", "inbound_conn", conn.ID)
		}

	default:
		s.log.Debug("Ignoring __connected__", "state", s.state.String(), "inbound_conn", conn.ID)
	}

	return nil
}

func (s *Session) onPong(_ context.Context, _ *Conn, atoms []fudi.Atom) error {
	s.pongMu.Lock()
	defer s.pongMu.Unlock()

	if len(s.pongWaiters) == 0 {
		s.log.Debug("Received unsolicited pong", "atoms", len(atoms))

		return nil
	}

	waiter := s.pongWaiters[0]
	s.pongWaiters = s.pongWaiters[1:]

	waiter <- atoms

	return nil
}

func (s *Session) removePongWaiter(waiter chan []fudi.Atom) {
	s.pongMu.Lock()
	defer s.pongMu.Unlock()

	if i := slices.Index(s.pongWaiters, waiter); i >= 0 {
		s.pongWaiters = slices.Delete(s.pongWaiters, i, i+1)
	}
}

func (s *Session) onPing(_ context.Context, conn *Conn, atoms []fudi.Atom) error {
	s.log.Debug("Received ping from peer", "inbound_conn", conn.ID, "atoms", len(atoms))

	return nil
}

func (s *Session) onConfirm(_ context.Context, _ *Conn, _ []fudi.Atom) error {
	n := s.confirmed.Add(1)
	s.log.Debug("Peer confirmed message", "confirmed", n)

	return nil
}
