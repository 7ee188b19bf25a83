package protocol

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/wagiedev/purity-go/internal/errors"
	"github.com/wagiedev/purity-go/internal/fudi"
)

// SenderConfig configures a Sender.
type SenderConfig struct {
	// Network is "tcp" or "udp" (or their 4/6 variants).
	Network string

	// Addr is the peer host:port.
	Addr string

	// ConnectTimeout bounds the dial. Zero relies on the context alone.
	ConnectTimeout time.Duration

	// WriteTimeout bounds each write.
	WriteTimeout time.Duration

	// Rate limits messages per second. Zero disables pacing.
	Rate float64

	// Burst is the pacing burst size; values below 1 are treated as 1.
	Burst int

	// OnClosed is called once if a connected stream is closed by the peer.
	// It must not call Close synchronously.
	OnClosed func(err error)
}

// Sender is the outbound endpoint. It writes encoded messages to the
// peer's receive port.
type Sender struct {
	log     *slog.Logger
	cfg     SenderConfig
	limiter *rate.Limiter

	mu    sync.Mutex
	state EndpointState
	conn  net.Conn

	// writeMu serializes writes; mu is never held across one.
	writeMu sync.Mutex

	closeOnce sync.Once
	wg        sync.WaitGroup

	sent atomic.Int64
}

// NewSender creates an unconnected sender.
func NewSender(log *slog.Logger, cfg SenderConfig) *Sender {
	s := &Sender{
		log: log.With("component", "sender", "network", cfg.Network, "addr", cfg.Addr),
		cfg: cfg,
	}

	if cfg.Rate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), max(cfg.Burst, 1))
	}

	return s
}

// Connect dials the peer. A failed dial is returned as *ConnectError and
// leaves the sender unconnected.
func (s *Sender) Connect(ctx context.Context) error {
	s.mu.Lock()

	switch s.state {
	case EndpointClosed:
		s.mu.Unlock()

		return errors.ErrClosed
	case EndpointUnconnected:
	default:
		s.mu.Unlock()

		return errors.ErrAlreadyStarted
	}

	s.state = EndpointConnecting
	s.mu.Unlock()

	s.log.Debug("Connecting to peer", "timeout", s.cfg.ConnectTimeout)

	dialer := net.Dialer{Timeout: s.cfg.ConnectTimeout}

	conn, err := dialer.DialContext(ctx, s.cfg.Network, s.cfg.Addr)
	if err != nil {
		s.mu.Lock()
		if s.state == EndpointConnecting {
			s.state = EndpointUnconnected
		}
		s.mu.Unlock()

		s.log.Warn("Connect failed", "error", err)

		return &errors.ConnectError{Addr: s.cfg.Addr, Err: err}
	}

	s.mu.Lock()
	if s.state == EndpointClosed {
		s.mu.Unlock()
		_ = conn.Close()

		return errors.ErrClosed
	}

	s.conn = conn
	s.state = EndpointConnected
	s.mu.Unlock()

	if isStream(s.cfg.Network) {
		s.wg.Go(func() { s.watch(conn) })
	}

	s.log.Info("Connected to peer", "local_addr", conn.LocalAddr().String())

	return nil
}

// watch reads the outbound stream until it closes. Pd never writes on this
// connection, so a read returning means the peer hung up.
func (s *Sender) watch(conn net.Conn) {
	_, err := io.Copy(io.Discard, conn)

	s.mu.Lock()
	closing := s.state == EndpointClosed
	s.mu.Unlock()

	if closing {
		return
	}

	if err == nil {
		err = io.EOF
	}

	s.log.Info("Outbound connection closed by peer", "error", err)

	if s.cfg.OnClosed != nil {
		s.cfg.OnClosed(err)
	}
}

// Send encodes and writes one message.
//
// Send returns ErrNotConnected before Connect succeeds and ErrClosed after
// Close. It is safe for concurrent use; writes never interleave.
func (s *Sender) Send(ctx context.Context, selector string, atoms ...fudi.Atom) error {
	return s.SendMessage(ctx, fudi.NewMessage(selector, atoms...))
}

// SendMessage is Send for an already built message.
func (s *Sender) SendMessage(ctx context.Context, msg fudi.Message) error {
	line, err := fudi.Encode(msg)
	if err != nil {
		return err
	}

	if err := s.checkConnected(); err != nil {
		return err
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	conn := s.conn
	err = s.connectedLocked()
	s.mu.Unlock()

	if err != nil {
		return err
	}

	if err := writeLine(ctx, conn, line, s.cfg.WriteTimeout); err != nil {
		s.log.Warn("Send failed", "selector", msg.Selector, "error", err)

		return err
	}

	s.sent.Add(1)
	s.log.Debug("Sent message", "selector", msg.Selector, "atoms", len(msg.Atoms))

	return nil
}

// Sent returns the number of messages written.
func (s *Sender) Sent() int64 {
	return s.sent.Load()
}

// State returns the endpoint state.
func (s *Sender) State() EndpointState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Close closes the connection. It's safe to call Close multiple times.
func (s *Sender) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = EndpointClosed
		conn := s.conn
		s.mu.Unlock()

		if conn != nil {
			if err := conn.Close(); err != nil && !stderrors.Is(err, net.ErrClosed) {
				closeErr = err
			}
		}

		s.wg.Wait()
		s.log.Debug("Sender closed")
	})

	return closeErr
}

func (s *Sender) checkConnected() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.connectedLocked()
}

func (s *Sender) connectedLocked() error {
	switch s.state {
	case EndpointConnected:
		return nil
	case EndpointClosed:
		return errors.ErrClosed
	default:
		return errors.ErrNotConnected
	}
}

func isStream(network string) bool {
	return strings.HasPrefix(network, "tcp")
}
