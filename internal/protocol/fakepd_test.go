package protocol

import (
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/purity-go/internal/config"
	"github.com/wagiedev/purity-go/internal/fudi"
)

// fakePd stands in for a Pd patch: it accepts the session's outbound
// connection and records every message received on it, and it can dial
// the session's listener to play the [netsend] side.
type fakePd struct {
	t        *testing.T
	ln       net.Listener
	messages chan fudi.Message

	mu    sync.Mutex
	conns []net.Conn
}

func newFakePd(t *testing.T) *fakePd {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	pd := &fakePd{
		t:        t,
		ln:       ln,
		messages: make(chan fudi.Message, 64),
	}

	go pd.acceptLoop()

	t.Cleanup(pd.close)

	return pd
}

func (p *fakePd) acceptLoop() {
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}

		p.mu.Lock()
		p.conns = append(p.conns, conn)
		p.mu.Unlock()

		go func() {
			scanner := fudi.NewScanner(conn)
			for scanner.Scan() {
				msg, err := fudi.Decode(scanner.Bytes())
				if err != nil {
					continue
				}

				p.messages <- msg
			}
		}()
	}
}

func (p *fakePd) port() int {
	return p.ln.Addr().(*net.TCPAddr).Port
}

// waitOutbound blocks until the session's outbound connection was accepted.
func (p *fakePd) waitOutbound() {
	p.t.Helper()

	require.Eventually(p.t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()

		return len(p.conns) > 0
	}, 2*time.Second, 10*time.Millisecond)
}

// dropOutbound closes every connection the session opened to the fake.
func (p *fakePd) dropOutbound() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, c := range p.conns {
		_ = c.Close()
	}

	p.conns = nil
}

func (p *fakePd) close() {
	_ = p.ln.Close()
	p.dropOutbound()
}

// expect returns the next message the session sent.
func (p *fakePd) expect() fudi.Message {
	p.t.Helper()

	select {
	case msg := <-p.messages:
		return msg
	case <-time.After(2 * time.Second):
		p.t.Fatal("timed out waiting for message from session")

		return fudi.Message{}
	}
}

// expectNone asserts that the session sends nothing for a short while.
func (p *fakePd) expectNone() {
	p.t.Helper()

	select {
	case msg := <-p.messages:
		p.t.Fatalf("unexpected message from session: %s", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

// dial connects to the session's listener the way [netsend] does.
func (p *fakePd) dial(addr net.Addr) net.Conn {
	p.t.Helper()

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(p.t, err)

	p.t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func write(t *testing.T, conn net.Conn, text string) {
	t.Helper()

	_, err := conn.Write([]byte(text))
	require.NoError(t, err)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions(pd *fakePd) *config.Options {
	return &config.Options{
		ListenHost:       "127.0.0.1",
		ReceivePort:      0,
		Host:             "127.0.0.1",
		SendPort:         pd.port(),
		ConnectTimeout:   time.Second,
		HandshakeTimeout: 2 * time.Second,
		PongTimeout:      time.Second,
	}
}

// readySession returns a session that completed the handshake, plus the
// inbound connection that announced readiness.
func readySession(t *testing.T, pd *fakePd, setup ...func(s *Session)) (*Session, net.Conn) {
	t.Helper()

	s := NewSession(testLogger(), testOptions(pd))
	for _, fn := range setup {
		fn(s)
	}

	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Start(t.Context()))

	inbound := pd.dial(s.ReceiveAddr())
	write(t, inbound, "__connected__ ;\r\n")

	require.NoError(t, s.WaitReady(t.Context()))

	return s, inbound
}
