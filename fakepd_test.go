package purity

import (
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/purity-go/internal/fudi"
)

// fakePd accepts the client's outbound connection, records what arrives
// and announces readiness on a connection back to the client's listener.
type fakePd struct {
	t           *testing.T
	ln          net.Listener
	receivePort int
	messages    chan Message
	inbound     chan net.Conn

	mu    sync.Mutex
	conns []net.Conn
}

func newFakePd(t *testing.T) *fakePd {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	// Reserve a port for the client's listener.
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	receivePort := probe.Addr().(*net.TCPAddr).Port
	require.NoError(t, probe.Close())

	pd := &fakePd{
		t:           t,
		ln:          ln,
		receivePort: receivePort,
		messages:    make(chan Message, 64),
		inbound:     make(chan net.Conn, 1),
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

		p.track(conn)

		go func() {
			scanner := fudi.NewScanner(conn)
			for scanner.Scan() {
				if msg, err := fudi.Decode(scanner.Bytes()); err == nil {
					p.messages <- msg
				}
			}
		}()

		back, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(p.receivePort)))
		if err != nil {
			continue
		}

		p.track(back)

		if _, err := back.Write([]byte("__connected__ ;\n")); err != nil {
			continue
		}

		select {
		case p.inbound <- back:
		default:
		}
	}
}

func (p *fakePd) track(conn net.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.conns = append(p.conns, conn)
}

func (p *fakePd) close() {
	_ = p.ln.Close()

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, c := range p.conns {
		_ = c.Close()
	}
}

func (p *fakePd) options() []Option {
	return []Option{
		WithLogger(NopLogger()),
		WithListenHost("127.0.0.1"),
		WithReceivePort(p.receivePort),
		WithHost("127.0.0.1"),
		WithSendPort(p.ln.Addr().(*net.TCPAddr).Port),
		WithConnectTimeout(time.Second),
		WithHandshakeTimeout(2 * time.Second),
		WithPongTimeout(time.Second),
	}
}

func (p *fakePd) expect() Message {
	p.t.Helper()

	select {
	case msg := <-p.messages:
		return msg
	case <-time.After(2 * time.Second):
		p.t.Fatal("timed out waiting for message")

		return Message{}
	}
}

// startedClient returns a client that completed the handshake with pd.
func startedClient(t *testing.T, pd *fakePd, opts ...Option) Client {
	t.Helper()

	client := NewClient()
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Start(t.Context(), append(pd.options(), opts...)...))

	return client
}
