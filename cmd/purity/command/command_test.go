package command

import (
	"bytes"
	"log/slog"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/purity-go/internal/config"
	"github.com/wagiedev/purity-go/internal/fudi"
)

// fakePd accepts the outbound connection, answers __ping__ and announces
// readiness on a connection back to receivePort.
type fakePd struct {
	t           *testing.T
	ln          net.Listener
	receivePort int
	messages    chan fudi.Message

	mu    sync.Mutex
	conns []net.Conn
}

func newFakePd(t *testing.T) *fakePd {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	probe, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	pd := &fakePd{
		t:           t,
		ln:          ln,
		receivePort: probe.Addr().(*net.TCPAddr).Port,
		messages:    make(chan fudi.Message, 64),
	}
	require.NoError(t, probe.Close())

	go pd.acceptLoop()

	t.Cleanup(func() {
		_ = ln.Close()

		pd.mu.Lock()
		defer pd.mu.Unlock()

		for _, c := range pd.conns {
			_ = c.Close()
		}
	})

	return pd
}

func (p *fakePd) acceptLoop() {
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}

		back, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(p.receivePort)))
		if err != nil {
			_ = conn.Close()

			continue
		}

		p.mu.Lock()
		p.conns = append(p.conns, conn, back)
		p.mu.Unlock()

		go func() {
			scanner := fudi.NewScanner(conn)
			for scanner.Scan() {
				msg, err := fudi.Decode(scanner.Bytes())
				if err != nil {
					continue
				}

				if msg.Selector == "__ping__" {
					reply := fudi.NewMessage("__pong__", msg.Atoms...)
					if line, err := fudi.Encode(reply); err == nil {
						_, _ = back.Write(line)
					}

					continue
				}

				p.messages <- msg
			}
		}()

		_, _ = back.Write([]byte("__connected__ ;\n"))
	}
}

func (p *fakePd) flags() []string {
	return []string{
		"--env-file", filepath.Join(p.t.TempDir(), "missing.env"),
		"--host", "127.0.0.1",
		"--send-port", strconv.Itoa(p.ln.Addr().(*net.TCPAddr).Port),
		"--receive-port", strconv.Itoa(p.receivePort),
		"--handshake-timeout", "2s",
		"--log-level", "error",
	}
}

func (p *fakePd) expect() fudi.Message {
	p.t.Helper()

	select {
	case msg := <-p.messages:
		return msg
	case <-time.After(2 * time.Second):
		p.t.Fatal("timed out waiting for message")

		return fudi.Message{}
	}
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	err := cmd.ExecuteContext(t.Context())

	return out.String(), err
}

func TestSendCmd(t *testing.T) {
	pd := newFakePd(t)

	out, err := run(t, "", append([]string{"send"}, append(pd.flags(), "obj", "10", "10", "osc~", "440")...)...)
	require.NoError(t, err)

	assert.Contains(t, out, "sent: obj 10 10 osc~ 440")
	assert.Equal(t, fudi.NewMessage("obj", fudi.Int(10), fudi.Int(10), fudi.String("osc~"), fudi.Int(440)), pd.expect())
}

func TestSendCmd_RequiresSelector(t *testing.T) {
	_, err := run(t, "", "send")
	require.Error(t, err)
}

func TestApplyCmd_Stdin(t *testing.T) {
	pd := newFakePd(t)

	patch := "obj 10 10 osc~ 440;\nobj 10 50 dac~;\nconnect 0 0 1 0;\n"

	out, err := run(t, patch, append([]string{"apply"}, append(pd.flags(), "-")...)...)
	require.NoError(t, err)

	assert.Contains(t, out, "applied 3 messages")
	assert.Equal(t, "obj 10 10 osc~ 440", pd.expect().String())
	assert.Equal(t, "obj 10 50 dac~", pd.expect().String())
	assert.Equal(t, "connect 0 0 1 0", pd.expect().String())
}

func TestApplyCmd_MissingFile(t *testing.T) {
	_, err := run(t, "", "apply", filepath.Join(t.TempDir(), "nope.fudi"))
	require.ErrorContains(t, err, "open patch")
}

func TestPingCmd(t *testing.T) {
	pd := newFakePd(t)

	out, err := run(t, "", append([]string{"ping"}, append(pd.flags(), "-c", "2", "42")...)...)
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(out, "__pong__ 42 time="))
}

func TestOptions_FlagsOverrideEnv(t *testing.T) {
	t.Setenv(config.EnvSendPort, "4000")
	t.Setenv(config.EnvHost, "studio")

	flags := &rootFlags{}
	root := newRootCmd(flags)

	send, _, err := root.Find([]string{"send"})
	require.NoError(t, err)

	require.NoError(t, send.ParseFlags([]string{
		"--env-file", filepath.Join(t.TempDir(), "missing.env"),
		"--host", "pd.local",
		"--launch",
	}))

	opts, err := flags.options(send)
	require.NoError(t, err)

	assert.Equal(t, 4000, opts.SendPort, "env applies when the flag is unset")
	assert.Equal(t, "pd.local", opts.Host, "flag wins over env")
	assert.Equal(t, config.DefaultReceivePort, opts.ReceivePort)
	assert.True(t, opts.Launch)
	assert.NotNil(t, opts.PdStderr)
	assert.NotNil(t, opts.Logger)
}

func TestOptions_InvalidLogLevel(t *testing.T) {
	flags := &rootFlags{}
	root := newRootCmd(flags)

	require.NoError(t, root.ParseFlags([]string{
		"--env-file", filepath.Join(t.TempDir(), "missing.env"),
		"--log-level", "loud",
	}))

	_, err := flags.options(root)
	require.ErrorContains(t, err, "invalid log level")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseLevel("loud")
	require.Error(t, err)
}
