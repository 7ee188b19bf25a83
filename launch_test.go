package purity

import (
	"context"
	stderrors "errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubLauncher records its lifecycle; the process it "starts" is the
// fakePd already listening.
type stubLauncher struct {
	mu      sync.Mutex
	started bool
	closed  bool
	once    sync.Once
	done    chan struct{}
}

var _ Launcher = (*stubLauncher)(nil)

func (l *stubLauncher) doneCh() chan struct{} {
	l.once.Do(func() { l.done = make(chan struct{}) })

	return l.done
}

func (l *stubLauncher) Start(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.started = true

	return nil
}

func (l *stubLauncher) Pid() int { return 1 }

func (l *stubLauncher) Done() <-chan struct{} { return l.doneCh() }

func (l *stubLauncher) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.closed {
		l.closed = true
		close(l.doneCh())
	}

	return nil
}

func TestLaunch(t *testing.T) {
	pd := newFakePd(t)
	l := &stubLauncher{}

	client, err := Launch(t.Context(), append(pd.options(), WithLauncher(l))...)
	require.NoError(t, err)

	assert.True(t, l.started)
	assert.Equal(t, StateReady, client.State())

	require.NoError(t, client.Send(t.Context(), "pd", String("dsp"), Int(1)))
	assert.Equal(t, "pd dsp 1", pd.expect().String())

	require.NoError(t, client.Close())
	assert.True(t, l.closed, "Close should stop the launched process")
}

func TestLaunch_PdNeverListens(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	l := &stubLauncher{}

	client, err := Launch(t.Context(),
		WithLogger(NopLogger()),
		WithListenHost("127.0.0.1"),
		WithReceivePort(0),
		WithHost("127.0.0.1"),
		WithSendPort(port),
		WithLaunchTimeout(300*time.Millisecond),
		WithLauncher(l),
	)
	require.Error(t, err)
	assert.Nil(t, client)

	_, ok := stderrors.AsType[*ConnectError](err)
	assert.True(t, ok, "expected *ConnectError, got %v", err)
	assert.True(t, l.closed)
}
