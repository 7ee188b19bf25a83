package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectError(t *testing.T) {
	root := errors.New("connection refused")
	err := &ConnectError{Addr: "localhost:17777", Err: root}

	require.Equal(t, "connect to localhost:17777: connection refused", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsPurityError())
}

func TestListenError(t *testing.T) {
	root := errors.New("address already in use")
	err := &ListenError{Addr: ":15555", Err: root}

	require.Equal(t, "listen on :15555: address already in use", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsPurityError())
}

func TestHandlerError(t *testing.T) {
	root := errors.New("boom")
	err := &HandlerError{Selector: "bang", Err: root}

	require.Equal(t, `handler for "bang" failed: boom`, err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsPurityError())
}

func TestPatchError(t *testing.T) {
	err := &PatchError{Index: 1, Sent: 1, Selector: "obj", Err: ErrNotReady}

	require.Equal(t, `patch failed at message 1 ("obj") after 1 sent: session not ready`, err.Error())
	require.ErrorIs(t, err, ErrNotReady)
	require.True(t, err.IsPurityError())
}

func TestPdNotFoundError(t *testing.T) {
	err := &PdNotFoundError{SearchedPaths: []string{"$PATH", "/usr/bin/pd"}}

	require.Equal(t, "pd binary not found in: [$PATH /usr/bin/pd]", err.Error())
	require.True(t, err.IsPurityError())
}

func TestProcessError_WithUnderlyingError(t *testing.T) {
	root := errors.New("signal: killed")
	err := &ProcessError{ExitCode: -1, Stderr: "ignored when Err is set", Err: root}

	require.Equal(t, "pd process failed (exit -1): signal: killed", err.Error())
	require.ErrorIs(t, err, root)
}

func TestProcessError_WithStderrOnly(t *testing.T) {
	err := &ProcessError{ExitCode: 1, Stderr: "audio I/O stuck"}

	require.Equal(t, "pd process failed (exit 1): audio I/O stuck", err.Error())
	require.NoError(t, err.Unwrap())
}

func TestErrorsAsType(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), &ConnectError{Addr: "x:1", Err: ErrClosed})

	connErr, ok := errors.AsType[*ConnectError](wrapped)
	require.True(t, ok)
	require.Equal(t, "x:1", connErr.Addr)
	require.ErrorIs(t, wrapped, ErrClosed)
}
