package errors

import (
	"errors"
	"fmt"
)

// PurityError is the base interface for all typed purity errors.
type PurityError interface {
	error
	IsPurityError() bool
}

// Compile-time verification that all error types implement PurityError.
var (
	_ PurityError = (*ConnectError)(nil)
	_ PurityError = (*ListenError)(nil)
	_ PurityError = (*HandlerError)(nil)
	_ PurityError = (*PatchError)(nil)
	_ PurityError = (*PdNotFoundError)(nil)
	_ PurityError = (*ProcessError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrSkip indicates a decoded line carried no tokens. It is benign:
	// callers skip the line and keep reading.
	ErrSkip = errors.New("blank message")

	// ErrEmptySelector indicates an attempt to encode a message without a selector.
	ErrEmptySelector = errors.New("empty selector")

	// ErrInvalidAtom indicates an atom or selector containing a FUDI delimiter
	// (';', '\r' or '\n') that would corrupt framing.
	ErrInvalidAtom = errors.New("atom contains a message delimiter")

	// ErrInvalidHandler indicates a registration with a nil handler or empty selector.
	ErrInvalidHandler = errors.New("invalid handler")

	// ErrRegistryFrozen indicates a registration after the endpoint began accepting.
	ErrRegistryFrozen = errors.New("registry frozen: endpoint already accepting")

	// ErrReservedSelector indicates an application handler for a handshake selector.
	ErrReservedSelector = errors.New("selector is reserved for the handshake")

	// ErrUnknownSelector indicates a received message with no registered handler.
	// Dispatch logs it and continues.
	ErrUnknownSelector = errors.New("unknown selector")

	// ErrNotConnected indicates an endpoint operation before the connection completed.
	ErrNotConnected = errors.New("endpoint not connected")

	// ErrAlreadyStarted indicates a second Start on an endpoint or session.
	ErrAlreadyStarted = errors.New("already started")

	// ErrClosed indicates an operation on a closed endpoint or session.
	ErrClosed = errors.New("closed")

	// ErrNotReady indicates a guarded send before the peer signalled readiness.
	ErrNotReady = errors.New("session not ready")

	// ErrSessionFailed indicates an operation on a session in the Failed state.
	ErrSessionFailed = errors.New("session failed")

	// ErrHandshakeTimeout indicates the peer never sent __connected__ in time.
	ErrHandshakeTimeout = errors.New("handshake timeout")

	// ErrPongTimeout indicates a __ping__ was not answered in time.
	ErrPongTimeout = errors.New("pong timeout")
)

// ConnectError indicates the outbound connection to the peer failed.
// The session treats it as "peer control application unreachable".
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// IsPurityError implements PurityError.
func (e *ConnectError) IsPurityError() bool { return true }

// ListenError indicates the inbound listener could not bind.
type ListenError struct {
	Addr string
	Err  error
}

func (e *ListenError) Error() string {
	return fmt.Sprintf("listen on %s: %v", e.Addr, e.Err)
}

func (e *ListenError) Unwrap() error {
	return e.Err
}

// IsPurityError implements PurityError.
func (e *ListenError) IsPurityError() bool { return true }

// HandlerError indicates a registered handler failed while dispatching a message.
// It never escapes the dispatch loop; it is logged and dispatch continues.
type HandlerError struct {
	Selector string
	Err      error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler for %q failed: %v", e.Selector, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// IsPurityError implements PurityError.
func (e *HandlerError) IsPurityError() bool { return true }

// PatchError indicates a patch stopped at a failing message.
// Sent messages are not rolled back.
type PatchError struct {
	// Index is the zero-based position of the failing message.
	Index int
	// Sent is the number of messages delivered before the failure.
	Sent     int
	Selector string
	Err      error
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("patch failed at message %d (%q) after %d sent: %v",
		e.Index, e.Selector, e.Sent, e.Err)
}

func (e *PatchError) Unwrap() error {
	return e.Err
}

// IsPurityError implements PurityError.
func (e *PatchError) IsPurityError() bool { return true }

// PdNotFoundError indicates the Pure Data binary was not found.
type PdNotFoundError struct {
	SearchedPaths []string
}

func (e *PdNotFoundError) Error() string {
	return fmt.Sprintf("pd binary not found in: %v", e.SearchedPaths)
}

// IsPurityError implements PurityError.
func (e *PdNotFoundError) IsPurityError() bool { return true }

// ProcessError indicates the launched Pure Data process failed.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pd process failed (exit %d): %v", e.ExitCode, e.Err)
	}

	return fmt.Sprintf("pd process failed (exit %d): %s", e.ExitCode, e.Stderr)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsPurityError implements PurityError.
func (e *ProcessError) IsPurityError() bool { return true }
