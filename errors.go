package purity

import "github.com/wagiedev/purity-go/internal/errors"

// Re-export error types from internal package

// ConnectError indicates the outbound connection to Pd failed.
type ConnectError = errors.ConnectError

// ListenError indicates the inbound listener could not bind.
type ListenError = errors.ListenError

// HandlerError indicates a registered handler failed while dispatching.
type HandlerError = errors.HandlerError

// PatchError indicates a patch stopped at a failing message.
type PatchError = errors.PatchError

// PdNotFoundError indicates the pd binary was not found.
type PdNotFoundError = errors.PdNotFoundError

// ProcessError indicates the launched pd process failed.
type ProcessError = errors.ProcessError

// PurityError is the base interface for all typed purity errors.
type PurityError = errors.PurityError

// Re-export sentinel errors from internal package.
var (
	// ErrEmptySelector indicates a message without a selector.
	ErrEmptySelector = errors.ErrEmptySelector

	// ErrInvalidAtom indicates an atom or selector containing a FUDI delimiter.
	ErrInvalidAtom = errors.ErrInvalidAtom

	// ErrInvalidHandler indicates a registration with a nil handler or empty selector.
	ErrInvalidHandler = errors.ErrInvalidHandler

	// ErrRegistryFrozen indicates a handler registration after Start.
	ErrRegistryFrozen = errors.ErrRegistryFrozen

	// ErrReservedSelector indicates a handler for a handshake selector.
	ErrReservedSelector = errors.ErrReservedSelector

	// ErrNotConnected indicates an operation before Start succeeded.
	ErrNotConnected = errors.ErrNotConnected

	// ErrAlreadyStarted indicates a second Start.
	ErrAlreadyStarted = errors.ErrAlreadyStarted

	// ErrClosed indicates the client has been closed and cannot be reused.
	ErrClosed = errors.ErrClosed

	// ErrNotReady indicates a send before Pd signalled readiness.
	ErrNotReady = errors.ErrNotReady

	// ErrSessionFailed indicates the session failed before or during the handshake.
	ErrSessionFailed = errors.ErrSessionFailed

	// ErrHandshakeTimeout indicates Pd never sent __connected__ in time.
	ErrHandshakeTimeout = errors.ErrHandshakeTimeout

	// ErrPongTimeout indicates a ping was not answered in time.
	ErrPongTimeout = errors.ErrPongTimeout
)
