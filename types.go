package purity

import (
	"github.com/wagiedev/purity-go/internal/config"
	"github.com/wagiedev/purity-go/internal/fudi"
	"github.com/wagiedev/purity-go/internal/hook"
	"github.com/wagiedev/purity-go/internal/protocol"
)

// Re-export types from internal packages

// ===== Options and Configuration =====

// Options configures a client and, optionally, the Pd process it launches.
type Options = config.Options

// Launcher starts and stops the Pd process a client talks to.
type Launcher = config.Launcher

// ===== Messages =====

// Atom is one value of a FUDI message: an integer, float or string.
type Atom = fudi.Atom

// Kind is the type of an Atom.
type Kind = fudi.Kind

const (
	// KindInt is an integer atom.
	KindInt = fudi.KindInt
	// KindFloat is a floating-point atom.
	KindFloat = fudi.KindFloat
	// KindString is a symbol atom.
	KindString = fudi.KindString
)

// Message is a selector followed by atoms, one FUDI line.
type Message = fudi.Message

// Int returns an integer atom.
func Int(v int64) Atom { return fudi.Int(v) }

// Float returns a float atom.
func Float(v float64) Atom { return fudi.Float(v) }

// String returns a symbol atom.
func String(v string) Atom { return fudi.String(v) }

// Atoms converts Go values (integers, floats, strings) to atoms.
func Atoms(values ...any) ([]Atom, error) { return fudi.FromValues(values...) }

// NewMessage builds a message from a selector and atoms.
func NewMessage(selector string, atoms ...Atom) Message {
	return fudi.NewMessage(selector, atoms...)
}

// Encode renders msg as a terminated FUDI line.
func Encode(msg Message) ([]byte, error) { return fudi.Encode(msg) }

// Decode parses one FUDI line, with or without its terminator.
func Decode(line []byte) (Message, error) { return fudi.Decode(line) }

// ===== Session =====

// State is the handshake state of a session.
type State = protocol.State

const (
	StateIdle              = protocol.StateIdle
	StateListenStarted     = protocol.StateListenStarted
	StateConnecting        = protocol.StateConnecting
	StateAwaitingPeerReady = protocol.StateAwaitingPeerReady
	StateReady             = protocol.StateReady
	StateClosed            = protocol.StateClosed
	StateFailed            = protocol.StateFailed
)

// Stats is a snapshot of session counters.
type Stats = protocol.Stats

// Handler processes inbound messages for one selector.
type Handler = protocol.Handler

// HandlerFunc adapts a function to Handler.
type HandlerFunc = protocol.HandlerFunc

// Conn is the inbound connection a message arrived on. Handlers may reply
// on it with Send.
type Conn = protocol.Conn

// Handshake selectors exchanged with the purity patch.
const (
	SelectorPing          = protocol.SelectorPing
	SelectorPong          = protocol.SelectorPong
	SelectorConfirm       = protocol.SelectorConfirm
	SelectorConnected     = protocol.SelectorConnected
	SelectorEnableConfirm = protocol.SelectorEnableConfirm
)

// ===== Hooks =====

// HookEvent is the type of session event a hook observes.
type HookEvent = hook.Event

const (
	// HookEventStateChange fires after every session state transition.
	HookEventStateChange = hook.EventStateChange
	// HookEventUnknownSelector fires for inbound messages without a handler.
	HookEventUnknownSelector = hook.EventUnknownSelector
	// HookEventHandlerError fires when a handler fails or panics.
	HookEventHandlerError = hook.EventHandlerError
	// HookEventConnClosed fires when an inbound connection ends.
	HookEventConnClosed = hook.EventConnClosed
)

// HookInput is the interface for all hook input types.
type HookInput = hook.Input

// HookCallback observes one session event.
type HookCallback = hook.Callback

// StateChangeInput is the input for HookEventStateChange.
type StateChangeInput = hook.StateChangeInput

// UnknownSelectorInput is the input for HookEventUnknownSelector.
type UnknownSelectorInput = hook.UnknownSelectorInput

// HandlerErrorInput is the input for HookEventHandlerError.
type HandlerErrorInput = hook.HandlerErrorInput

// ConnClosedInput is the input for HookEventConnClosed.
type ConnClosedInput = hook.ConnClosedInput
