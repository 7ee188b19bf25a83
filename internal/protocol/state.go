package protocol

import "fmt"

// State is the handshake state of a Session.
type State int32

const (
	// StateIdle is a session that has not been started.
	StateIdle State = iota
	// StateListenStarted means the inbound listener is accepting.
	StateListenStarted
	// StateConnecting means the outbound dial is in progress.
	StateConnecting
	// StateAwaitingPeerReady means both channels are up and the session
	// waits for __connected__.
	StateAwaitingPeerReady
	// StateReady means application messages may be sent.
	StateReady
	// StateClosed is terminal after Close or a peer disconnect.
	StateClosed
	// StateFailed is terminal after a startup failure or handshake timeout.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListenStarted:
		return "listen_started"
	case StateConnecting:
		return "connecting"
	case StateAwaitingPeerReady:
		return "awaiting_peer_ready"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateFailed
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
