// Package hook provides callbacks for observing session events.
package hook

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Event represents the type of event that triggers a hook.
type Event string

const (
	// EventStateChange is triggered after every session state transition.
	EventStateChange Event = "StateChange"
	// EventUnknownSelector is triggered when an inbound message has no handler.
	EventUnknownSelector Event = "UnknownSelector"
	// EventHandlerError is triggered when a handler fails or panics.
	EventHandlerError Event = "HandlerError"
	// EventConnClosed is triggered when an inbound connection ends.
	EventConnClosed Event = "ConnClosed"
)

// Input is the interface for all hook input types.
type Input interface {
	GetHookEventName() Event
	GetSessionID() string
}

// Compile-time verification that all hook input types implement Input.
var (
	_ Input = (*StateChangeInput)(nil)
	_ Input = (*UnknownSelectorInput)(nil)
	_ Input = (*HandlerErrorInput)(nil)
	_ Input = (*ConnClosedInput)(nil)
)

// BaseInput contains common fields for all hook inputs.
type BaseInput struct {
	SessionID string `json:"session_id"`
}

// GetSessionID implements Input.
func (b *BaseInput) GetSessionID() string { return b.SessionID }

// StateChangeInput is the input for StateChange hooks.
type StateChangeInput struct {
	BaseInput

	From string `json:"from"`
	To   string `json:"to"`

	// Cause is set when the session entered Failed, or Closed because the
	// peer went away.
	Cause error `json:"-"`
}

// GetHookEventName implements Input.
func (i *StateChangeInput) GetHookEventName() Event { return EventStateChange }

// UnknownSelectorInput is the input for UnknownSelector hooks.
type UnknownSelectorInput struct {
	BaseInput

	ConnID   string `json:"conn_id"`
	Selector string `json:"selector"`
	Atoms    int    `json:"atoms"`
}

// GetHookEventName implements Input.
func (i *UnknownSelectorInput) GetHookEventName() Event { return EventUnknownSelector }

// HandlerErrorInput is the input for HandlerError hooks.
type HandlerErrorInput struct {
	BaseInput

	ConnID   string `json:"conn_id"`
	Selector string `json:"selector"`
	Err      error  `json:"-"`
}

// GetHookEventName implements Input.
func (i *HandlerErrorInput) GetHookEventName() Event { return EventHandlerError }

// ConnClosedInput is the input for ConnClosed hooks.
type ConnClosedInput struct {
	BaseInput

	ConnID string `json:"conn_id"`
}

// GetHookEventName implements Input.
func (i *ConnClosedInput) GetHookEventName() Event { return EventConnClosed }

// Callback observes one event. Callbacks run one at a time on a dedicated
// goroutine, in emission order, and must not close the session.
type Callback func(ctx context.Context, input Input)

// Hooks maps events to their callbacks.
type Hooks map[Event][]Callback

// Dispatcher delivers emitted events to hooks without blocking the emitter.
type Dispatcher struct {
	log   *slog.Logger
	hooks Hooks

	mu      sync.Mutex
	queue   []Input
	running bool
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

// NewDispatcher creates a dispatcher for hooks. A nil or empty Hooks makes
// Emit a no-op.
func NewDispatcher(log *slog.Logger, hooks Hooks) *Dispatcher {
	return &Dispatcher{
		log:   log.With("component", "hooks"),
		hooks: hooks,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Start begins delivering queued events.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running || d.closed || len(d.hooks) == 0 {
		return
	}

	d.running = true

	go d.run()
}

// Emit queues input for its event's callbacks.
// Events emitted after Close are dropped.
func (d *Dispatcher) Emit(input Input) {
	if len(d.hooks[input.GetHookEventName()]) == 0 {
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()

		return
	}

	d.queue = append(d.queue, input)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Close delivers what is queued, then stops.
// It's safe to call Close multiple times. It must not be called from a Callback.
func (d *Dispatcher) Close() {
	d.mu.Lock()

	if d.closed {
		running := d.running
		d.mu.Unlock()

		if running {
			<-d.done
		}

		return
	}

	d.closed = true
	running := d.running
	pending := d.queue
	if !running {
		d.queue = nil
	}
	d.mu.Unlock()

	if !running {
		// Never started: deliver inline.
		for _, input := range pending {
			d.deliver(input)
		}

		return
	}

	select {
	case d.wake <- struct{}{}:
	default:
	}

	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.mu.Unlock()
			<-d.wake
			d.mu.Lock()
		}

		batch := d.queue
		d.queue = nil
		closed := d.closed
		d.mu.Unlock()

		for _, input := range batch {
			d.deliver(input)
		}

		if closed && len(batch) == 0 {
			return
		}
	}
}

func (d *Dispatcher) deliver(input Input) {
	for _, cb := range d.hooks[input.GetHookEventName()] {
		if err := call(cb, input); err != nil {
			d.log.Warn("Hook callback failed", "event", input.GetHookEventName(), "error", err)
		}
	}
}

func call(cb Callback, input Input) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	cb(context.Background(), input)

	return nil
}
