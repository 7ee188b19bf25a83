package protocol

import (
	"context"
	"slices"
	"sync"

	"github.com/wagiedev/purity-go/internal/errors"
	"github.com/wagiedev/purity-go/internal/fudi"
)

// Handler processes the atoms of one inbound message.
//
// Handlers registered on a Listener never run concurrently with each other.
// A returned error is logged as a HandlerError; it does not close the
// connection.
type Handler interface {
	HandleMessage(ctx context.Context, conn *Conn, atoms []fudi.Atom) error
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(ctx context.Context, conn *Conn, atoms []fudi.Atom) error

// HandleMessage calls f(ctx, conn, atoms).
func (f HandlerFunc) HandleMessage(ctx context.Context, conn *Conn, atoms []fudi.Atom) error {
	return f(ctx, conn, atoms)
}

// Registry maps selectors to handlers.
//
// A Registry is frozen once the listener owning it starts accepting
// connections; later registrations fail with ErrRegistryFrozen.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	frozen   bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler, 8),
	}
}

// Register binds a handler to a selector.
//
// Registering the same selector twice replaces the previous handler.
func (r *Registry) Register(selector string, handler Handler) error {
	if selector == "" || isNilHandler(handler) {
		return errors.ErrInvalidHandler
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return errors.ErrRegistryFrozen
	}

	r.handlers[selector] = handler

	return nil
}

// Lookup returns the handler bound to selector.
func (r *Registry) Lookup(selector string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[selector]

	return h, ok
}

// Freeze rejects further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.frozen
}

// Selectors returns the registered selectors in sorted order.
func (r *Registry) Selectors() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	selectors := make([]string, 0, len(r.handlers))
	for s := range r.handlers {
		selectors = append(selectors, s)
	}

	slices.Sort(selectors)

	return selectors
}

func isNilHandler(h Handler) bool {
	if h == nil {
		return true
	}

	if f, ok := h.(HandlerFunc); ok && f == nil {
		return true
	}

	return false
}
