package queue

import (
	"context"
	"fmt"
	"sync"
)

// HandlerFunc processes one message. Returning an error wrapped by
// Permanent dead-letters the message; any other error schedules a retry
// until the attempt budget runs out.
type HandlerFunc func(ctx context.Context, msg Message) error

// Registry routes messages to handlers by kind. Registration happens at
// startup; dispatch is read-only after that.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Kind]HandlerFunc
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Kind]HandlerFunc)}
}

// Register binds a handler to a message kind. Registering the same kind
// twice panics: it is a wiring bug, not a runtime condition.
func (r *Registry) Register(kind Kind, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[kind]; exists {
		panic(fmt.Sprintf("queue: handler for %s registered twice", kind))
	}
	r.handlers[kind] = handler
}

// Handle dispatches the message to its kind's handler. Unknown kinds are
// permanent failures: retrying cannot make a handler appear.
func (r *Registry) Handle(ctx context.Context, msg Message) error {
	r.mu.RLock()
	handler, ok := r.handlers[msg.Kind]
	r.mu.RUnlock()

	if !ok {
		return Permanent(fmt.Errorf("no handler registered for message kind %q", msg.Kind))
	}
	return handler(ctx, msg)
}
