package event

import (
	"sync"

	"github.com/erp/quotefinance/internal/domain/shared"
)

// subscription is one handler and the event types it receives. A nil type
// set means every type.
type subscription struct {
	handler shared.EventHandler
	types   map[string]struct{}
}

func (s *subscription) accepts(eventType string) bool {
	if s.types == nil {
		return true
	}
	_, ok := s.types[eventType]
	return ok
}

// HandlerRegistry keeps subscriptions in registration order, so a
// notification handler registered before the metrics handler always sees
// an event first. Registering a handler twice widens its type set instead
// of delivering events to it twice.
type HandlerRegistry struct {
	mu   sync.RWMutex
	subs []*subscription
}

// NewHandlerRegistry creates an empty registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{}
}

// Register subscribes handler to eventTypes, or to all events when none are given
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub := r.find(handler)
	if sub == nil {
		sub = &subscription{handler: handler, types: map[string]struct{}{}}
		r.subs = append(r.subs, sub)
	}
	if len(eventTypes) == 0 {
		sub.types = nil
		return
	}
	if sub.types == nil {
		return
	}
	for _, t := range eventTypes {
		sub.types[t] = struct{}{}
	}
}

// Unregister removes the handler entirely
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.subs[:0]
	for _, s := range r.subs {
		if s.handler != handler {
			kept = append(kept, s)
		}
	}
	r.subs = kept
}

// GetHandlers returns the handlers for eventType in registration order
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []shared.EventHandler
	for _, s := range r.subs {
		if s.accepts(eventType) {
			out = append(out, s.handler)
		}
	}
	return out
}

// Count returns the number of registered handlers
func (r *HandlerRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

func (r *HandlerRegistry) find(handler shared.EventHandler) *subscription {
	for _, s := range r.subs {
		if s.handler == handler {
			return s
		}
	}
	return nil
}
