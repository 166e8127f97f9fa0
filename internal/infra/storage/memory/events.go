package memory

import (
	"sync"

	"rentride/internal/app/policies"
	"rentride/internal/domain/booking"
)

// EventBus is an in-process EventChannel. Publish delivers synchronously.
type EventBus struct {
	mu       sync.RWMutex
	next     int
	handlers map[string]map[int]policies.UpdateHandler
	hooks    map[int]func()
}

func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[string]map[int]policies.UpdateHandler),
		hooks:    make(map[int]func()),
	}
}

func (b *EventBus) On(eventName string, handler policies.UpdateHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	id := b.next
	if b.handlers[eventName] == nil {
		b.handlers[eventName] = make(map[int]policies.UpdateHandler)
	}
	b.handlers[eventName][id] = handler
	return func() {
		b.mu.Lock()
		delete(b.handlers[eventName], id)
		b.mu.Unlock()
	}
}

func (b *EventBus) OnReconnect(hook func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	id := b.next
	b.hooks[id] = hook
	return func() {
		b.mu.Lock()
		delete(b.hooks, id)
		b.mu.Unlock()
	}
}

// Publish hands r to every handler of eventName. No scopes means the record
// is not restricted to any scope.
func (b *EventBus) Publish(eventName string, r booking.Record, scopes ...policies.Scope) {
	b.mu.RLock()
	handlers := make([]policies.UpdateHandler, 0, len(b.handlers[eventName]))
	for _, h := range b.handlers[eventName] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()
	for _, h := range handlers {
		h(r.Copy(), append([]policies.Scope(nil), scopes...))
	}
}

// Reconnect runs the reconnect hooks, as a real channel does after a gap.
func (b *EventBus) Reconnect() {
	b.mu.RLock()
	hooks := make([]func(), 0, len(b.hooks))
	for _, h := range b.hooks {
		hooks = append(hooks, h)
	}
	b.mu.RUnlock()
	for _, h := range hooks {
		h()
	}
}

var (
	_ policies.EventChannel = (*EventBus)(nil)
	_ policies.Reconnector  = (*EventBus)(nil)
)
