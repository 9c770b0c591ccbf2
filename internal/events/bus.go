package events

import (
	"fmt"
	"sync"

	"creator-market-sim/internal/metrics"
	"go.uber.org/zap"
)

// Handler receives events synchronously on the emitting goroutine.
// Handlers must not block.
type Handler func(Event)

// Subscription identifies one registered handler. Pass it to Off to unregister.
type Subscription struct {
	typ Type
	id  uint64
}

type entry struct {
	id uint64
	fn Handler
}

// Bus is a typed publish/subscribe channel. Delivery is synchronous and follows
// registration order; a panicking handler is isolated from the others.
type Bus struct {
	logger  *zap.Logger
	metrics *metrics.Recorder

	mu       sync.RWMutex
	nextID   uint64
	handlers map[Type][]entry
}

// NewBus creates an empty bus.
func NewBus(logger *zap.Logger, rec *metrics.Recorder) *Bus {
	return &Bus{
		logger:   logger.Named("bus"),
		metrics:  rec,
		handlers: make(map[Type][]entry),
	}
}

// On registers fn for events of type t.
func (b *Bus) On(t Type, fn Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[t] = append(b.handlers[t], entry{id: b.nextID, fn: fn})
	return Subscription{typ: t, id: b.nextID}
}

// Off removes exactly the handler registered under sub. Unknown subscriptions are ignored.
func (b *Bus) Off(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.handlers[sub.typ]
	for i, e := range list {
		if e.id == sub.id {
			// copy so in-flight emits keep their snapshot intact
			next := make([]entry, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			b.handlers[sub.typ] = next
			return
		}
	}
}

// Emit delivers payload to every handler of type t and returns the number of handlers
// that failed.
func (b *Bus) Emit(t Type, payload any) int {
	b.mu.RLock()
	list := b.handlers[t]
	b.mu.RUnlock()

	b.metrics.RecordEvent(string(t))
	ev := Event{Type: t, Payload: payload}
	failed := 0
	for _, e := range list {
		if err := b.deliver(e.fn, ev); err != nil {
			failed++
			b.metrics.RecordHandlerPanic(string(t))
			b.logger.Error("Event handler failed", zap.String("event", string(t)), zap.Error(err))
		}
	}
	return failed
}

// HandlerCount returns the number of handlers registered for t.
func (b *Bus) HandlerCount(t Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[t])
}

func (b *Bus) deliver(fn Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	fn(ev)
	return nil
}
