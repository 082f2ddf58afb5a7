package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handler receives events. Handlers run on their own goroutine and must
// not block indefinitely.
type Handler func(Event)

// Emitter publishes identity events.
type Emitter interface {
	Emit(typ EventType, data any)
}

// NoopEmitter discards all events. Useful for tests and tools that do
// not care about downstream reactions.
type NoopEmitter struct{}

func (NoopEmitter) Emit(EventType, any) {}

// Bus is a minimal in-process pub/sub fanout.
//
// Delivery is asynchronous and fire-and-forget: Emit returns before
// handlers run, and a panicking handler is recovered and logged rather
// than taking down the publisher.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	all      []Handler
	logger   *slog.Logger
}

// NewBus creates an event bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for one event type.
func (b *Bus) Subscribe(typ EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[typ] = append(b.handlers[typ], h)
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// Emit publishes an event to all matching handlers.
func (b *Bus) Emit(typ EventType, data any) {
	event := Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Timestamp: time.Now(),
		Data:      data,
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[typ])+len(b.all))
	handlers = append(handlers, b.handlers[typ]...)
	handlers = append(handlers, b.all...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h := h
		go func() {
			defer func() {
				if r := recover(); r != nil && b.logger != nil {
					b.logger.Error("event handler panicked",
						"event_type", string(typ),
						"event_id", event.ID,
						"panic", r)
				}
			}()
			h(event)
		}()
	}
}
