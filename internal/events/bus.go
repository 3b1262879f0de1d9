package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for in-process event broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(DrainStartedEvent{...})
func (b *Bus) Publish(ev Event) {
	// The generic event.Publish needs the concrete type, hence the switch.
	switch e := ev.(type) {
	case DrainStartedEvent:
		event.Publish(b.dispatcher, e)
	case DrainChunkEvent:
		event.Publish(b.dispatcher, e)
	case DrainTerminatedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes a typed handler function; the parameter type decides
// which events it receives. Returns an unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e DrainTerminatedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(DrainStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DrainChunkEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DrainTerminatedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Unknown handler type gets a no-op unsubscribe.
		return func() {}
	}
}
