package core

import (
	"sync"

	"github.com/google/uuid"
)

type EventPacket struct {
	Event   IEvent
	Uid     string // Unique identifier for tracking the event packet.
	Emitter string // Identifier of the component that emitted the event.
}

func NewEventPacket(event IEvent, emitter string) *EventPacket {
	return &EventPacket{
		Event:   event,
		Uid:     uuid.New().String(),
		Emitter: emitter,
	}
}

// EventBus fans emitted events out to subscribers. Components publish typed
// events (message appends, phase changes, capture state) and the rendering
// layer subscribes instead of observing component internals.
type EventBus struct {
	mu   sync.RWMutex
	subs []func(*EventPacket)
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers a handler invoked synchronously for every published packet.
func (b *EventBus) Subscribe(fn func(*EventPacket)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Publish delivers the event to all subscribers in subscription order.
func (b *EventBus) Publish(event IEvent, emitter string) {
	packet := NewEventPacket(event, emitter)
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(packet)
	}
}
