// Package event provides a pub/sub event bus built on watermill's
// gochannel transport. Buses are constructed per service instance, not
// shared through a package global, so parallel tests never cross wires.
package event

import (
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Type identifies the kind of event.
type Type string

const (
	SessionUpdated    Type = "session.updated"
	FieldAnalyzing    Type = "field.analyzing"
	FieldApproved     Type = "field.approved"
	FieldNeedsRework  Type = "field.needs_revision"
	SessionComplete   Type = "session.complete"
	CheckpointAdvised Type = "checkpoint.advised"
	StorageWarning    Type = "storage.warning"
)

// Event is one published occurrence.
type Event struct {
	Type Type `json:"type"`
	Data any  `json:"data"`
}

// Subscriber receives published events.
type Subscriber func(event Event)

type subscriberEntry struct {
	id uint64
	fn Subscriber
}

// Bus routes events to subscribers. Direct dispatch keeps type
// information; the watermill channel underneath exists for buffering
// and future middleware.
type Bus struct {
	mu sync.RWMutex

	pubsub *gochannel.GoChannel

	subscribers map[Type][]subscriberEntry
	global      []subscriberEntry

	nextID uint64
	closed bool
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64, Persistent: false},
			watermill.NopLogger{},
		),
		subscribers: make(map[Type][]subscriberEntry),
	}
}

// Subscribe registers fn for one event type and returns an unsubscribe
// function.
func (b *Bus) Subscribe(t Type, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}
	id := atomic.AddUint64(&b.nextID, 1)
	b.subscribers[t] = append(b.subscribers[t], subscriberEntry{id: id, fn: fn})
	return func() { b.unsubscribe(t, id) }
}

// SubscribeAll registers fn for every event type.
func (b *Bus) SubscribeAll(fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}
	id := atomic.AddUint64(&b.nextID, 1)
	b.global = append(b.global, subscriberEntry{id: id, fn: fn})
	return func() { b.unsubscribeGlobal(id) }
}

// Publish delivers the event synchronously to all matching subscribers.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	entries := make([]subscriberEntry, 0, len(b.subscribers[e.Type])+len(b.global))
	entries = append(entries, b.subscribers[e.Type]...)
	entries = append(entries, b.global...)
	b.mu.RUnlock()

	for _, entry := range entries {
		entry.fn(e)
	}
}

// Close shuts the bus down; further Subscribe calls are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.pubsub.Close()
	b.subscribers = make(map[Type][]subscriberEntry)
	b.global = nil
}

func (b *Bus) unsubscribe(t Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.subscribers[t]
	for i, entry := range entries {
		if entry.id == id {
			b.subscribers[t] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

func (b *Bus) unsubscribeGlobal(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, entry := range b.global {
		if entry.id == id {
			b.global = append(b.global[:i], b.global[i+1:]...)
			return
		}
	}
}
