// Package notify implements the in-process Notification Bus (C10): a
// synchronous pub/sub that fans node-enriched and queue-depth events out to
// SSE subscribers. Delivery happens inline on the emitting goroutine —
// there is no channel or worker pool here — so a subscriber that panics
// must not be allowed to take the publisher down with it (spec §4.10).
package notify

import (
	"sync"

	"github.com/nodecurio/curator/internal/logging"
)

// EventType names the two event families spec §4.10 defines.
type EventType string

const (
	EventEnrichmentComplete EventType = "enrichment_complete"
	EventQueueStatus        EventType = "queue_status"
)

// Listener receives one event. Implementations must not block for long —
// delivery is synchronous and a slow subscriber stalls every other
// subscriber and the publisher itself.
type Listener func(Event)

// Event is the envelope delivered to every listener; Payload holds one of
// EnrichmentComplete or QueueStatus depending on Type.
type Event struct {
	Type    EventType
	Payload any
}

// EnrichmentComplete is the payload for EventEnrichmentComplete.
type EnrichmentComplete struct {
	NodeID           string
	Success          bool
	HierarchyUpdated bool
	ErrorMessage     string
}

// QueueStatus is the payload for EventQueueStatus.
type QueueStatus struct {
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

type subscription struct {
	id       uint64
	eventTyp EventType // empty means "all types"
	listener Listener
}

// Bus is the notification bus. The zero value is not usable; use New.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
}

func New() *Bus {
	return &Bus{}
}

// Subscribe registers listener for every event type and returns an
// unsubscribe token.
func (b *Bus) Subscribe(listener Listener) uint64 {
	return b.subscribe("", listener)
}

// SubscribeType registers listener for only the given event type.
func (b *Bus) SubscribeType(typ EventType, listener Listener) uint64 {
	return b.subscribe(typ, listener)
}

func (b *Bus) subscribe(typ EventType, listener Listener) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, eventTyp: typ, listener: listener})
	return id
}

// Unsubscribe removes a listener registered with Subscribe/SubscribeType.
// Safe to call during emission (spec §4.10: "subscribe/unsubscribe is safe
// during emission") because emission iterates over a snapshot copy, never
// the live slice.
func (b *Bus) Unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers event to every matching subscriber synchronously,
// isolating each listener's panics so one bad subscriber can't take down
// the publisher or its siblings (spec §4.10: "exceptions in subscribers
// must not propagate to publishers").
func (b *Bus) Publish(event Event) {
	snapshot := b.snapshot()
	for _, s := range snapshot {
		if s.eventTyp != "" && s.eventTyp != event.Type {
			continue
		}
		deliver(s.listener, event)
	}
}

func (b *Bus) snapshot() []subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]subscription, len(b.subs))
	copy(out, b.subs)
	return out
}

func deliver(listener Listener, event Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.BootError("notify: subscriber panicked handling %s event: %v", event.Type, r)
		}
	}()
	listener(event)
}

// SubscriberCount reports the current listener count, for diagnostics.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
