package notify

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublish_DeliversToGlobalAndTypedSubscribers(t *testing.T) {
	b := New()
	var mu sync.Mutex
	var globalCount, typedCount int

	b.Subscribe(func(e Event) {
		mu.Lock()
		globalCount++
		mu.Unlock()
	})
	b.SubscribeType(EventEnrichmentComplete, func(e Event) {
		mu.Lock()
		typedCount++
		mu.Unlock()
	})

	b.Publish(Event{Type: EventEnrichmentComplete, Payload: EnrichmentComplete{NodeID: "n1", Success: true}})
	b.Publish(Event{Type: EventQueueStatus, Payload: QueueStatus{Pending: 3}})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, globalCount)
	assert.Equal(t, 1, typedCount)
}

func TestPublish_IsolatesPanickingSubscriber(t *testing.T) {
	b := New()
	var delivered bool

	b.Subscribe(func(e Event) { panic("boom") })
	b.Subscribe(func(e Event) { delivered = true })

	assert.NotPanics(t, func() {
		b.Publish(Event{Type: EventQueueStatus})
	})
	assert.True(t, delivered)
}

func TestUnsubscribe_StopsFurtherDelivery(t *testing.T) {
	b := New()
	count := 0
	id := b.Subscribe(func(e Event) { count++ })

	b.Publish(Event{Type: EventQueueStatus})
	b.Unsubscribe(id)
	b.Publish(Event{Type: EventQueueStatus})

	assert.Equal(t, 1, count)
}

func TestUnsubscribeDuringEmission_DoesNotPanicOrSkipOthers(t *testing.T) {
	b := New()
	var secondCalled bool
	var id uint64
	id = b.Subscribe(func(e Event) { b.Unsubscribe(id) })
	b.Subscribe(func(e Event) { secondCalled = true })

	assert.NotPanics(t, func() {
		b.Publish(Event{Type: EventQueueStatus})
	})
	assert.True(t, secondCalled)
	assert.Equal(t, 1, b.SubscriberCount())
}
