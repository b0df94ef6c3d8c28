package upload

import (
	"sync"

	"github.com/dpetrenko/filekeeper/internal/client/models"
)

// EventType names the process-wide upload events observers can act on.
type EventType string

const (
	// EventCreated fires right after initiation, before any bytes are
	// sent, so a UI can render a placeholder row immediately.
	EventCreated EventType = "uploadCreated"

	// EventProgress fires on transfer progress ticks. Percent is clamped
	// monotonic non-decreasing per upload.
	EventProgress EventType = "uploadProgress"

	// EventCompleted fires once transport success and the backend ack have
	// both landed.
	EventCompleted EventType = "uploadCompleted"

	// EventStateChange fires on any status transition.
	EventStateChange EventType = "uploadStateChange"

	// EventRemoved fires when a record leaves the registry (cancel or
	// completion cleanup).
	EventRemoved EventType = "uploadRemoved"
)

// Event is a single notification. Percent is meaningful for EventProgress,
// Status for EventStateChange.
type Event struct {
	Type    EventType
	ID      string
	Percent float64
	Status  models.Status
}

const subscriberBuffer = 64

// Bus is a typed publish/subscribe channel for upload events. Delivery is
// fire-and-forget: an event published while a subscriber's buffer is full
// is dropped for that subscriber, and subscribers that attach after an
// emission never see it.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of events and a cancel function. The channel
// is closed on cancel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Publish fans the event out to all current subscribers without blocking.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
