package events

import (
	"log/slog"
	"sync"
)

const subscriberBufferSize = 64

// Bus fans out published events to every current subscriber. Sends are
// non-blocking: a subscriber whose buffer is full has its oldest queued
// event dropped to make room, and the drop is logged at Warn, rather than
// letting a slow consumer stall publishers.
type Bus struct {
	mu          sync.Mutex
	subscribers map[int]chan Event
	nextID      int
	logger      *slog.Logger
}

// NewBus constructs an empty Bus. logger may be nil, in which case the
// default logger is used for overflow warnings.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{subscribers: make(map[int]chan Event), logger: logger}
}

// Subscribe registers a new listener and returns its channel plus an
// unsubscribe function.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBufferSize)
	b.subscribers[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(existing)
		}
	}
	return ch, unsubscribe
}

// Publish fans out evt to every current subscriber without blocking.
func (b *Bus) Publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
			select {
			case dropped := <-ch:
				b.logger.Warn("events: dropping oldest event for slow subscriber", "subscriber_id", id, "event", dropped.Name)
			default:
			}
			select {
			case ch <- evt:
			default:
				b.logger.Warn("events: dropping event for slow subscriber", "subscriber_id", id, "event", evt.Name)
			}
		}
	}
}
