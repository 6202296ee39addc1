// Package notify broadcasts committed status values to subscribers.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/marcuz1234/mynd-firmware/internal/domain/status"
)

// Event is a committed status transition.
type Event struct {
	SequenceNo uint64
	Status     status.Status
	Previous   status.Status
	At         time.Time
}

// subscription holds one subscriber's channel.
type subscription struct {
	id string
	ch chan Event
}

// Broadcaster fans committed statuses out to subscribers. Sends never
// block the engine: a subscriber whose buffer is full loses the event.
type Broadcaster struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription

	sequenceNoMu sync.Mutex
	sequenceNo   uint64
}

// NewBroadcaster creates a broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscriptions: make(map[string]*subscription),
	}
}

// Subscribe adds a subscriber with the given buffer size and returns its
// subscription ID and receive channel.
func (b *Broadcaster) Subscribe(buffer int) (string, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	sub := &subscription{
		id: id,
		ch: make(chan Event, buffer),
	}
	b.subscriptions[id] = sub
	return id, sub.ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscriptions[id]; ok {
		delete(b.subscriptions, id)
		close(sub.ch)
	}
}

// Publish assigns the next sequence number and delivers the event to all
// subscribers without blocking.
func (b *Broadcaster) Publish(ev Event) {
	b.sequenceNoMu.Lock()
	b.sequenceNo++
	ev.SequenceNo = b.sequenceNo
	b.sequenceNoMu.Unlock()

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscriptions {
		select {
		case sub.ch <- ev:
		default:
			zlog.Warn().Msgf("notify: subscriber %s buffer full, dropping status %s", sub.id, ev.Status)
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions)
}
