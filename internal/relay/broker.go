package relay

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
)

const subscriberBufSize = 64

// Event is a single server-sent event.
type Event struct {
	Type string
	Data string
}

// Broker fans out events to all subscribed SSE clients and remembers the
// latest event of each type so new subscribers start from current state.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[int64]chan Event
	latest      map[string]Event
	order       []string
	nextID      atomic.Int64
}

// NewBroker creates a new SSE event broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[int64]chan Event),
		latest:      make(map[string]Event),
	}
}

// Subscribe registers a new client. The returned channel first yields the
// latest event of every type seen so far. Slow consumers have events dropped.
func (b *Broker) Subscribe() (int64, <-chan Event) {
	id := b.nextID.Add(1)
	ch := make(chan Event, subscriberBufSize)
	b.mu.Lock()
	for _, t := range b.order {
		ch <- b.latest[t]
	}
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(id int64) {
	b.mu.Lock()
	ch, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers. Non-blocking: slow clients
// have events dropped.
func (b *Broker) Publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, seen := b.latest[evt.Type]; !seen {
		b.order = append(b.order, evt.Type)
	}
	b.latest[evt.Type] = evt
	for _, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}

// PublishJSON encodes v and publishes it under eventType.
func (b *Broker) PublishJSON(eventType string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}
	b.Publish(Event{Type: eventType, Data: string(data)})
	return nil
}

// Latest returns the most recent event of the given type.
func (b *Broker) Latest(eventType string) (Event, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	evt, ok := b.latest[eventType]
	return evt, ok
}

// ClientCount returns the number of active subscribers.
func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
