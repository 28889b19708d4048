package messaging

import (
	"fmt"
	"sync"
)

// SimpleBroker implements the Broker interface.
// subscribers is a map where keys are consumer ids and values are channels
// for receiving events.
type SimpleBroker struct {
	subscribers map[string]chan<- Event
	mu          sync.RWMutex
}

// NewBroker creates a new episode event broker.
func NewBroker() *SimpleBroker {
	return &SimpleBroker{
		subscribers: make(map[string]chan<- Event),
	}
}

// Publish fans the event out to every subscriber. Sends are non-blocking:
// a subscriber with a full channel produces an error but never stalls the
// episode loop.
func (b *SimpleBroker) Publish(ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- ev:
			// Event sent successfully
		default:
			return fmt.Errorf("subscriber %s's channel is full", id)
		}
	}
	return nil
}

// Subscribe registers a consumer to receive events.
func (b *SimpleBroker) Subscribe(id string, ch chan<- Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[id]; exists {
		return fmt.Errorf("subscriber %s is already registered", id)
	}

	b.subscribers[id] = ch
	return nil
}

// Unsubscribe removes a consumer's subscription.
func (b *SimpleBroker) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[id]; !exists {
		return fmt.Errorf("subscriber %s is not registered", id)
	}

	delete(b.subscribers, id)
	return nil
}

func (b *SimpleBroker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = make(map[string]chan<- Event)
}
