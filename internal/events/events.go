package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Event types published inside the bot process.
const (
	BookingSubmitted    = "booking.submitted"
	BookingFailed       = "booking.failed"
	BookingCancelled    = "booking.cancelled"
	SlotsLoaded         = "slots.loaded"
	SlotsFailed         = "slots.failed"
	SlotsStaleDiscarded = "slots.stale_discarded"
	SessionChanged      = "session.changed"
	AnyType             = "*"
)

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the JSON payload into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// EventHandler reacts to an event.
type EventHandler func(event Event) error

type subscription struct {
	id      int64
	handler EventHandler
}

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]subscription
	nextSub     int64
	nextEvent   int64
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]subscription)}
}

// Subscribe registers a handler for a given event type; AnyType receives all
// events. The returned func removes the handler and is safe to call twice.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextSub++
	id := b.nextSub
	b.subscribers[eventType] = append(b.subscribers[eventType], subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(eventType, id) })
	}
}

func (b *EventBus) remove(eventType string, id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[eventType]
	for i, s := range subs {
		if s.id == id {
			b.subscribers[eventType] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subscribers[eventType]) == 0 {
		delete(b.subscribers, eventType)
	}
}

// Publish notifies subscribers of the event type. Handlers run synchronously;
// their errors are joined.
func (b *EventBus) Publish(event Event) error {
	b.mu.Lock()
	b.nextEvent++
	if event.ID == 0 {
		event.ID = b.nextEvent
	}
	subs := append([]subscription(nil), b.subscribers[event.Type]...)
	if event.Type != AnyType {
		subs = append(subs, b.subscribers[AnyType]...)
	}
	b.mu.Unlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var errs []error
	for _, s := range subs {
		if err := s.handler(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishJSON marshals payload and publishes it under eventType.
func (b *EventBus) PublishJSON(eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return b.Publish(Event{Type: eventType, Payload: data})
}

// Subscribers returns the number of handlers registered for eventType.
func (b *EventBus) Subscribers(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[eventType])
}
