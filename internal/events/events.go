// Package events publishes child lifecycle notifications to in-process
// subscribers and webhooks.
package events

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// EventType identifies a specific event category.
type EventType string

const (
	ChildSpawned EventType = "CHILD_SPAWNED"
	ChildExited  EventType = "CHILD_EXITED" // exit status 0
	ChildFailed  EventType = "CHILD_FAILED" // non-zero exit, signal or timeout
	SpawnFailed  EventType = "SPAWN_FAILED"
)

// EventTypes lists every event type in publication order.
func EventTypes() []EventType {
	return []EventType{ChildSpawned, ChildExited, ChildFailed, SpawnFailed}
}

// ParseEventType accepts an event name in any case.
func ParseEventType(s string) (EventType, error) {
	et := EventType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range EventTypes() {
		if et == known {
			return et, nil
		}
	}
	return "", fmt.Errorf("unknown event type %q", s)
}

// Event carries data from a published event.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      map[string]string
}

// HandlerFunc processes an event.
type HandlerFunc func(Event)

type subscription struct {
	id      uint64
	handler HandlerFunc
}

// Bus is the event dispatcher. It is safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	subs   map[EventType][]subscription
	nextID uint64
	logger *slog.Logger
}

// NewBus creates a new event bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[EventType][]subscription),
		logger: logger,
	}
}

// Subscribe registers a handler for the given event type and returns an
// id for Unsubscribe.
func (b *Bus) Subscribe(eventType EventType, handler HandlerFunc) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[eventType] = append(b.subs[eventType], subscription{id: id, handler: handler})
	return id
}

// Unsubscribe removes a subscription by id. Unknown ids are ignored.
func (b *Bus) Unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for eventType, subs := range b.subs {
		for i, s := range subs {
			if s.id != id {
				continue
			}
			rest := make([]subscription, 0, len(subs)-1)
			rest = append(rest, subs[:i]...)
			b.subs[eventType] = append(rest, subs[i+1:]...)
			if len(b.subs[eventType]) == 0 {
				delete(b.subs, eventType)
			}
			return
		}
	}
}

// Publish calls every subscriber of the event's type synchronously, in
// registration order. A panicking handler is logged and the remaining
// handlers still run.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	handlers := b.subs[event.Type]
	b.mu.RUnlock()

	// Unsubscribe never mutates a published slice in place.
	for _, s := range handlers {
		b.safeCall(s.handler, event)
	}
}

func (b *Bus) safeCall(handler HandlerFunc, event Event) {
	defer func() {
		if r := recover(); r != nil && b.logger != nil {
			b.logger.Error("event handler panicked", "event", string(event.Type), "panic", r)
		}
	}()
	handler(event)
}

// SubscriberCount returns the number of subscribers for an event type.
func (b *Bus) SubscriberCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[eventType])
}
