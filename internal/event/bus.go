package event

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
)

// Handler is a function that handles an event.
type Handler func(Event)

// subscription represents a registered event handler.
type subscription struct {
	id      string
	pattern string
	handler Handler
}

// Bus is a simple synchronous pub-sub event bus.
// The debate engine and reading service publish onto it; the live view and
// the plain progress printer subscribe without the engine knowing about them.
type Bus struct {
	mu            sync.RWMutex
	subscriptions map[string][]subscription // pattern -> subscriptions
	nextID        atomic.Uint64
	logger        *slog.Logger
}

// NewBus creates a new event bus. Handler panics are reported to
// slog.Default() unless a logger is set with SetLogger.
func NewBus() *Bus {
	return &Bus{
		subscriptions: make(map[string][]subscription),
		logger:        slog.Default(),
	}
}

// SetLogger replaces the logger used to report handler panics.
func (b *Bus) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	b.mu.Lock()
	b.logger = logger
	b.mu.Unlock()
}

// Subscribe registers a handler for a specific event type such as
// "round.started". A pattern ending in ".*" matches every event in that
// category ("session.*" receives both session.started and session.finished).
// Returns a subscription ID that can be used to unsubscribe.
func (b *Bus) Subscribe(pattern string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := fmt.Sprintf("sub-%d", b.nextID.Add(1))
	b.subscriptions[pattern] = append(b.subscriptions[pattern], subscription{
		id:      id,
		pattern: pattern,
		handler: handler,
	})
	return id
}

// SubscribeAll registers a handler for all event types.
func (b *Bus) SubscribeAll(handler Handler) string {
	return b.Subscribe("*", handler)
}

// Unsubscribe removes a subscription by ID.
// Returns true if the subscription was found and removed.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for pattern, subs := range b.subscriptions {
		for i, sub := range subs {
			if sub.id == id {
				b.subscriptions[pattern] = append(subs[:i:i], subs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Publish dispatches an event to all registered handlers.
// Exact-type handlers run first, then category handlers, then wildcard
// handlers; within each group, in registration order. A panicking handler
// is logged and skipped so the remaining handlers still run.
func (b *Bus) Publish(event Event) {
	if b == nil || event == nil {
		return
	}
	eventType := event.EventType()

	b.mu.RLock()
	var targets []subscription
	targets = append(targets, b.subscriptions[eventType]...)
	if category, _, ok := strings.Cut(eventType, "."); ok {
		targets = append(targets, b.subscriptions[category+".*"]...)
	}
	targets = append(targets, b.subscriptions["*"]...)
	logger := b.logger
	b.mu.RUnlock()

	for _, sub := range targets {
		b.safeCall(logger, sub.handler, event)
	}
}

func (b *Bus) safeCall(logger *slog.Logger, handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event handler panicked",
				"event_type", event.EventType(),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	handler(event)
}

// Clear removes all subscriptions.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscriptions = make(map[string][]subscription)
}

// SubscriptionCount returns the total number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, subs := range b.subscriptions {
		count += len(subs)
	}
	return count
}
