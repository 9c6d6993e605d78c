package events

import (
	"context"
	"log/slog"
	"sync"
)

// Event is a domain event delivered to observers.
type Event struct {
	// Type is the event type (e.g., "collection:invalidated", "catalog:changed")
	Type string

	// Data is the typed payload, one of the structs in messages.go.
	Data any

	// Context carries the dispatching request's values. Observers must not
	// rely on it being live after Dispatch returns.
	Context context.Context
}

// Observer receives dispatched events.
// Implementations forward them somewhere (websocket clients, logs, caches).
type Observer interface {
	// OnEvent handles an event. A returned error is logged and does not stop
	// delivery to other observers.
	OnEvent(event Event) error

	// Name identifies the observer in logs.
	Name() string

	// ShouldHandle filters which event types the observer receives.
	ShouldHandle(eventType string) bool
}

// Dispatcher is the publishing side of an EventDispatcher. Components that
// only emit events depend on this.
type Dispatcher interface {
	Dispatch(event Event)
}

// EventDispatcher fans events out to registered observers.
// Safe for concurrent use.
type EventDispatcher struct {
	observers []Observer
	mu        sync.RWMutex
	logger    *slog.Logger
}

// NewEventDispatcher creates a dispatcher. A nil logger uses slog.Default().
func NewEventDispatcher(logger *slog.Logger) *EventDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventDispatcher{
		observers: make([]Observer, 0),
		logger:    logger,
	}
}

// Register adds an observer for all future events.
func (d *EventDispatcher) Register(observer Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.observers = append(d.observers, observer)
	d.logger.Debug("registered event observer", "observer", observer.Name())
}

// Unregister removes an observer.
func (d *EventDispatcher) Unregister(observer Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, obs := range d.observers {
		if obs == observer {
			d.observers = append(d.observers[:i], d.observers[i+1:]...)
			d.logger.Debug("unregistered event observer", "observer", observer.Name())
			return
		}
	}
}

// Dispatch delivers event to each interested observer in registration order.
// Observer errors are logged and do not stop delivery.
func (d *EventDispatcher) Dispatch(event Event) {
	for _, observer := range d.snapshot() {
		if !observer.ShouldHandle(event.Type) {
			continue
		}
		if err := observer.OnEvent(event); err != nil {
			d.logger.Warn("observer failed to handle event",
				"observer", observer.Name(), "event", event.Type, "error", err)
		}
	}
}

// ObserverCount returns the number of registered observers.
func (d *EventDispatcher) ObserverCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.observers)
}

func (d *EventDispatcher) snapshot() []Observer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	observers := make([]Observer, len(d.observers))
	copy(observers, d.observers)
	return observers
}

// NewTypedEvent creates an Event carrying data.
func NewTypedEvent[T any](ctx context.Context, eventType string, data T) Event {
	return Event{
		Type:    eventType,
		Data:    data,
		Context: ctx,
	}
}

// GetTypedData extracts the payload of event as T.
func GetTypedData[T any](event Event) (T, bool) {
	typed, ok := event.Data.(T)
	return typed, ok
}
