package websocket

import (
	"github.com/ramonehamilton/mtg-binder/internal/events"
)

// Observer forwards dispatched events to websocket clients.
type Observer struct {
	hub   *Hub
	types map[string]bool
}

// NewObserver creates an observer that broadcasts events of the given types,
// or of every type when none are given.
func NewObserver(hub *Hub, types ...string) *Observer {
	o := &Observer{hub: hub}
	if len(types) > 0 {
		o.types = make(map[string]bool, len(types))
		for _, t := range types {
			o.types[t] = true
		}
	}
	return o
}

// OnEvent broadcasts the event. A stopped hub drops it silently.
func (o *Observer) OnEvent(event events.Event) error {
	if o.hub == nil {
		return nil
	}
	o.hub.BroadcastEvent(Event{Type: event.Type, Data: event.Data})
	return nil
}

// Name returns the observer's name.
func (o *Observer) Name() string {
	return "WebSocketObserver"
}

// ShouldHandle filters by the configured event types.
func (o *Observer) ShouldHandle(eventType string) bool {
	return o.types == nil || o.types[eventType]
}

var _ events.Observer = (*Observer)(nil)
