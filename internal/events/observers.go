package events

import (
	"log/slog"
	"sync"
)

// LoggingObserver logs every event. Useful for development and troubleshooting.
type LoggingObserver struct {
	logger  *slog.Logger
	verbose bool
}

// NewLoggingObserver creates an observer that logs events. A nil logger uses
// slog.Default().
func NewLoggingObserver(logger *slog.Logger, verbose bool) *LoggingObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{logger: logger, verbose: verbose}
}

// OnEvent logs the event.
func (o *LoggingObserver) OnEvent(event Event) error {
	if o.verbose {
		o.logger.Info("event", "type", event.Type, "data", event.Data)
	} else {
		o.logger.Info("event", "type", event.Type)
	}
	return nil
}

// Name returns the observer's name.
func (o *LoggingObserver) Name() string {
	return "LoggingObserver"
}

// ShouldHandle returns true for all events.
func (o *LoggingObserver) ShouldHandle(string) bool {
	return true
}

// RecordingObserver keeps every event it receives. Tests use it to assert
// what a component dispatched.
type RecordingObserver struct {
	mu     sync.Mutex
	events []Event
	types  map[string]bool
}

// NewRecordingObserver records events of the given types, or all events when
// none are given.
func NewRecordingObserver(types ...string) *RecordingObserver {
	o := &RecordingObserver{}
	if len(types) > 0 {
		o.types = make(map[string]bool, len(types))
		for _, t := range types {
			o.types[t] = true
		}
	}
	return o
}

// OnEvent records the event.
func (o *RecordingObserver) OnEvent(event Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
	return nil
}

// Name returns the observer's name.
func (o *RecordingObserver) Name() string {
	return "RecordingObserver"
}

// ShouldHandle filters by the configured types.
func (o *RecordingObserver) ShouldHandle(eventType string) bool {
	return o.types == nil || o.types[eventType]
}

// Events returns a copy of the recorded events.
func (o *RecordingObserver) Events() []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Event(nil), o.events...)
}
