// Package events carries domain events between modules without direct
// coupling: the workflow services publish, listeners subscribe.
// This is part of the platform layer and contains no business logic.
package events

import (
	"context"
	"time"
)

// Event is what every domain event implements. The name keys handler
// registration, the timestamp records emission.
type Event interface {
	// EventName uniquely identifies the event type.
	EventName() string
	// OccurredAt reports when the event was emitted.
	OccurredAt() time.Time
}

// BaseEvent is embedded by concrete events to supply the timestamp.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt reports when the event was emitted.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a base event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler consumes events of one registered type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function into a Handler.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls the underlying function.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes domain events and routes them to subscribed handlers.
type Bus interface {
	// Publish dispatches the event to every handler registered under its
	// name. Dispatch is asynchronous.
	Publish(ctx context.Context, event Event)

	// PublishSync dispatches the event and waits for every handler.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler under an event name, which must match
	// the Event.EventName() of the events it wants.
	Subscribe(eventName string, handler Handler)
}
