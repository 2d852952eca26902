package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	// EventStatus carries a free-text progress line
	EventStatus EventType = "status"
	// EventProgress carries a percentage of the current batch
	EventProgress EventType = "progress"
	// EventLog carries raw interaction output
	EventLog EventType = "log"
	// EventError carries a failure description
	EventError EventType = "error"
	// EventMessageComplete carries the per-message terminal result
	EventMessageComplete EventType = "messageComplete"
	// EventComplete carries the overall batch terminal result
	EventComplete EventType = "complete"
)

// Event represents a system event
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// Subscription identifies one handler registration on the bus. Handlers
// are not comparable (two closures from the same literal share a code
// pointer), so unsubscription goes through the handle instead.
type Subscription uint64

// EventService manages the pub/sub event bus. Delivery is best-effort,
// at-most-once per subscriber; publishing to zero subscribers is a no-op.
type EventService interface {
	// Subscribe registers a handler for an event type and returns the
	// handle identifying that registration
	Subscribe(eventType EventType, handler EventHandler) (Subscription, error)

	// Unsubscribe removes the registration identified by the handle
	Unsubscribe(eventType EventType, sub Subscription) error

	// Publish an event to all subscribers without blocking on them
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes event and waits for all handlers to complete
	PublishSync(ctx context.Context, event Event) error

	// Close shuts down the event service
	Close() error
}
