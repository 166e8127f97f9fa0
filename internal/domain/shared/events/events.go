package events

import "time"

// DomainEvent is anything the engine publishes or consumes over the event channel.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}
