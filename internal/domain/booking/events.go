package booking

import "time"

// EventUpdated is the push event carrying a full, current booking record.
const EventUpdated = "bookingUpdated"

type Updated struct {
	Booking Record
	At      time.Time
}

func (e Updated) EventName() string     { return EventUpdated }
func (e Updated) AggregateID() string   { return string(e.Booking.ID) }
func (e Updated) OccurredAt() time.Time { return e.At }
