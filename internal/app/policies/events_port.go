package policies

import "rentride/internal/domain/booking"

// UpdateHandler receives one pushed booking record and the scopes it is
// visible in. Nil scopes mean the sender did not say.
type UpdateHandler func(r booking.Record, scopes []Scope)

// EventChannel is the server-pushed source of booking updates. Delivery is
// at-least-once and not ordered.
type EventChannel interface {
	// On registers handler for eventName and returns the function that
	// removes it. After unsubscribe returns, handler is not called again.
	On(eventName string, handler UpdateHandler) (unsubscribe func())
}

// Reconnector is implemented by channels that can report a resumed
// connection, after which missed updates must be recovered by a resync.
type Reconnector interface {
	OnReconnect(hook func()) (remove func())
}
