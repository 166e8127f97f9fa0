package kafka

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"rentride/internal/app/dto"
	"rentride/internal/app/policies"
	"rentride/internal/domain/booking"
	"rentride/internal/domain/shared/events"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// BookingTopic is the topic suffix booking events are published on.
	BookingTopic  = "bookings.events.v1"
	DefaultSource = "app://rentride"
	specVersion   = "1.0"
	typeSuffix    = ".v1"
	contentType   = "application/cloudevents+json"
)

var (
	ErrMalformedEnvelope = errors.New("kafka: malformed event envelope")
	ErrMissingEventID    = errors.New("kafka: event id is required")
	ErrUnsupportedEvent  = errors.New("kafka: no wire format for event")
)

// Envelope is a structured-mode CloudEvent. Audience is an extension
// attribute holding the comma-separated scopes the booking is visible in.
type Envelope struct {
	SpecVersion     string              `json:"specversion"`
	ID              string              `json:"id"`
	Type            string              `json:"type"`
	Source          string              `json:"source"`
	Subject         string              `json:"subject,omitempty"`
	Time            time.Time           `json:"time"`
	DataContentType string              `json:"datacontenttype"`
	Audience        string              `json:"audience,omitempty"`
	Data            jsoniter.RawMessage `json:"data"`
}

// EventName strips the version suffix from Type.
func (e Envelope) EventName() string {
	return strings.TrimSuffix(e.Type, typeSuffix)
}

// Booking decodes the data of a booking event.
func (e Envelope) Booking() (booking.Record, error) {
	var wire dto.BookingRecord
	if err := json.Unmarshal(e.Data, &wire); err != nil {
		return booking.Record{}, fmt.Errorf("%w: data: %v", ErrMalformedEnvelope, err)
	}
	return wire.ToDomain()
}

// Scopes parses Audience. Unknown names are skipped; nil means the event was
// not restricted.
func (e Envelope) Scopes() []policies.Scope {
	if strings.TrimSpace(e.Audience) == "" {
		return nil
	}
	var out []policies.Scope
	for _, raw := range strings.Split(e.Audience, ",") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if s, err := policies.ParseScope(raw); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func TopicFor(prefix string) string {
	return prefix + BookingTopic
}

// EncodeUpdated wraps a booking update in a CloudEvent and returns the
// payload with its Kafka headers. scopes become the audience attribute.
func EncodeUpdated(ev booking.Updated, source string, scopes ...policies.Scope) ([]byte, map[string]string, error) {
	return encode(ev, source, scopes)
}

func Encode(ev events.DomainEvent, source string) ([]byte, map[string]string, error) {
	return encode(ev, source, nil)
}

func encode(ev events.DomainEvent, source string, scopes []policies.Scope) ([]byte, map[string]string, error) {
	data, err := eventData(ev)
	if err != nil {
		return nil, nil, err
	}
	if source == "" {
		source = DefaultSource
	}
	env := Envelope{
		SpecVersion:     specVersion,
		ID:              uuid.NewString(),
		Type:            ev.EventName() + typeSuffix,
		Source:          source,
		Subject:         ev.AggregateID(),
		Time:            ev.OccurredAt().UTC(),
		DataContentType: "application/json",
		Audience:        joinScopes(scopes),
		Data:            data,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{
		"content-type": contentType,
		"ce_id":        env.ID,
		"ce_type":      env.Type,
	}
	return payload, headers, nil
}

func joinScopes(scopes []policies.Scope) string {
	names := make([]string, 0, len(scopes))
	for _, s := range scopes {
		names = append(names, string(s))
	}
	return strings.Join(names, ",")
}

func eventData(ev events.DomainEvent) ([]byte, error) {
	switch e := ev.(type) {
	case booking.Updated:
		return json.Marshal(dto.FromDomain(e.Booking))
	case *booking.Updated:
		return json.Marshal(dto.FromDomain(e.Booking))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, ev.EventName())
	}
}

func DecodeEnvelope(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.ID == "" {
		return Envelope{}, ErrMissingEventID
	}
	if env.Type == "" || len(env.Data) == 0 {
		return Envelope{}, fmt.Errorf("%w: type and data are required", ErrMalformedEnvelope)
	}
	return env, nil
}
