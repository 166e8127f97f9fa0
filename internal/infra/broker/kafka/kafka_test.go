package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	saramamocks "github.com/IBM/sarama/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentride/internal/app/policies"
	"rentride/internal/domain/booking"
	"rentride/internal/domain/shared/daterange"
	"rentride/internal/infra/broker/kafka"
	"rentride/internal/infra/storage/memory"
)

func sample(status booking.Status, payment booking.PaymentStatus) booking.Record {
	return booking.Record{
		ID:            "b-1",
		AssetID:       "car-7",
		Status:        status,
		PaymentStatus: payment,
		StartDate:     daterange.Date(2024, time.January, 10),
		EndDate:       daterange.Date(2024, time.January, 12),
		DailyPrice:    decimal.NewFromInt(1000),
		AddOns:        []booking.AddOn{{Name: "ChildSeat", PricePerDay: decimal.NewFromInt(100)}},
		Version:       7,
	}
}

func message(t *testing.T, r booking.Record) (*sarama.ConsumerMessage, string) {
	t.Helper()
	payload, headers, err := kafka.EncodeUpdated(booking.Updated{Booking: r, At: time.Now()}, "")
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Topic: kafka.TopicFor("dev."), Value: payload}, headers["ce_id"]
}

func TestEnvelopeRoundTrip(t *testing.T) {
	r := sample(booking.StatusCancelled, booking.PaymentPartial)
	payload, headers, err := kafka.EncodeUpdated(booking.Updated{Booking: r, At: time.Date(2024, 1, 9, 8, 0, 0, 0, time.UTC)}, "")
	require.NoError(t, err)
	assert.Equal(t, "application/cloudevents+json", headers["content-type"])

	var raw map[string]any
	require.NoError(t, json.Unmarshal(payload, &raw))
	assert.Equal(t, "1.0", raw["specversion"])
	assert.Equal(t, "bookingUpdated.v1", raw["type"])
	assert.Equal(t, "app://rentride", raw["source"])
	assert.Equal(t, "b-1", raw["subject"])

	env, err := kafka.DecodeEnvelope(payload)
	require.NoError(t, err)
	assert.Equal(t, booking.EventUpdated, env.EventName())
	got, err := env.Booking()
	require.NoError(t, err)
	assert.Equal(t, r.Status, got.Status)
	assert.Equal(t, r.EndDate, got.EndDate)
	assert.Equal(t, int64(7), got.Version)
	assert.True(t, got.AddOns[0].PricePerDay.Equal(decimal.NewFromInt(100)))
	assert.Nil(t, env.Scopes())
	assert.NotContains(t, raw, "audience")
}

func TestChannelPassesAudienceScopes(t *testing.T) {
	channel := kafka.NewEventChannel(nil, nil)
	var got [][]policies.Scope
	channel.On(booking.EventUpdated, func(_ booking.Record, scopes []policies.Scope) { got = append(got, scopes) })

	payload, _, err := kafka.EncodeUpdated(booking.Updated{Booking: sample(booking.StatusConfirmed, booking.PaymentFull), At: time.Now()},
		"", policies.ScopeRenter, policies.ScopeOwner)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(payload, &raw))
	assert.Equal(t, "renter,owner", raw["audience"])

	ctx := context.Background()
	require.NoError(t, channel.Handle(ctx, &sarama.ConsumerMessage{Value: payload}))
	raw["id"] = "e-2"
	raw["audience"] = "owner, nobody"
	edited, err := json.Marshal(raw)
	require.NoError(t, err)
	require.NoError(t, channel.Handle(ctx, &sarama.ConsumerMessage{Value: edited}))
	require.Len(t, got, 2)
	assert.Equal(t, []policies.Scope{policies.ScopeRenter, policies.ScopeOwner}, got[0])
	assert.Equal(t, []policies.Scope{policies.ScopeOwner}, got[1], "unknown names are skipped")
}

func TestDecodeEnvelopeErrors(t *testing.T) {
	_, err := kafka.DecodeEnvelope([]byte(`{"type":"bookingUpdated.v1","data":{}}`))
	assert.ErrorIs(t, err, kafka.ErrMissingEventID)

	_, err = kafka.DecodeEnvelope([]byte(`not json`))
	assert.ErrorIs(t, err, kafka.ErrMalformedEnvelope)

	_, err = kafka.DecodeEnvelope([]byte(`{"id":"e-1","type":"bookingUpdated.v1"}`))
	assert.ErrorIs(t, err, kafka.ErrMalformedEnvelope)
}

func TestChannelDeliversOncePerEvent(t *testing.T) {
	channel := kafka.NewEventChannel(memory.NewInbox(100), nil)
	var got []booking.Record
	unsubscribe := channel.On(booking.EventUpdated, func(r booking.Record, _ []policies.Scope) { got = append(got, r) })

	msg, _ := message(t, sample(booking.StatusConfirmed, booking.PaymentFull))
	ctx := context.Background()
	require.NoError(t, channel.Handle(ctx, msg))
	require.NoError(t, channel.Handle(ctx, msg), "redelivery")
	require.Len(t, got, 1)
	assert.Equal(t, booking.StatusConfirmed, got[0].Status)

	unsubscribe()
	next, _ := message(t, sample(booking.StatusActive, booking.PaymentFull))
	require.NoError(t, channel.Handle(ctx, next))
	assert.Len(t, got, 1)
}

func TestChannelSkipsPoisonMessages(t *testing.T) {
	channel := kafka.NewEventChannel(nil, nil)
	calls := 0
	channel.On(booking.EventUpdated, func(booking.Record, []policies.Scope) { calls++ })
	ctx := context.Background()

	assert.NoError(t, channel.Handle(ctx, &sarama.ConsumerMessage{Value: []byte("{")}))
	assert.NoError(t, channel.Handle(ctx, &sarama.ConsumerMessage{
		Value: []byte(`{"id":"e-1","type":"bookingUpdated.v1","data":{"id":"b-1","startDate":"never"}}`),
	}))
	assert.Zero(t, calls)
}

type failingInbox struct{}

func (failingInbox) Seen(context.Context, string) (bool, error) { return false, errors.New("inbox down") }

func TestChannelLeavesMessageOnInboxFailure(t *testing.T) {
	channel := kafka.NewEventChannel(failingInbox{}, nil)
	msg, _ := message(t, sample(booking.StatusConfirmed, booking.PaymentFull))
	assert.Error(t, channel.Handle(context.Background(), msg))
}

func TestChannelReconnectHooks(t *testing.T) {
	channel := kafka.NewEventChannel(nil, nil)
	n := 0
	remove := channel.OnReconnect(func() { n++ })
	channel.Reconnected()
	remove()
	channel.Reconnected()
	assert.Equal(t, 1, n)
}

func TestProducerPublishUpdate(t *testing.T) {
	sp := saramamocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		env, err := kafka.DecodeEnvelope(val)
		if err != nil {
			return err
		}
		if env.EventName() != booking.EventUpdated {
			return errors.New("unexpected type " + env.Type)
		}
		if env.Audience != "owner" {
			return errors.New("unexpected audience " + env.Audience)
		}
		return nil
	})
	producer := kafka.NewProducerWith(sp)

	err := producer.PublishUpdate(context.Background(), kafka.TopicFor("dev."), "", sample(booking.StatusActive, booking.PaymentFull), time.Now(), policies.ScopeOwner)
	require.NoError(t, err)
	require.NoError(t, producer.Close())
}

type otherEvent struct{}

func (otherEvent) EventName() string     { return "assetRetired" }
func (otherEvent) AggregateID() string   { return "car-7" }
func (otherEvent) OccurredAt() time.Time { return time.Time{} }

func TestEncodeRejectsUnknownEvents(t *testing.T) {
	_, _, err := kafka.Encode(otherEvent{}, "")
	assert.ErrorIs(t, err, kafka.ErrUnsupportedEvent)
}
