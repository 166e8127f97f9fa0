package kafka

import (
	"context"
	"time"

	"github.com/IBM/sarama"

	"rentride/internal/app/policies"
	"rentride/internal/domain/booking"
)

type Producer struct {
	sync sarama.SyncProducer
}

func NewProducer(brokers []string, cfg *sarama.Config) (*Producer, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Return.Successes = true
	cfg.Net.MaxOpenRequests = 1
	sync, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &Producer{sync: sync}, nil
}

// NewProducerWith wraps an existing sync producer.
func NewProducerWith(sync sarama.SyncProducer) *Producer {
	return &Producer{sync: sync}
}

func (p *Producer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var hs []sarama.RecordHeader
	for k, v := range headers {
		hs = append(hs, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}
	msg := &sarama.ProducerMessage{
		Topic:   topic,
		Key:     sarama.StringEncoder(key),
		Value:   sarama.ByteEncoder(payload),
		Headers: hs,
	}
	_, _, err := p.sync.SendMessage(msg)
	return err
}

// PublishUpdate sends r as a bookingUpdated CloudEvent keyed by booking id,
// so updates for one booking stay on one partition. scopes limit which
// session views apply it.
func (p *Producer) PublishUpdate(ctx context.Context, topic, source string, r booking.Record, at time.Time, scopes ...policies.Scope) error {
	payload, headers, err := EncodeUpdated(booking.Updated{Booking: r, At: at}, source, scopes...)
	if err != nil {
		return err
	}
	return p.Publish(ctx, topic, string(r.ID), payload, headers)
}

func (p *Producer) Close() error {
	if p.sync == nil {
		return nil
	}
	return p.sync.Close()
}
