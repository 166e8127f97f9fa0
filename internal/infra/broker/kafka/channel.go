package kafka

import (
	"context"
	"log/slog"
	"sync"

	"github.com/IBM/sarama"

	"rentride/internal/app/policies"
)

// Inbox remembers which event ids were already delivered.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}

// EventChannel turns CloudEvents read from Kafka into booking updates for
// every registered handler. Redelivered events are dropped by the inbox.
type EventChannel struct {
	inbox  Inbox
	logger *slog.Logger

	mu       sync.RWMutex
	next     int
	handlers map[string]map[int]policies.UpdateHandler
	hooks    map[int]func()
}

func NewEventChannel(inbox Inbox, logger *slog.Logger) *EventChannel {
	return &EventChannel{
		inbox:    inbox,
		logger:   logger,
		handlers: make(map[string]map[int]policies.UpdateHandler),
		hooks:    make(map[int]func()),
	}
}

func (c *EventChannel) On(eventName string, handler policies.UpdateHandler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	id := c.next
	if c.handlers[eventName] == nil {
		c.handlers[eventName] = make(map[int]policies.UpdateHandler)
	}
	c.handlers[eventName][id] = handler
	return func() {
		c.mu.Lock()
		delete(c.handlers[eventName], id)
		c.mu.Unlock()
	}
}

func (c *EventChannel) OnReconnect(hook func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	id := c.next
	c.hooks[id] = hook
	return func() {
		c.mu.Lock()
		delete(c.hooks, id)
		c.mu.Unlock()
	}
}

// Reconnected runs the reconnect hooks. The consumer calls it from its group
// session setup.
func (c *EventChannel) Reconnected() {
	c.mu.RLock()
	hooks := make([]func(), 0, len(c.hooks))
	for _, h := range c.hooks {
		hooks = append(hooks, h)
	}
	c.mu.RUnlock()
	for _, h := range hooks {
		h()
	}
}

// Handle implements MessageHandler. Malformed messages are logged and
// acknowledged so one bad payload cannot block the partition; only an inbox
// failure leaves the message for redelivery.
func (c *EventChannel) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	env, err := DecodeEnvelope(msg.Value)
	if err != nil {
		c.warn("event dropped", msg, err)
		return nil
	}
	if c.inbox != nil {
		seen, err := c.inbox.Seen(ctx, env.ID)
		if err != nil {
			return err
		}
		if seen {
			if c.logger != nil {
				c.logger.Debug("duplicate event skipped", "event_id", env.ID)
			}
			return nil
		}
	}

	name := env.EventName()
	c.mu.RLock()
	handlers := make([]policies.UpdateHandler, 0, len(c.handlers[name]))
	for _, h := range c.handlers[name] {
		handlers = append(handlers, h)
	}
	c.mu.RUnlock()
	if len(handlers) == 0 {
		return nil
	}

	r, err := env.Booking()
	if err != nil {
		c.warn("event payload rejected", msg, err, "event_id", env.ID)
		return nil
	}
	scopes := env.Scopes()
	for _, h := range handlers {
		h(r.Copy(), append([]policies.Scope(nil), scopes...))
	}
	return nil
}

func (c *EventChannel) warn(text string, msg *sarama.ConsumerMessage, err error, attrs ...any) {
	if c.logger == nil {
		return
	}
	attrs = append(attrs, "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
	c.logger.Warn(text, attrs...)
}

var (
	_ policies.EventChannel = (*EventChannel)(nil)
	_ policies.Reconnector  = (*EventChannel)(nil)
	_ MessageHandler        = (*EventChannel)(nil)
)

// Subscribe wires channel to consumer: messages flow into Handle and every
// group session setup counts as a reconnect.
func Subscribe(consumer *Consumer, channel *EventChannel) {
	consumer.handler = channel
	consumer.OnSetup = channel.Reconnected
}

// Events is the Kafka-backed EventChannel together with the consumer that
// feeds it.
type Events struct {
	*EventChannel
	consumer *Consumer
	topics   []string
}

func NewEvents(brokers []string, groupID, topicPrefix string, inbox Inbox, logger *slog.Logger) (*Events, error) {
	channel := NewEventChannel(inbox, logger)
	consumer, err := NewConsumer(brokers, groupID, nil, channel)
	if err != nil {
		return nil, err
	}
	Subscribe(consumer, channel)
	return &Events{EventChannel: channel, consumer: consumer, topics: []string{TopicFor(topicPrefix)}}, nil
}

func (e *Events) Run(ctx context.Context) error {
	return e.consumer.Run(ctx, e.topics)
}

func (e *Events) Close() error {
	return e.consumer.Close()
}
