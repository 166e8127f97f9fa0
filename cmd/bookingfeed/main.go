// Command bookingfeed publishes booking records as bookingUpdated events, to
// drive a rentride instance running against Kafka.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"

	"rentride/internal/app/dto"
	"rentride/internal/app/policies"
	"rentride/internal/infra/broker/kafka"
	"rentride/internal/infra/obs"
)

func main() {
	var (
		brokers = flag.String("brokers", getenv("KAFKA_BROKERS", "localhost:9092"), "comma separated Kafka brokers")
		prefix  = flag.String("topic-prefix", os.Getenv("KAFKA_TOPIC_PREFIX"), "topic prefix")
		file    = flag.String("file", "data/bookings.json", "JSON array of bookings to publish")
		delay   = flag.Duration("delay", 0, "pause between messages")
	)
	flag.Parse()

	logger := obs.NewLogger(getenv("APP_ENV", "dev"))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, err := readRecords(*file)
	if err != nil {
		logger.Error("cannot read bookings", "error", err, "file", *file)
		os.Exit(1)
	}

	producer, err := kafka.NewProducer(strings.Split(*brokers, ","), nil)
	if err != nil {
		logger.Error("kafka producer setup failed", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	topic := kafka.TopicFor(*prefix)
	for _, wire := range records {
		r, err := wire.ToDomain()
		if err != nil {
			logger.Warn("skipping invalid booking", "booking_id", wire.ID, "error", err)
			continue
		}
		var scopes []policies.Scope
		for _, raw := range wire.Scopes {
			scope, err := policies.ParseScope(raw)
			if err != nil {
				logger.Warn("ignoring unknown scope", "booking_id", wire.ID, "scope", raw)
				continue
			}
			scopes = append(scopes, scope)
		}
		if err := producer.PublishUpdate(ctx, topic, kafka.DefaultSource, r, time.Now().UTC(), scopes...); err != nil {
			logger.Error("publish failed", "booking_id", wire.ID, "error", err)
			os.Exit(1)
		}
		logger.Info("booking published", "booking_id", wire.ID, "topic", topic)
		if *delay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(*delay):
			}
		}
	}
}

// feedRecord matches the fixtures file: a wire booking and the scopes it is
// listed under, which become the event's audience.
type feedRecord struct {
	dto.BookingRecord
	Scopes []string `json:"scopes"`
}

func readRecords(path string) ([]feedRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []feedRecord
	if err := jsoniter.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
