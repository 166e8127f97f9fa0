package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const inboxCollection = "app_inbox"

// InboxStore records delivered event ids per consumer, so redelivered Kafka
// messages are recognized across restarts.
type InboxStore struct {
	col       *mongo.Collection
	consumer  string
	retention time.Duration
	now       func() time.Time
}

func NewInboxStore(db *mongo.Database, consumer string, retention time.Duration) *InboxStore {
	return newInboxStore(db.Collection(inboxCollection), consumer, retention)
}

func newInboxStore(col *mongo.Collection, consumer string, retention time.Duration) *InboxStore {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &InboxStore{col: col, consumer: consumer, retention: retention, now: time.Now}
}

func (s *InboxStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}, {Key: "consumer", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "received_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(s.retention.Seconds())),
		},
	})
	return err
}

// Seen inserts the id; a duplicate key means it was delivered before.
func (s *InboxStore) Seen(ctx context.Context, eventID string) (bool, error) {
	doc := bson.M{"event_id": eventID, "consumer": s.consumer, "received_at": s.now().UTC()}
	_, err := s.col.InsertOne(ctx, doc)
	if err == nil {
		return false, nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return true, nil
	}
	return false, err
}
