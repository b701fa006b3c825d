package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
)

// OutboxRepoMongoDB da acceso a la colección outbox para el relayer.
type OutboxRepoMongoDB struct {
	coll *mongo.Collection
}

func NewOutboxRepoMongoDB(client *mongo.Client, dbName string) *OutboxRepoMongoDB {
	return &OutboxRepoMongoDB{coll: client.Database(dbName).Collection("outbox")}
}

var _ sharedDomain.OutboxRepository = (*OutboxRepoMongoDB)(nil)

type mongoOutboxRow struct {
	ID            uuid.UUID              `bson:"_id"`
	AggregateType string                 `bson:"aggregateType"`
	AggregateID   string                 `bson:"aggregateId"`
	EventType     string                 `bson:"eventType"`
	Payload       map[string]interface{} `bson:"payload"`
	CreatedAt     time.Time              `bson:"createdAt"`
}

func (r *OutboxRepoMongoDB) FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.M{"processed": false}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []sharedDomain.OutboxEvent
	for cursor.Next(ctx) {
		var row mongoOutboxRow
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		events = append(events, sharedDomain.OutboxEvent{
			ID:            row.ID,
			AggregateType: row.AggregateType,
			AggregateID:   row.AggregateID,
			EventType:     row.EventType,
			Payload:       row.Payload,
			CreatedAt:     row.CreatedAt,
		})
	}

	return events, cursor.Err()
}

func (r *OutboxRepoMongoDB) MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"processed": true}})
	if err != nil {
		return fmt.Errorf("failed to mark outbox event %s as processed: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("no outbox event found with id %s", id)
	}
	return nil
}
