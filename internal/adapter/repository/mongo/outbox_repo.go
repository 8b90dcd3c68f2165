package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/usecase"
)

// OutboxRepository implements usecase.OutboxRepository on MongoDB.
type OutboxRepository struct {
	coll *mongo.Collection
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(db *mongo.Database) *OutboxRepository {
	return &OutboxRepository{coll: db.Collection(outboxCollection)}
}

func (r *OutboxRepository) Create(ctx context.Context, scope usecase.Scope, event *domain.OutboxEvent) error {
	sc, err := sessionContext(ctx, scope)
	if err != nil {
		return err
	}
	_, err = r.coll.InsertOne(sc, toOutboxDoc(event))
	return err
}

func (r *OutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, bson.M{"published": false}, opts)
	if err != nil {
		return nil, err
	}

	var docs []outboxDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	events := make([]*domain.OutboxEvent, 0, len(docs))
	for _, d := range docs {
		events = append(events, d.toDomain())
	}
	return events, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"published":    true,
		"published_at": publishedAt,
	}})
	return err
}

func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{
		"published":    true,
		"published_at": bson.M{"$lt": before},
	})
	return err
}
