package repository

import (
	"context"
	"fmt"

	"depot/pkg/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CountersCollectionName = "Counters"

// CounterRepository hands out monotonically increasing sequence numbers.
// Each named counter is a single document incremented atomically, so two
// concurrent allocations can never observe the same value.
type CounterRepository interface {
	Next(ctx context.Context, name string) (int64, error)
}

type mongoCounterRepository struct {
	collection *mongo.Collection
}

func NewMongoCounterRepository(cfg *config.Config) CounterRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoCounterRepository{
		collection: db.Collection(CountersCollectionName),
	}
}

func (r *mongoCounterRepository) Next(ctx context.Context, name string) (int64, error) {
	filter := bson.M{"_id": name}
	update := bson.M{"$inc": bson.M{"seq": int64(1)}}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc struct {
		Seq int64 `bson:"seq"`
	}
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return 0, fmt.Errorf("failed to allocate sequence %q: %w", name, err)
	}

	return doc.Seq, nil
}
