package repository

import (
	"context"
	"time"

	"depot/pkg/config"
	"depot/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LocksCollectionName = "Asset_locks"

// AssetLockRepository provides operations for per-asset advisory locks.
type AssetLockRepository interface {
	Create(ctx context.Context, lock *model.AssetLock) (*model.AssetLock, error)
	Delete(ctx context.Context, lockID string) error
}

type mongoAssetLockRepository struct {
	collection *mongo.Collection
}

func NewAssetLockRepository(cfg *config.Config) AssetLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAssetLockRepository{
		collection: db.Collection(LocksCollectionName),
	}
}

// Returns duplicate key error if the lock already exists
func (r *mongoAssetLockRepository) Create(ctx context.Context, lock *model.AssetLock) (*model.AssetLock, error) {
	lock.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, lock)
	if err != nil {
		return nil, err
	}

	return lock, nil
}

// Delete removes an advisory lock
func (r *mongoAssetLockRepository) Delete(ctx context.Context, lockID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID})
	return err
}
