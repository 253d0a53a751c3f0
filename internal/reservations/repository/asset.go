package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	reservationserrors "depot/internal/reservations/errors"
	"depot/pkg/config"
	"depot/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const AssetsCollectionName = "Assets"

// AssetRepository is the reservation-side view of the shared inventory:
// lookups, the status transitions driven by approvals and returns, and the
// availability search. Inventory management itself lives in the assets
// service.
type AssetRepository interface {
	FindByID(ctx context.Context, id string) (*model.Asset, error)
	UpdateStatus(ctx context.Context, id string, status string) error
	FindAvailable(ctx context.Context, name string, excludeIDs map[string]struct{}, limit int, offset int64) ([]*model.Asset, error)
	CountAvailable(ctx context.Context, name string, excludeIDs map[string]struct{}) (int64, error)
}

type mongoAssetRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoAssetRepository(cfg *config.Config) AssetRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAssetRepository{
		cfg:        cfg,
		collection: db.Collection(AssetsCollectionName),
	}
}

func (r *mongoAssetRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoAssetRepository) FindByID(ctx context.Context, id string) (*model.Asset, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	var asset model.Asset
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&asset)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationserrors.ErrAssetNotFound
		}
		return nil, fmt.Errorf("failed to find asset: %w", err)
	}

	return &asset, nil
}

func (r *mongoAssetRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"status":     status,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update asset status: %w", err)
	}

	if result.MatchedCount == 0 {
		return reservationserrors.ErrAssetNotFound
	}

	return nil
}

func (r *mongoAssetRepository) FindAvailable(ctx context.Context, name string, excludeIDs map[string]struct{}, limit int, offset int64) ([]*model.Asset, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, buildAvailableFilter(name, excludeIDs), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find available assets: %w", err)
	}
	defer cursor.Close(ctx)

	var assets []*model.Asset
	if err = cursor.All(ctx, &assets); err != nil {
		return nil, fmt.Errorf("failed to decode assets: %w", err)
	}

	return assets, nil
}

func (r *mongoAssetRepository) CountAvailable(ctx context.Context, name string, excludeIDs map[string]struct{}) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildAvailableFilter(name, excludeIDs))
	if err != nil {
		return 0, fmt.Errorf("failed to count available assets: %w", err)
	}

	return count, nil
}

func buildAvailableFilter(name string, excludeIDs map[string]struct{}) bson.M {
	query := bson.M{}

	if name != "" {
		query["name"] = bson.M{"$regex": name, "$options": "i"}
	}

	if len(excludeIDs) > 0 {
		objectIDs := make([]primitive.ObjectID, 0, len(excludeIDs))
		for id := range excludeIDs {
			if oid, err := primitive.ObjectIDFromHex(id); err == nil {
				objectIDs = append(objectIDs, oid)
			}
		}
		query["_id"] = bson.M{"$nin": objectIDs}
	}

	return query
}
