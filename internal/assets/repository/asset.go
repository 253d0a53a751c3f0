package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	assetserrors "depot/internal/assets/errors"
	"depot/pkg/config"
	mongotx "depot/pkg/db/mongo"
	"depot/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Assets"

	assetSeqCounter = "asset_seq"
)

// AssetFilter narrows listing queries. Zero values mean "no constraint".
type AssetFilter struct {
	Name     string
	Category string
	Location string
	Status   string
}

type AssetRepository interface {
	Create(ctx context.Context, asset *model.Asset) error
	FindByID(ctx context.Context, id string) (*model.Asset, error)
	FindAll(ctx context.Context, filter AssetFilter, limit int, offset int64) ([]*model.Asset, error)
	ListAll(ctx context.Context) ([]*model.Asset, error)
	Count(ctx context.Context, filter AssetFilter) (int64, error)
	CountByStatus(ctx context.Context) (*model.AssetStatusCounts, error)
	Update(ctx context.Context, id string, asset *model.Asset) error
	UpdateStatus(ctx context.Context, id string, status string) error
	SetCode(ctx context.Context, id string, code string) error
	Delete(ctx context.Context, id string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoAssetRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	counters   CounterRepository
	txManager  mongotx.TransactionManager
}

func NewMongoAssetRepository(cfg *config.Config, counters CounterRepository) AssetRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAssetRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		counters:   counters,
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// SessionContext cannot be wrapped without breaking transaction semantics, so
// it is returned unchanged with a no-op cancel.
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

func (r *mongoAssetRepository) Create(ctx context.Context, asset *model.Asset) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	seq, err := r.counters.Next(ctx, assetSeqCounter)
	if err != nil {
		return fmt.Errorf("failed to allocate asset sequence: %w", err)
	}
	asset.Seq = seq

	now := time.Now().UTC().Truncate(time.Millisecond)
	asset.CreatedAt = now
	asset.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, asset)
	if err != nil {
		return fmt.Errorf("failed to create asset: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		asset.ID = oid.Hex()
	}
	return nil
}

func (r *mongoAssetRepository) FindByID(ctx context.Context, id string) (*model.Asset, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", assetserrors.ErrInvalidID, id)
	}

	var asset model.Asset
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&asset)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, assetserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find asset: %w", err)
	}

	return &asset, nil
}

func (r *mongoAssetRepository) FindAll(ctx context.Context, filter AssetFilter, limit int, offset int64) ([]*model.Asset, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, buildAssetFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find assets: %w", err)
	}
	defer cursor.Close(ctx)

	var assets []*model.Asset
	if err = cursor.All(ctx, &assets); err != nil {
		return nil, fmt.Errorf("failed to decode assets: %w", err)
	}

	return assets, nil
}

// ListAll returns every asset without pagination. Used by the
// reconciliation engine, which must visit the whole inventory.
func (r *mongoAssetRepository) ListAll(ctx context.Context) ([]*model.Asset, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer cursor.Close(ctx)

	var assets []*model.Asset
	if err = cursor.All(ctx, &assets); err != nil {
		return nil, fmt.Errorf("failed to decode assets: %w", err)
	}

	return assets, nil
}

func (r *mongoAssetRepository) Count(ctx context.Context, filter AssetFilter) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildAssetFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count assets: %w", err)
	}

	return count, nil
}

func (r *mongoAssetRepository) CountByStatus(ctx context.Context) (*model.AssetStatusCounts, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$status",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count assets by status: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode status counts: %w", err)
	}

	counts := &model.AssetStatusCounts{}
	for _, row := range rows {
		counts.Total += row.Count
		switch row.Status {
		case model.AssetAvailable:
			counts.Available = row.Count
		case model.AssetInUse:
			counts.InUse = row.Count
		case model.AssetMaintenance:
			counts.Maintenance = row.Count
		}
	}

	return counts, nil
}

func (r *mongoAssetRepository) Update(ctx context.Context, id string, asset *model.Asset) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", assetserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"name":       asset.Name,
			"category":   asset.Category,
			"location":   asset.Location,
			"status":     asset.Status,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update asset: %w", err)
	}

	if result.MatchedCount == 0 {
		return assetserrors.ErrNotFound
	}

	return nil
}

func (r *mongoAssetRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", assetserrors.ErrInvalidID, id)
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
		return assetserrors.ErrNotFound
	}

	return nil
}

// SetCode assigns the generated code. The filter matches only while the
// stored code is still empty, so a concurrent writer that got there first
// wins and this call reports ErrCodeAlreadySet.
func (r *mongoAssetRepository) SetCode(ctx context.Context, id string, code string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", assetserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID, "asset_code": ""}
	update := bson.M{
		"$set": bson.M{
			"asset_code": code,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to set asset code: %w", err)
	}

	if result.MatchedCount == 0 {
		return assetserrors.ErrCodeAlreadySet
	}

	return nil
}

func (r *mongoAssetRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", assetserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}

	if result.DeletedCount == 0 {
		return assetserrors.ErrNotFound
	}

	return nil
}

func (r *mongoAssetRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func buildAssetFilter(filter AssetFilter) bson.M {
	query := bson.M{}

	if filter.Name != "" {
		query["name"] = bson.M{"$regex": filter.Name, "$options": "i"}
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Location != "" {
		query["location"] = bson.M{"$regex": filter.Location, "$options": "i"}
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	return query
}
