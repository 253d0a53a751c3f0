package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	reservationserrors "depot/internal/reservations/errors"
	"depot/pkg/config"
	mongotx "depot/pkg/db/mongo"
	"depot/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const EventsCollectionName = "Events"

type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	FindByID(ctx context.Context, id string) (*model.Event, error)
	FindAll(ctx context.Context, status string, limit int, offset int64) ([]*model.Event, error)
	Count(ctx context.Context, status string) (int64, error)
	FindInWindow(ctx context.Context, from, to *time.Time) ([]*model.Event, error)
	UpdateStatus(ctx context.Context, id string, status string) error
	HasBlockingOverlap(ctx context.Context, assetID string, start, end time.Time) (bool, error)
	ReservedAssetIDs(ctx context.Context, start, end time.Time) (map[string]struct{}, error)
	RemoveAssetReferences(ctx context.Context, assetID string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoEventRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoEventRepository(cfg *config.Config) EventRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoEventRepository{
		cfg:        cfg,
		collection: db.Collection(EventsCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoEventRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoEventRepository) Create(ctx context.Context, event *model.Event) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	event.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		event.ID = oid.Hex()
	}
	return nil
}

func (r *mongoEventRepository) FindByID(ctx context.Context, id string) (*model.Event, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	var event model.Event
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationserrors.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to find event: %w", err)
	}

	return &event, nil
}

func (r *mongoEventRepository) FindAll(ctx context.Context, status string, limit int, offset int64) ([]*model.Event, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*model.Event
	if err = cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}

	return events, nil
}

func (r *mongoEventRepository) Count(ctx context.Context, status string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}

	return count, nil
}

// FindInWindow lists events intersecting the optional [from, to) range,
// ordered by start, for the calendar endpoint.
func (r *mongoEventRepository) FindInWindow(ctx context.Context, from, to *time.Time) ([]*model.Event, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{}
	if from != nil {
		// Events without an explicit end are instants at start_time.
		filter["$or"] = []bson.M{
			{"end_time": bson.M{"$gt": *from}},
			{"end_time": nil, "start_time": bson.M{"$gte": *from}},
		}
	}
	if to != nil {
		filter["start_time"] = bson.M{"$lt": *to}
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find events in window: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*model.Event
	if err = cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}

	return events, nil
}

func (r *mongoEventRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{
		"$set": bson.M{"status": status},
	})
	if err != nil {
		return fmt.Errorf("failed to update event status: %w", err)
	}

	if result.MatchedCount == 0 {
		return reservationserrors.ErrEventNotFound
	}

	return nil
}

// HasBlockingOverlap reports whether any approved or active event reserving
// the asset intersects [start, end). Events without an end time fail the
// end_time > start comparison and therefore never block, matching the
// zero-width interval rule.
func (r *mongoEventRepository) HasBlockingOverlap(ctx context.Context, assetID string, start, end time.Time) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := blockingOverlapFilter(start, end)
	filter["reserved_asset_ids"] = assetID

	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check event overlap: %w", err)
	}

	return count > 0, nil
}

// ReservedAssetIDs returns every asset reserved by a blocking event that
// intersects [start, end). Used to exclude assets from availability search.
func (r *mongoEventRepository) ReservedAssetIDs(ctx context.Context, start, end time.Time) (map[string]struct{}, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	values, err := r.collection.Distinct(ctx, "reserved_asset_ids", blockingOverlapFilter(start, end))
	if err != nil {
		return nil, fmt.Errorf("failed to list reserved assets: %w", err)
	}

	ids := make(map[string]struct{}, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			ids[id] = struct{}{}
		}
	}

	return ids, nil
}

// RemoveAssetReferences pulls a deleted asset out of every event that
// reserves it, so stale IDs stop feeding the overlap queries.
func (r *mongoEventRepository) RemoveAssetReferences(ctx context.Context, assetID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"reserved_asset_ids": assetID}
	update := bson.M{"$pull": bson.M{"reserved_asset_ids": assetID}}

	if _, err := r.collection.UpdateMany(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to remove asset from events: %w", err)
	}

	return nil
}

func blockingOverlapFilter(start, end time.Time) bson.M {
	return bson.M{
		"status":     bson.M{"$in": []string{model.EventApproved, model.EventActive}},
		"start_time": bson.M{"$lt": end},
		"end_time":   bson.M{"$gt": start},
	}
}

func (r *mongoEventRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
