package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	maintenanceerrors "depot/internal/maintenance/errors"
	"depot/pkg/config"
	mongotx "depot/pkg/db/mongo"
	"depot/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "Maintenance_tasks"

type TaskRepository interface {
	Create(ctx context.Context, task *model.MaintenanceTask) error
	FindByID(ctx context.Context, id string) (*model.MaintenanceTask, error)
	FindAll(ctx context.Context, status string, limit int, offset int64) ([]*model.MaintenanceTask, error)
	Count(ctx context.Context, status string) (int64, error)
	Update(ctx context.Context, id string, task *model.MaintenanceTask) error
	HasOpenTask(ctx context.Context, assetID string) (bool, error)
	OpenTaskAssetIDs(ctx context.Context) (map[string]struct{}, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoTaskRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoTaskRepository(cfg *config.Config) TaskRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTaskRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoTaskRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoTaskRepository) Create(ctx context.Context, task *model.MaintenanceTask) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	task.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to create maintenance task: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		task.ID = oid.Hex()
	}
	return nil
}

func (r *mongoTaskRepository) FindByID(ctx context.Context, id string) (*model.MaintenanceTask, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", maintenanceerrors.ErrInvalidID, id)
	}

	var task model.MaintenanceTask
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, maintenanceerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find maintenance task: %w", err)
	}

	return &task, nil
}

func (r *mongoTaskRepository) FindAll(ctx context.Context, status string, limit int, offset int64) ([]*model.MaintenanceTask, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find maintenance tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var tasks []*model.MaintenanceTask
	if err = cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode maintenance tasks: %w", err)
	}

	return tasks, nil
}

func (r *mongoTaskRepository) Count(ctx context.Context, status string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count maintenance tasks: %w", err)
	}

	return count, nil
}

// Update writes the mutable fields. The filter admits only open tasks, so
// two concurrent completions cannot both succeed: the loser matches nothing
// and sees ErrAlreadyCompleted.
func (r *mongoTaskRepository) Update(ctx context.Context, id string, task *model.MaintenanceTask) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", maintenanceerrors.ErrInvalidID, id)
	}

	filter := bson.M{
		"_id":    objectID,
		"status": bson.M{"$in": []string{model.MaintenancePending, model.MaintenanceInProgress}},
	}
	update := bson.M{
		"$set": bson.M{
			"technician_id":  task.TechnicianID,
			"description":    task.Description,
			"status":         task.Status,
			"scheduled_date": task.ScheduledDate,
			"completed_date": task.CompletedDate,
			"performed_by":   task.PerformedBy,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update maintenance task: %w", err)
	}

	if result.MatchedCount == 0 {
		n, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": objectID}, options.Count().SetLimit(1))
		if countErr == nil && n > 0 {
			return maintenanceerrors.ErrAlreadyCompleted
		}
		return maintenanceerrors.ErrNotFound
	}

	return nil
}

func (r *mongoTaskRepository) HasOpenTask(ctx context.Context, assetID string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"asset_id": assetID,
		"status":   bson.M{"$in": []string{model.MaintenancePending, model.MaintenanceInProgress}},
	}

	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check open maintenance tasks: %w", err)
	}

	return count > 0, nil
}

// OpenTaskAssetIDs returns the set of asset IDs held by pending or
// in-progress tasks. The reconciliation engine snapshots this once per pass.
func (r *mongoTaskRepository) OpenTaskAssetIDs(ctx context.Context) (map[string]struct{}, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status": bson.M{"$in": []string{model.MaintenancePending, model.MaintenanceInProgress}},
	}

	values, err := r.collection.Distinct(ctx, "asset_id", filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list open maintenance assets: %w", err)
	}

	ids := make(map[string]struct{}, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			ids[id] = struct{}{}
		}
	}

	return ids, nil
}

func (r *mongoTaskRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
