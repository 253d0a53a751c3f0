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

const RequestsCollectionName = "Loan_requests"

// RequestFilter narrows listing queries. Zero values mean "no constraint".
type RequestFilter struct {
	RequesterID string
	AssetID     string
	Status      string
}

type RequestRepository interface {
	Create(ctx context.Context, request *model.LoanRequest) error
	FindByID(ctx context.Context, id string) (*model.LoanRequest, error)
	FindAll(ctx context.Context, filter RequestFilter, limit int, offset int64) ([]*model.LoanRequest, error)
	Count(ctx context.Context, filter RequestFilter) (int64, error)
	UpdateReview(ctx context.Context, id string, fromStatus, toStatus, reviewedBy, comment string, responseDate time.Time) error
	DeleteByAsset(ctx context.Context, assetID string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoRequestRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoRequestRepository(cfg *config.Config) RequestRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRequestRepository{
		cfg:        cfg,
		collection: db.Collection(RequestsCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoRequestRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoRequestRepository) Create(ctx context.Context, request *model.LoanRequest) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.InsertOne(ctx, request)
	if err != nil {
		return fmt.Errorf("failed to create loan request: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		request.ID = oid.Hex()
	}
	return nil
}

func (r *mongoRequestRepository) FindByID(ctx context.Context, id string) (*model.LoanRequest, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	var request model.LoanRequest
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&request)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationserrors.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to find loan request: %w", err)
	}

	return &request, nil
}

func (r *mongoRequestRepository) FindAll(ctx context.Context, filter RequestFilter, limit int, offset int64) ([]*model.LoanRequest, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "request_date", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, buildRequestFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find loan requests: %w", err)
	}
	defer cursor.Close(ctx)

	var requests []*model.LoanRequest
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("failed to decode loan requests: %w", err)
	}

	return requests, nil
}

func (r *mongoRequestRepository) Count(ctx context.Context, filter RequestFilter) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildRequestFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count loan requests: %w", err)
	}

	return count, nil
}

// UpdateReview records a review decision. The filter pins the prior status,
// so a request that was decided concurrently matches nothing and the caller
// sees ErrRequestNotFound.
func (r *mongoRequestRepository) UpdateReview(ctx context.Context, id string, fromStatus, toStatus, reviewedBy, comment string, responseDate time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID, "status": fromStatus}
	update := bson.M{
		"$set": bson.M{
			"status":        toStatus,
			"reviewed_by":   reviewedBy,
			"admin_comment": comment,
			"response_date": responseDate,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update loan request: %w", err)
	}

	if result.MatchedCount == 0 {
		return reservationserrors.ErrRequestNotFound
	}

	return nil
}

// DeleteByAsset removes every request for the asset. Part of the asset
// deletion cascade.
func (r *mongoRequestRepository) DeleteByAsset(ctx context.Context, assetID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteMany(ctx, bson.M{"asset_id": assetID}); err != nil {
		return fmt.Errorf("failed to delete loan requests for asset: %w", err)
	}

	return nil
}

func (r *mongoRequestRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func buildRequestFilter(filter RequestFilter) bson.M {
	query := bson.M{}

	if filter.RequesterID != "" {
		query["requester_id"] = filter.RequesterID
	}
	if filter.AssetID != "" {
		query["asset_id"] = filter.AssetID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	return query
}
