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

const LoansCollectionName = "Loans"

type LoanRepository interface {
	Create(ctx context.Context, loan *model.Loan) error
	FindByID(ctx context.Context, id string) (*model.Loan, error)
	FindAll(ctx context.Context, status string, limit int, offset int64) ([]*model.Loan, error)
	Count(ctx context.Context, status string) (int64, error)
	CountOverdue(ctx context.Context, now time.Time) (int64, error)
	MarkReturned(ctx context.Context, id string, returnDate time.Time) error
	DeleteByAsset(ctx context.Context, assetID string) error
	ActiveLoanAssetIDs(ctx context.Context) (map[string]struct{}, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoLoanRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoLoanRepository(cfg *config.Config) LoanRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLoanRepository{
		cfg:        cfg,
		collection: db.Collection(LoansCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoLoanRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoLoanRepository) Create(ctx context.Context, loan *model.Loan) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	loan.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, loan)
	if err != nil {
		return fmt.Errorf("failed to create loan: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		loan.ID = oid.Hex()
	}
	return nil
}

func (r *mongoLoanRepository) FindByID(ctx context.Context, id string) (*model.Loan, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	var loan model.Loan
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&loan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationserrors.ErrLoanNotFound
		}
		return nil, fmt.Errorf("failed to find loan: %w", err)
	}

	return &loan, nil
}

func (r *mongoLoanRepository) FindAll(ctx context.Context, status string, limit int, offset int64) ([]*model.Loan, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "loan_date", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find loans: %w", err)
	}
	defer cursor.Close(ctx)

	var loans []*model.Loan
	if err = cursor.All(ctx, &loans); err != nil {
		return nil, fmt.Errorf("failed to decode loans: %w", err)
	}

	return loans, nil
}

func (r *mongoLoanRepository) Count(ctx context.Context, status string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count loans: %w", err)
	}

	return count, nil
}

// CountOverdue counts active loans whose due date has passed. Overdue is
// never stored, so the clock is a parameter.
func (r *mongoLoanRepository) CountOverdue(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":   model.LoanActive,
		"due_date": bson.M{"$lt": now},
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count overdue loans: %w", err)
	}

	return count, nil
}

// MarkReturned closes the loan. The filter requires the loan to still be
// active, so a double return matches nothing.
func (r *mongoLoanRepository) MarkReturned(ctx context.Context, id string, returnDate time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID, "status": model.LoanActive}
	update := bson.M{
		"$set": bson.M{
			"status":      model.LoanReturned,
			"return_date": returnDate,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark loan returned: %w", err)
	}

	if result.MatchedCount == 0 {
		return reservationserrors.ErrLoanNotFound
	}

	return nil
}

// DeleteByAsset removes every loan for the asset. Part of the asset
// deletion cascade.
func (r *mongoLoanRepository) DeleteByAsset(ctx context.Context, assetID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteMany(ctx, bson.M{"asset_id": assetID}); err != nil {
		return fmt.Errorf("failed to delete loans for asset: %w", err)
	}

	return nil
}

// ActiveLoanAssetIDs returns the set of asset IDs held by active loans.
func (r *mongoLoanRepository) ActiveLoanAssetIDs(ctx context.Context) (map[string]struct{}, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	values, err := r.collection.Distinct(ctx, "asset_id", bson.M{"status": model.LoanActive})
	if err != nil {
		return nil, fmt.Errorf("failed to list active loan assets: %w", err)
	}

	ids := make(map[string]struct{}, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			ids[id] = struct{}{}
		}
	}

	return ids, nil
}

func (r *mongoLoanRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
