package service

import (
	"context"
	"time"

	reservationserrors "depot/internal/reservations/errors"
	"depot/internal/reservations/repository"
	"depot/pkg/config"
	mongotx "depot/pkg/db/mongo"
	"depot/pkg/logger"
	"depot/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

func newTestConfig() *config.Config {
	log := logger.New(logger.Config{
		Level:     "info",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})

	return &config.Config{
		Log:          log,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		AssetLockTTL: 30 * time.Second,
	}
}

type mockAssetRepo struct {
	findByIDFunc       func(ctx context.Context, id string) (*model.Asset, error)
	updateStatusFunc   func(ctx context.Context, id string, status string) error
	findAvailableFunc  func(ctx context.Context, name string, excludeIDs map[string]struct{}, limit int, offset int64) ([]*model.Asset, error)
	countAvailableFunc func(ctx context.Context, name string, excludeIDs map[string]struct{}) (int64, error)
}

func (m *mockAssetRepo) FindByID(ctx context.Context, id string) (*model.Asset, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, reservationserrors.ErrAssetNotFound
}

func (m *mockAssetRepo) UpdateStatus(ctx context.Context, id string, status string) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockAssetRepo) FindAvailable(ctx context.Context, name string, excludeIDs map[string]struct{}, limit int, offset int64) ([]*model.Asset, error) {
	if m.findAvailableFunc != nil {
		return m.findAvailableFunc(ctx, name, excludeIDs, limit, offset)
	}
	return []*model.Asset{}, nil
}

func (m *mockAssetRepo) CountAvailable(ctx context.Context, name string, excludeIDs map[string]struct{}) (int64, error) {
	if m.countAvailableFunc != nil {
		return m.countAvailableFunc(ctx, name, excludeIDs)
	}
	return 0, nil
}

type mockEventRepo struct {
	createFunc             func(ctx context.Context, event *model.Event) error
	findByIDFunc           func(ctx context.Context, id string) (*model.Event, error)
	findAllFunc            func(ctx context.Context, status string, limit int, offset int64) ([]*model.Event, error)
	countFunc              func(ctx context.Context, status string) (int64, error)
	findInWindowFunc       func(ctx context.Context, from, to *time.Time) ([]*model.Event, error)
	updateStatusFunc       func(ctx context.Context, id string, status string) error
	hasBlockingOverlapFunc func(ctx context.Context, assetID string, start, end time.Time) (bool, error)
	reservedAssetIDsFunc   func(ctx context.Context, start, end time.Time) (map[string]struct{}, error)
}

func (m *mockEventRepo) Create(ctx context.Context, event *model.Event) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, event)
	}
	return nil
}

func (m *mockEventRepo) FindByID(ctx context.Context, id string) (*model.Event, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, reservationserrors.ErrEventNotFound
}

func (m *mockEventRepo) FindAll(ctx context.Context, status string, limit int, offset int64) ([]*model.Event, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx, status, limit, offset)
	}
	return []*model.Event{}, nil
}

func (m *mockEventRepo) Count(ctx context.Context, status string) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, status)
	}
	return 0, nil
}

func (m *mockEventRepo) FindInWindow(ctx context.Context, from, to *time.Time) ([]*model.Event, error) {
	if m.findInWindowFunc != nil {
		return m.findInWindowFunc(ctx, from, to)
	}
	return []*model.Event{}, nil
}

func (m *mockEventRepo) UpdateStatus(ctx context.Context, id string, status string) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockEventRepo) HasBlockingOverlap(ctx context.Context, assetID string, start, end time.Time) (bool, error) {
	if m.hasBlockingOverlapFunc != nil {
		return m.hasBlockingOverlapFunc(ctx, assetID, start, end)
	}
	return false, nil
}

func (m *mockEventRepo) ReservedAssetIDs(ctx context.Context, start, end time.Time) (map[string]struct{}, error) {
	if m.reservedAssetIDsFunc != nil {
		return m.reservedAssetIDsFunc(ctx, start, end)
	}
	return map[string]struct{}{}, nil
}

func (m *mockEventRepo) RemoveAssetReferences(ctx context.Context, assetID string) error {
	return nil
}

func (m *mockEventRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type mockLoanRepo struct {
	createFunc             func(ctx context.Context, loan *model.Loan) error
	findByIDFunc           func(ctx context.Context, id string) (*model.Loan, error)
	findAllFunc            func(ctx context.Context, status string, limit int, offset int64) ([]*model.Loan, error)
	countFunc              func(ctx context.Context, status string) (int64, error)
	countOverdueFunc       func(ctx context.Context, now time.Time) (int64, error)
	markReturnedFunc       func(ctx context.Context, id string, returnDate time.Time) error
	activeLoanAssetIDsFunc func(ctx context.Context) (map[string]struct{}, error)
}

func (m *mockLoanRepo) Create(ctx context.Context, loan *model.Loan) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, loan)
	}
	return nil
}

func (m *mockLoanRepo) FindByID(ctx context.Context, id string) (*model.Loan, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, reservationserrors.ErrLoanNotFound
}

func (m *mockLoanRepo) FindAll(ctx context.Context, status string, limit int, offset int64) ([]*model.Loan, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx, status, limit, offset)
	}
	return []*model.Loan{}, nil
}

func (m *mockLoanRepo) Count(ctx context.Context, status string) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, status)
	}
	return 0, nil
}

func (m *mockLoanRepo) CountOverdue(ctx context.Context, now time.Time) (int64, error) {
	if m.countOverdueFunc != nil {
		return m.countOverdueFunc(ctx, now)
	}
	return 0, nil
}

func (m *mockLoanRepo) MarkReturned(ctx context.Context, id string, returnDate time.Time) error {
	if m.markReturnedFunc != nil {
		return m.markReturnedFunc(ctx, id, returnDate)
	}
	return nil
}

func (m *mockLoanRepo) DeleteByAsset(ctx context.Context, assetID string) error {
	return nil
}

func (m *mockLoanRepo) ActiveLoanAssetIDs(ctx context.Context) (map[string]struct{}, error) {
	if m.activeLoanAssetIDsFunc != nil {
		return m.activeLoanAssetIDsFunc(ctx)
	}
	return map[string]struct{}{}, nil
}

func (m *mockLoanRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type mockRequestRepo struct {
	createFunc       func(ctx context.Context, request *model.LoanRequest) error
	findByIDFunc     func(ctx context.Context, id string) (*model.LoanRequest, error)
	findAllFunc      func(ctx context.Context, filter repository.RequestFilter, limit int, offset int64) ([]*model.LoanRequest, error)
	countFunc        func(ctx context.Context, filter repository.RequestFilter) (int64, error)
	updateReviewFunc func(ctx context.Context, id string, fromStatus, toStatus, reviewedBy, comment string, responseDate time.Time) error
	txExecuted       bool
}

func (m *mockRequestRepo) Create(ctx context.Context, request *model.LoanRequest) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, request)
	}
	return nil
}

func (m *mockRequestRepo) FindByID(ctx context.Context, id string) (*model.LoanRequest, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, reservationserrors.ErrRequestNotFound
}

func (m *mockRequestRepo) FindAll(ctx context.Context, filter repository.RequestFilter, limit int, offset int64) ([]*model.LoanRequest, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx, filter, limit, offset)
	}
	return []*model.LoanRequest{}, nil
}

func (m *mockRequestRepo) Count(ctx context.Context, filter repository.RequestFilter) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, filter)
	}
	return 0, nil
}

func (m *mockRequestRepo) UpdateReview(ctx context.Context, id string, fromStatus, toStatus, reviewedBy, comment string, responseDate time.Time) error {
	if m.updateReviewFunc != nil {
		return m.updateReviewFunc(ctx, id, fromStatus, toStatus, reviewedBy, comment, responseDate)
	}
	return nil
}

func (m *mockRequestRepo) DeleteByAsset(ctx context.Context, assetID string) error {
	return nil
}

func (m *mockRequestRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	m.txExecuted = true
	return fn(nil)
}

type mockLockRepo struct {
	createFunc func(ctx context.Context, lock *model.AssetLock) (*model.AssetLock, error)
	deleted    []string
}

func (m *mockLockRepo) Create(ctx context.Context, lock *model.AssetLock) (*model.AssetLock, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, lock)
	}
	return lock, nil
}

func (m *mockLockRepo) Delete(ctx context.Context, lockID string) error {
	m.deleted = append(m.deleted, lockID)
	return nil
}

// duplicateKeyError mimics the server response for a held advisory lock.
func duplicateKeyError() error {
	return mongo.WriteException{
		WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}},
	}
}

type recordingNotifier struct {
	approved []string
	rejected []string
	returned []string
}

func (n *recordingNotifier) RequestApproved(ctx context.Context, request *model.LoanRequest, result *model.ApprovalResult) error {
	n.approved = append(n.approved, request.ID)
	return nil
}

func (n *recordingNotifier) RequestRejected(ctx context.Context, request *model.LoanRequest) error {
	n.rejected = append(n.rejected, request.ID)
	return nil
}

func (n *recordingNotifier) LoanReturned(ctx context.Context, loan *model.Loan) error {
	n.returned = append(n.returned, loan.ID)
	return nil
}
