package service

import (
	"context"
	"testing"
	"time"

	apperrors "depot/pkg/errors"
	"depot/pkg/model"
)

const testLoanID = "707f1f77bcf86cd799439001"

func TestReturn_ClosesLoanAndReleasesAsset(t *testing.T) {
	cfg := newTestConfig()

	var returnedID string
	loans := &mockLoanRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Loan, error) {
			return &model.Loan{
				ID:         id,
				AssetID:    testAssetID,
				BorrowerID: "user-42",
				Status:     model.LoanActive,
			}, nil
		},
		markReturnedFunc: func(ctx context.Context, id string, returnDate time.Time) error {
			returnedID = id
			return nil
		},
	}

	var assetStatus string
	assets := &mockAssetRepo{
		updateStatusFunc: func(ctx context.Context, id string, status string) error {
			assetStatus = status
			return nil
		},
	}

	notifier := &recordingNotifier{}
	svc := NewLoanService(loans, assets, notifier, cfg)

	if err := svc.Return(context.Background(), testLoanID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if returnedID != testLoanID {
		t.Errorf("expected loan %s marked returned, got %q", testLoanID, returnedID)
	}
	if assetStatus != model.AssetAvailable {
		t.Errorf("expected asset released to available, got %q", assetStatus)
	}
	if len(notifier.returned) != 1 {
		t.Errorf("expected 1 return notification, got %d", len(notifier.returned))
	}
}

func TestReturn_AlreadyReturned(t *testing.T) {
	cfg := newTestConfig()

	loans := &mockLoanRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Loan, error) {
			return &model.Loan{ID: id, AssetID: testAssetID, Status: model.LoanReturned}, nil
		},
	}

	svc := NewLoanService(loans, &mockAssetRepo{}, &recordingNotifier{}, cfg)

	err := svc.Return(context.Background(), testLoanID)
	if err == nil {
		t.Fatal("expected conflict for an already returned loan")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeConflict {
		t.Errorf("expected CONFLICT, got %v", err)
	}
}

func TestGetAll_ComputesOverdueFlag(t *testing.T) {
	cfg := newTestConfig()

	past := time.Now().Add(-24 * time.Hour)
	future := time.Now().Add(24 * time.Hour)

	loans := &mockLoanRepo{
		findAllFunc: func(ctx context.Context, status string, limit int, offset int64) ([]*model.Loan, error) {
			return []*model.Loan{
				{ID: "1", Status: model.LoanActive, DueDate: past},
				{ID: "2", Status: model.LoanActive, DueDate: future},
				{ID: "3", Status: model.LoanReturned, DueDate: past},
			}, nil
		},
		countFunc: func(ctx context.Context, status string) (int64, error) {
			if status == model.LoanActive {
				return 2, nil
			}
			return 1, nil
		},
		countOverdueFunc: func(ctx context.Context, now time.Time) (int64, error) {
			return 1, nil
		},
	}

	svc := NewLoanService(loans, &mockAssetRepo{}, &recordingNotifier{}, cfg)

	views, total, counts, err := svc.GetAll(context.Background(), "", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if total != 3 {
		t.Errorf("expected total 3, got %d", total)
	}
	if counts.Active != 2 || counts.Returned != 1 || counts.Overdue != 1 {
		t.Errorf("unexpected counts: %+v", counts)
	}

	overdue := map[string]bool{}
	for _, v := range views {
		overdue[v.ID] = v.Overdue
	}
	if !overdue["1"] {
		t.Error("active loan past due date should be overdue")
	}
	if overdue["2"] {
		t.Error("active loan before due date should not be overdue")
	}
	if overdue["3"] {
		t.Error("returned loan should never be overdue")
	}
}
