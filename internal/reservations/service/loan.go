package service

import (
	"context"
	"errors"
	"sync"
	"time"

	reservationserrors "depot/internal/reservations/errors"
	"depot/internal/reservations/repository"
	"depot/pkg/config"
	apperrors "depot/pkg/errors"
	"depot/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

type LoanService interface {
	GetByID(ctx context.Context, id string) (*model.LoanView, error)
	GetAll(ctx context.Context, status string, limit int, offset int64) ([]*model.LoanView, int64, *model.LoanStatusCounts, error)
	Return(ctx context.Context, id string) error
}

type loanService struct {
	repo     repository.LoanRepository
	assets   repository.AssetRepository
	notifier Notifier
	cfg      *config.Config
}

func NewLoanService(
	repo repository.LoanRepository,
	assets repository.AssetRepository,
	notifier Notifier,
	cfg *config.Config,
) LoanService {
	return &loanService{
		repo:     repo,
		assets:   assets,
		notifier: notifier,
		cfg:      cfg,
	}
}

func (s *loanService) GetByID(ctx context.Context, id string) (*model.LoanView, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Loan ID cannot be empty")
	}

	loan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateLookupError(err, id)
	}

	return &model.LoanView{Loan: *loan, Overdue: loan.IsOverdue(time.Now())}, nil
}

func (s *loanService) GetAll(ctx context.Context, status string, limit int, offset int64) ([]*model.LoanView, int64, *model.LoanStatusCounts, error) {
	now := time.Now()

	var loans []*model.Loan
	counts := &model.LoanStatusCounts{}
	var errFind, errCounts error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		loans, errFind = s.repo.FindAll(ctx, status, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list loans", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve loans", errFind)
		}
	}()

	go func() {
		defer wg.Done()
		active, err := s.repo.Count(ctx, model.LoanActive)
		if err == nil {
			counts.Active = active
			counts.Returned, err = s.repo.Count(ctx, model.LoanReturned)
		}
		if err == nil {
			counts.Overdue, err = s.repo.CountOverdue(ctx, now)
		}
		if err != nil {
			s.cfg.Log.Error("Failed to count loans", "error", err)
			errCounts = apperrors.Internal("Failed to count loans", err)
			return
		}
		counts.Total = counts.Active + counts.Returned
	}()

	wg.Wait()
	if errFind != nil {
		return nil, 0, nil, errFind
	}
	if errCounts != nil {
		return nil, 0, nil, errCounts
	}

	views := make([]*model.LoanView, 0, len(loans))
	for _, loan := range loans {
		views = append(views, &model.LoanView{Loan: *loan, Overdue: loan.IsOverdue(now)})
	}

	total := counts.Total
	switch status {
	case model.LoanActive:
		total = counts.Active
	case model.LoanReturned:
		total = counts.Returned
	}

	return views, total, counts, nil
}

// Return closes the loan and hands the asset back in one transaction. The
// asset reset is explicit rather than recomputed; a reconciliation pass
// will re-apply any other open claim.
func (s *loanService) Return(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Loan ID cannot be empty")
	}

	loan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return s.translateLookupError(err, id)
	}

	if loan.Status != model.LoanActive {
		return apperrors.Conflict("Loan is already returned")
	}

	now := time.Now().UTC().Truncate(time.Millisecond)

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.MarkReturned(sessCtx, id, now); err != nil {
			if errors.Is(err, reservationserrors.ErrLoanNotFound) {
				return apperrors.Conflict("Loan was returned by another request")
			}
			return apperrors.Internal("Failed to mark loan returned", err)
		}
		if err := s.assets.UpdateStatus(sessCtx, loan.AssetID, model.AssetAvailable); err != nil {
			return apperrors.Internal("Failed to release asset", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to return loan", "id", id, "error", err)
		return err
	}

	loan.Status = model.LoanReturned
	loan.ReturnDate = &now

	if err := s.notifier.LoanReturned(ctx, loan); err != nil {
		s.cfg.Log.Warn("Failed to publish return notification", "id", id, "error", err)
	}

	s.cfg.Log.Info("Loan returned",
		"id", id,
		"asset_id", loan.AssetID,
		"borrower_id", loan.BorrowerID,
	)
	return nil
}

func (s *loanService) translateLookupError(err error, id string) error {
	if errors.Is(err, reservationserrors.ErrLoanNotFound) {
		return apperrors.NotFoundWithID("Loan", id)
	}
	if errors.Is(err, reservationserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid loan ID format")
	}
	return apperrors.Internal("Failed to retrieve loan", err)
}
