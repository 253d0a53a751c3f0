package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	reservationserrors "depot/internal/reservations/errors"
	"depot/internal/reservations/repository"
	"depot/internal/reservations/validator"
	"depot/pkg/config"
	apperrors "depot/pkg/errors"
	"depot/pkg/model"
	"depot/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

type RequestService interface {
	Submit(ctx context.Context, request *model.LoanRequest) error
	Approve(ctx context.Context, requestID, reviewerID, comment string) (*model.ApprovalResult, error)
	Reject(ctx context.Context, requestID, reviewerID, comment string) error
	GetByID(ctx context.Context, id string) (*model.LoanRequest, error)
	GetAll(ctx context.Context, filter repository.RequestFilter, limit int, offset int64) ([]*model.LoanRequest, int64, error)
}

type requestService struct {
	repo         repository.RequestRepository
	loans        repository.LoanRepository
	events       repository.EventRepository
	assets       repository.AssetRepository
	availability AvailabilityService
	locker       *assetLocker
	notifier     Notifier
	validator    *validator.RequestValidator
	cfg          *config.Config
}

func NewRequestService(
	repo repository.RequestRepository,
	loans repository.LoanRepository,
	events repository.EventRepository,
	assets repository.AssetRepository,
	availability AvailabilityService,
	locks repository.AssetLockRepository,
	notifier Notifier,
	validator *validator.RequestValidator,
	cfg *config.Config,
) RequestService {
	return &requestService{
		repo:         repo,
		loans:        loans,
		events:       events,
		assets:       assets,
		availability: availability,
		locker:       newAssetLocker(locks, cfg),
		notifier:     notifier,
		validator:    validator,
		cfg:          cfg,
	}
}

func (s *requestService) Submit(ctx context.Context, request *model.LoanRequest) error {
	s.applyDefaults(request)
	s.sanitize(request)
	if err := s.validate(request); err != nil {
		return err
	}

	// Serialize against concurrent submissions and approvals for the same
	// asset, then confirm the window is still free before recording the
	// request.
	lockID, err := s.locker.acquire(ctx, request.AssetID)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := s.locker.release(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release asset lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	available, err := s.availability.IsAvailable(ctx, request.AssetID, request.StartDate, request.EndDate)
	if err != nil {
		return err
	}
	if !available {
		return s.unavailableError(ctx, request)
	}

	if err := s.repo.Create(ctx, request); err != nil {
		s.cfg.Log.Error("Failed to create loan request", "asset_id", request.AssetID, "error", err)
		return apperrors.Internal("Failed to create loan request", err)
	}

	s.cfg.Log.Info("Loan request submitted",
		"id", request.ID,
		"asset_id", request.AssetID,
		"requester_id", request.RequesterID,
	)
	return nil
}

// Approve turns a pending request into an active loan. The per-asset lock
// is held across the whole transaction; inside it the availability check is
// repeated, the request is stamped, the asset flips to in_use, and the loan
// plus its blocking calendar event are created. Any failure aborts the
// transaction and leaves the request pending.
func (s *requestService) Approve(ctx context.Context, requestID, reviewerID, comment string) (*model.ApprovalResult, error) {
	request, err := s.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if request.Status != model.RequestPending {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Cannot approve a request in state %q", request.Status))
	}
	if request.StartDate == nil {
		return nil, apperrors.InvalidInput("Cannot approve a request without a start date")
	}

	start := *request.StartDate
	end := start
	if request.EndDate != nil {
		end = *request.EndDate
	}

	lockID, err := s.locker.acquire(ctx, request.AssetID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.locker.release(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release asset lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	now := time.Now().UTC().Truncate(time.Millisecond)
	result := &model.ApprovalResult{RequestID: request.ID}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		available, err := s.availability.IsAvailable(sessCtx, request.AssetID, &start, &end)
		if err != nil {
			return err
		}
		if !available {
			return s.unavailableError(sessCtx, request)
		}

		if err := s.repo.UpdateReview(sessCtx, request.ID, model.RequestPending, model.RequestApproved, reviewerID, comment, now); err != nil {
			if errors.Is(err, reservationserrors.ErrRequestNotFound) {
				return apperrors.InvalidInput("Request was decided by another reviewer")
			}
			return apperrors.Internal("Failed to approve loan request", err)
		}

		if err := s.assets.UpdateStatus(sessCtx, request.AssetID, model.AssetInUse); err != nil {
			return apperrors.Internal("Failed to mark asset in use", err)
		}

		loan := &model.Loan{
			AssetID:    request.AssetID,
			BorrowerID: request.RequesterID,
			LoanDate:   start,
			DueDate:    end,
			ReturnDate: &end,
			Status:     model.LoanActive,
		}
		if err := s.loans.Create(sessCtx, loan); err != nil {
			return apperrors.Internal("Failed to create loan", err)
		}
		result.LoanID = loan.ID

		endCopy := end
		event := &model.Event{
			Title:            fmt.Sprintf("Loan: asset %s", request.AssetID),
			Description:      request.Reason,
			Type:             model.EventTypeLoanBlock,
			StartTime:        start,
			EndTime:          &endCopy,
			ResponsibleID:    request.RequesterID,
			Status:           model.EventActive,
			ReservedAssetIDs: []string{request.AssetID},
		}
		if err := s.events.Create(sessCtx, event); err != nil {
			return apperrors.Internal("Failed to create loan event", err)
		}
		result.EventID = event.ID

		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to approve loan request", "id", requestID, "error", err)
		return nil, err
	}

	request.Status = model.RequestApproved
	request.ReviewedBy = reviewerID
	request.AdminComment = comment
	request.ResponseDate = &now

	if err := s.notifier.RequestApproved(ctx, request, result); err != nil {
		s.cfg.Log.Warn("Failed to publish approval notification", "id", requestID, "error", err)
	}

	s.cfg.Log.Info("Loan request approved",
		"id", request.ID,
		"asset_id", request.AssetID,
		"loan_id", result.LoanID,
		"event_id", result.EventID,
		"reviewed_by", reviewerID,
	)
	return result, nil
}

// Reject is a status transition plus audit stamps. It never touches the
// asset or the calendar.
func (s *requestService) Reject(ctx context.Context, requestID, reviewerID, comment string) error {
	request, err := s.GetByID(ctx, requestID)
	if err != nil {
		return err
	}

	if request.Status != model.RequestPending {
		return apperrors.InvalidInput(fmt.Sprintf("Cannot reject a request in state %q", request.Status))
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	if err := s.repo.UpdateReview(ctx, requestID, model.RequestPending, model.RequestRejected, reviewerID, comment, now); err != nil {
		if errors.Is(err, reservationserrors.ErrRequestNotFound) {
			return apperrors.InvalidInput("Request was decided by another reviewer")
		}
		s.cfg.Log.Error("Failed to reject loan request", "id", requestID, "error", err)
		return apperrors.Internal("Failed to reject loan request", err)
	}

	request.Status = model.RequestRejected
	request.ReviewedBy = reviewerID
	request.AdminComment = comment
	request.ResponseDate = &now

	if err := s.notifier.RequestRejected(ctx, request); err != nil {
		s.cfg.Log.Warn("Failed to publish rejection notification", "id", requestID, "error", err)
	}

	s.cfg.Log.Info("Loan request rejected",
		"id", request.ID,
		"asset_id", request.AssetID,
		"reviewed_by", reviewerID,
	)
	return nil
}

func (s *requestService) GetByID(ctx context.Context, id string) (*model.LoanRequest, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Request ID cannot be empty")
	}

	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrRequestNotFound) {
			return nil, apperrors.NotFoundWithID("Loan request", id)
		}
		if errors.Is(err, reservationserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid request ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve loan request", err)
	}

	return request, nil
}

func (s *requestService) GetAll(ctx context.Context, filter repository.RequestFilter, limit int, offset int64) ([]*model.LoanRequest, int64, error) {
	var requests []*model.LoanRequest
	var total int64
	var errFind, errCount error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		requests, errFind = s.repo.FindAll(ctx, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list loan requests", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve loan requests", errFind)
		}
	}()

	go func() {
		defer wg.Done()
		total, errCount = s.repo.Count(ctx, filter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count loan requests", "error", errCount)
			errCount = apperrors.Internal("Failed to count loan requests", errCount)
		}
	}()

	wg.Wait()
	if errFind != nil {
		return nil, 0, errFind
	}
	if errCount != nil {
		return nil, 0, errCount
	}

	return requests, total, nil
}

// --- Helpers ---

func (s *requestService) applyDefaults(r *model.LoanRequest) {
	if r.Status == "" {
		r.Status = model.RequestPending
	}
	if r.RequestDate.IsZero() {
		r.RequestDate = time.Now().UTC().Truncate(time.Millisecond)
	}
}

func (s *requestService) sanitize(r *model.LoanRequest) {
	r.Reason = sanitizer.NormalizeText(r.Reason)
	r.AdminComment = sanitizer.NormalizeText(r.AdminComment)
}

func (s *requestService) validate(request *model.LoanRequest) error {
	if err := s.validator.Validate(request); err != nil {
		s.cfg.Log.Warn("Loan request validation failed", "error", err)
		return apperrors.Validation("Loan request validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

// unavailableError names the asset in the user-facing message; the ID is
// only a fallback when the lookup fails.
func (s *requestService) unavailableError(ctx context.Context, request *model.LoanRequest) error {
	window := "now"
	if request.StartDate != nil {
		window = request.StartDate.Format(time.RFC3339)
		if request.EndDate != nil {
			window += " - " + request.EndDate.Format(time.RFC3339)
		}
	}

	name := request.AssetID
	if asset, err := s.assets.FindByID(ctx, request.AssetID); err == nil {
		name = asset.Name
	}
	return apperrors.Conflict(fmt.Sprintf("Asset '%s' is not available for %s", name, window))
}
