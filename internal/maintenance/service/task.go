package service

import (
	"context"
	"errors"
	"sync"
	"time"

	maintenanceerrors "depot/internal/maintenance/errors"
	"depot/internal/maintenance/repository"
	"depot/internal/maintenance/validator"
	"depot/pkg/config"
	apperrors "depot/pkg/errors"
	"depot/pkg/model"
	"depot/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

// AssetStore is the slice of the asset repository the maintenance context
// needs: existence checks and the status transitions that bracket a task's
// lifetime.
type AssetStore interface {
	FindByID(ctx context.Context, id string) (*model.Asset, error)
	UpdateStatus(ctx context.Context, id string, status string) error
}

type TaskService interface {
	Create(ctx context.Context, task *model.MaintenanceTask) error
	GetByID(ctx context.Context, id string) (*model.MaintenanceTask, error)
	GetAll(ctx context.Context, status string, limit int, offset int64) ([]*model.MaintenanceTask, int64, *model.MaintenanceStatusCounts, error)
	Complete(ctx context.Context, id string, performedBy string) error
}

type taskService struct {
	repo      repository.TaskRepository
	assets    AssetStore
	validator *validator.TaskValidator
	cfg       *config.Config
}

func NewTaskService(
	repo repository.TaskRepository,
	assets AssetStore,
	validator *validator.TaskValidator,
	cfg *config.Config,
) TaskService {
	return &taskService{
		repo:      repo,
		assets:    assets,
		validator: validator,
		cfg:       cfg,
	}
}

// Create opens a task and pulls the asset out of rotation in the same
// transaction.
func (s *taskService) Create(ctx context.Context, task *model.MaintenanceTask) error {
	s.applyDefaults(task)
	s.sanitize(task)
	if err := s.validate(task); err != nil {
		return err
	}

	if _, err := s.assets.FindByID(ctx, task.AssetID); err != nil {
		return apperrors.NotFoundWithID("Asset", task.AssetID)
	}

	open, err := s.repo.HasOpenTask(ctx, task.AssetID)
	if err != nil {
		s.cfg.Log.Error("Failed to check open maintenance tasks", "asset_id", task.AssetID, "error", err)
		return apperrors.Internal("Failed to check open maintenance tasks", err)
	}
	if open {
		return apperrors.Conflict("Asset already has an open maintenance task")
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.Create(sessCtx, task); err != nil {
			return apperrors.Internal("Failed to create maintenance task", err)
		}
		if err := s.assets.UpdateStatus(sessCtx, task.AssetID, model.AssetMaintenance); err != nil {
			return apperrors.Internal("Failed to mark asset under maintenance", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create maintenance task", "asset_id", task.AssetID, "error", err)
		return err
	}

	s.cfg.Log.Info("Maintenance task created",
		"id", task.ID,
		"asset_id", task.AssetID,
		"status", task.Status,
	)
	return nil
}

func (s *taskService) GetByID(ctx context.Context, id string) (*model.MaintenanceTask, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Maintenance task ID cannot be empty")
	}

	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, maintenanceerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Maintenance task", id)
		}
		if errors.Is(err, maintenanceerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid maintenance task ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve maintenance task", err)
	}

	return task, nil
}

func (s *taskService) GetAll(ctx context.Context, status string, limit int, offset int64) ([]*model.MaintenanceTask, int64, *model.MaintenanceStatusCounts, error) {
	var tasks []*model.MaintenanceTask
	var total int64
	counts := &model.MaintenanceStatusCounts{}
	var errFind, errCounts error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		tasks, errFind = s.repo.FindAll(ctx, status, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list maintenance tasks", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve maintenance tasks", errFind)
		}
	}()

	go func() {
		defer wg.Done()
		for _, st := range []string{model.MaintenancePending, model.MaintenanceInProgress, model.MaintenanceCompleted} {
			n, err := s.repo.Count(ctx, st)
			if err != nil {
				s.cfg.Log.Error("Failed to count maintenance tasks", "status", st, "error", err)
				errCounts = apperrors.Internal("Failed to count maintenance tasks", err)
				return
			}
			counts.Total += n
			switch st {
			case model.MaintenancePending:
				counts.Pending = n
			case model.MaintenanceInProgress:
				counts.InProgress = n
			case model.MaintenanceCompleted:
				counts.Completed = n
			}
		}
	}()

	wg.Wait()
	if errFind != nil {
		return nil, 0, nil, errFind
	}
	if errCounts != nil {
		return nil, 0, nil, errCounts
	}

	if status == "" {
		total = counts.Total
	} else {
		switch status {
		case model.MaintenancePending:
			total = counts.Pending
		case model.MaintenanceInProgress:
			total = counts.InProgress
		case model.MaintenanceCompleted:
			total = counts.Completed
		}
	}

	return tasks, total, counts, nil
}

// Complete closes the task and hands the asset back. The status reset is
// unconditional: completing maintenance always yields an available asset,
// and a later reconciliation pass re-applies any other open claim.
func (s *taskService) Complete(ctx context.Context, id string, performedBy string) error {
	if id == "" {
		return apperrors.InvalidInput("Maintenance task ID cannot be empty")
	}

	task, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if task.Status == model.MaintenanceCompleted {
		return apperrors.Conflict("Maintenance task is already completed")
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	task.Status = model.MaintenanceCompleted
	task.CompletedDate = &now
	if performedBy != "" {
		task.PerformedBy = sanitizer.NormalizeName(performedBy)
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.Update(sessCtx, id, task); err != nil {
			if errors.Is(err, maintenanceerrors.ErrAlreadyCompleted) {
				// A concurrent completion won the status-guarded write.
				return apperrors.Conflict("Maintenance task is already completed")
			}
			return apperrors.Internal("Failed to complete maintenance task", err)
		}
		if err := s.assets.UpdateStatus(sessCtx, task.AssetID, model.AssetAvailable); err != nil {
			return apperrors.Internal("Failed to release asset from maintenance", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to complete maintenance task", "id", id, "error", err)
		return err
	}

	s.cfg.Log.Info("Maintenance task completed",
		"id", id,
		"asset_id", task.AssetID,
		"performed_by", task.PerformedBy,
	)
	return nil
}

// --- Helpers ---

func (s *taskService) applyDefaults(t *model.MaintenanceTask) {
	if t.Status == "" {
		t.Status = model.MaintenancePending
	}
}

func (s *taskService) sanitize(t *model.MaintenanceTask) {
	t.Description = sanitizer.NormalizeText(t.Description)
	t.PerformedBy = sanitizer.NormalizeName(t.PerformedBy)
}

func (s *taskService) validate(task *model.MaintenanceTask) error {
	if err := s.validator.Validate(task); err != nil {
		s.cfg.Log.Warn("Maintenance task validation failed", "error", err)
		return apperrors.Validation("Maintenance task validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}
