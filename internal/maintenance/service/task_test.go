package service

import (
	"context"
	"testing"
	"time"

	maintenanceerrors "depot/internal/maintenance/errors"
	"depot/internal/maintenance/validator"
	"depot/pkg/config"
	mongotx "depot/pkg/db/mongo"
	apperrors "depot/pkg/errors"
	"depot/pkg/logger"
	"depot/pkg/model"
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
	}
}

type mockTaskRepository struct {
	createFunc           func(ctx context.Context, task *model.MaintenanceTask) error
	findByIDFunc         func(ctx context.Context, id string) (*model.MaintenanceTask, error)
	findAllFunc          func(ctx context.Context, status string, limit int, offset int64) ([]*model.MaintenanceTask, error)
	countFunc            func(ctx context.Context, status string) (int64, error)
	updateFunc           func(ctx context.Context, id string, task *model.MaintenanceTask) error
	hasOpenTaskFunc      func(ctx context.Context, assetID string) (bool, error)
	openTaskAssetIDsFunc func(ctx context.Context) (map[string]struct{}, error)
}

func (m *mockTaskRepository) Create(ctx context.Context, task *model.MaintenanceTask) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, task)
	}
	return nil
}

func (m *mockTaskRepository) FindByID(ctx context.Context, id string) (*model.MaintenanceTask, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, maintenanceerrors.ErrNotFound
}

func (m *mockTaskRepository) FindAll(ctx context.Context, status string, limit int, offset int64) ([]*model.MaintenanceTask, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx, status, limit, offset)
	}
	return []*model.MaintenanceTask{}, nil
}

func (m *mockTaskRepository) Count(ctx context.Context, status string) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, status)
	}
	return 0, nil
}

func (m *mockTaskRepository) Update(ctx context.Context, id string, task *model.MaintenanceTask) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, task)
	}
	return nil
}

func (m *mockTaskRepository) HasOpenTask(ctx context.Context, assetID string) (bool, error) {
	if m.hasOpenTaskFunc != nil {
		return m.hasOpenTaskFunc(ctx, assetID)
	}
	return false, nil
}

func (m *mockTaskRepository) OpenTaskAssetIDs(ctx context.Context) (map[string]struct{}, error) {
	if m.openTaskAssetIDsFunc != nil {
		return m.openTaskAssetIDsFunc(ctx)
	}
	return map[string]struct{}{}, nil
}

func (m *mockTaskRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type mockAssetStore struct {
	findByIDFunc     func(ctx context.Context, id string) (*model.Asset, error)
	updateStatusFunc func(ctx context.Context, id string, status string) error
}

func (m *mockAssetStore) FindByID(ctx context.Context, id string) (*model.Asset, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return &model.Asset{ID: id, Status: model.AssetAvailable}, nil
}

func (m *mockAssetStore) UpdateStatus(ctx context.Context, id string, status string) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status)
	}
	return nil
}

func TestCreate_MarksAssetUnderMaintenance(t *testing.T) {
	cfg := newTestConfig()

	var statusWritten string
	assets := &mockAssetStore{
		updateStatusFunc: func(ctx context.Context, id string, status string) error {
			statusWritten = status
			return nil
		},
	}

	svc := NewTaskService(&mockTaskRepository{}, assets, validator.NewTaskValidator(cfg.Log), cfg)

	task := &model.MaintenanceTask{
		AssetID:     "507f1f77bcf86cd799439011",
		Description: "Annual calibration",
	}
	if err := svc.Create(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if task.Status != model.MaintenancePending {
		t.Errorf("expected default status pending, got %q", task.Status)
	}
	if statusWritten != model.AssetMaintenance {
		t.Errorf("expected asset marked maintenance, got %q", statusWritten)
	}
}

func TestCreate_MissingAsset(t *testing.T) {
	cfg := newTestConfig()

	assets := &mockAssetStore{
		findByIDFunc: func(ctx context.Context, id string) (*model.Asset, error) {
			return nil, maintenanceerrors.ErrNotFound
		},
	}

	svc := NewTaskService(&mockTaskRepository{}, assets, validator.NewTaskValidator(cfg.Log), cfg)

	task := &model.MaintenanceTask{AssetID: "507f1f77bcf86cd799439011"}
	err := svc.Create(context.Background(), task)
	if err == nil {
		t.Fatal("expected error for missing asset")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeNotFound {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestCreate_OpenTaskIsConflict(t *testing.T) {
	cfg := newTestConfig()

	created := false
	repo := &mockTaskRepository{
		createFunc: func(ctx context.Context, task *model.MaintenanceTask) error {
			created = true
			return nil
		},
		hasOpenTaskFunc: func(ctx context.Context, assetID string) (bool, error) {
			return true, nil
		},
	}

	assetTouched := false
	assets := &mockAssetStore{
		updateStatusFunc: func(ctx context.Context, id string, status string) error {
			assetTouched = true
			return nil
		},
	}

	svc := NewTaskService(repo, assets, validator.NewTaskValidator(cfg.Log), cfg)

	task := &model.MaintenanceTask{AssetID: "507f1f77bcf86cd799439011"}
	err := svc.Create(context.Background(), task)
	if err == nil {
		t.Fatal("expected conflict when the asset already has an open task")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeConflict {
		t.Errorf("expected CONFLICT, got %v", err)
	}
	if created {
		t.Error("second task must not be stored")
	}
	if assetTouched {
		t.Error("asset must not be touched when the task is rejected")
	}
}

func TestComplete_ReleasesAsset(t *testing.T) {
	cfg := newTestConfig()

	var statusWritten string
	var savedTask *model.MaintenanceTask

	repo := &mockTaskRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.MaintenanceTask, error) {
			return &model.MaintenanceTask{
				ID:      id,
				AssetID: "507f1f77bcf86cd799439011",
				Status:  model.MaintenanceInProgress,
			}, nil
		},
		updateFunc: func(ctx context.Context, id string, task *model.MaintenanceTask) error {
			savedTask = task
			return nil
		},
	}
	assets := &mockAssetStore{
		updateStatusFunc: func(ctx context.Context, id string, status string) error {
			statusWritten = status
			return nil
		},
	}

	svc := NewTaskService(repo, assets, validator.NewTaskValidator(cfg.Log), cfg)

	if err := svc.Complete(context.Background(), "507f1f77bcf86cd799439012", "J. Ortega"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if savedTask == nil {
		t.Fatal("expected task to be updated")
	}
	if savedTask.Status != model.MaintenanceCompleted {
		t.Errorf("expected completed, got %q", savedTask.Status)
	}
	if savedTask.CompletedDate == nil {
		t.Error("expected completed date to be stamped")
	}
	if savedTask.PerformedBy != "J. Ortega" {
		t.Errorf("expected performed_by recorded, got %q", savedTask.PerformedBy)
	}
	if statusWritten != model.AssetAvailable {
		t.Errorf("expected asset released to available, got %q", statusWritten)
	}
}

func TestComplete_AlreadyCompleted(t *testing.T) {
	cfg := newTestConfig()

	repo := &mockTaskRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.MaintenanceTask, error) {
			return &model.MaintenanceTask{
				ID:      id,
				AssetID: "507f1f77bcf86cd799439011",
				Status:  model.MaintenanceCompleted,
			}, nil
		},
	}

	svc := NewTaskService(repo, &mockAssetStore{}, validator.NewTaskValidator(cfg.Log), cfg)

	err := svc.Complete(context.Background(), "507f1f77bcf86cd799439012", "")
	if err == nil {
		t.Fatal("expected conflict for already completed task")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeConflict {
		t.Errorf("expected CONFLICT, got %v", err)
	}
}

func TestComplete_LostRaceIsConflict(t *testing.T) {
	cfg := newTestConfig()

	repo := &mockTaskRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.MaintenanceTask, error) {
			return &model.MaintenanceTask{
				ID:      id,
				AssetID: "507f1f77bcf86cd799439011",
				Status:  model.MaintenanceInProgress,
			}, nil
		},
		updateFunc: func(ctx context.Context, id string, task *model.MaintenanceTask) error {
			// Another completion got the status-guarded write first.
			return maintenanceerrors.ErrAlreadyCompleted
		},
	}

	assetTouched := false
	assets := &mockAssetStore{
		updateStatusFunc: func(ctx context.Context, id string, status string) error {
			assetTouched = true
			return nil
		},
	}

	svc := NewTaskService(repo, assets, validator.NewTaskValidator(cfg.Log), cfg)

	err := svc.Complete(context.Background(), "507f1f77bcf86cd799439012", "J. Ortega")
	if err == nil {
		t.Fatal("expected conflict when the completion lost the race")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeConflict {
		t.Errorf("expected CONFLICT, got %v", err)
	}
	if assetTouched {
		t.Error("asset must not be released by the losing completion")
	}
}
