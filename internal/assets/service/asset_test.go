package service

import (
	"context"
	"testing"

	assetserrors "depot/internal/assets/errors"
	"depot/internal/assets/repository"
	"depot/internal/assets/validator"
	"depot/pkg/config"
	mongotx "depot/pkg/db/mongo"
	apperrors "depot/pkg/errors"
	"depot/pkg/model"
)

type mockAssetRepository struct {
	createFunc        func(ctx context.Context, asset *model.Asset) error
	findByIDFunc      func(ctx context.Context, id string) (*model.Asset, error)
	findAllFunc       func(ctx context.Context, filter repository.AssetFilter, limit int, offset int64) ([]*model.Asset, error)
	listAllFunc       func(ctx context.Context) ([]*model.Asset, error)
	countFunc         func(ctx context.Context, filter repository.AssetFilter) (int64, error)
	countByStatusFunc func(ctx context.Context) (*model.AssetStatusCounts, error)
	updateFunc        func(ctx context.Context, id string, asset *model.Asset) error
	updateStatusFunc  func(ctx context.Context, id string, status string) error
	setCodeFunc       func(ctx context.Context, id string, code string) error
	deleteFunc        func(ctx context.Context, id string) error
}

func (m *mockAssetRepository) Create(ctx context.Context, asset *model.Asset) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, asset)
	}
	return nil
}

func (m *mockAssetRepository) FindByID(ctx context.Context, id string) (*model.Asset, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, assetserrors.ErrNotFound
}

func (m *mockAssetRepository) FindAll(ctx context.Context, filter repository.AssetFilter, limit int, offset int64) ([]*model.Asset, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx, filter, limit, offset)
	}
	return []*model.Asset{}, nil
}

func (m *mockAssetRepository) ListAll(ctx context.Context) ([]*model.Asset, error) {
	if m.listAllFunc != nil {
		return m.listAllFunc(ctx)
	}
	return []*model.Asset{}, nil
}

func (m *mockAssetRepository) Count(ctx context.Context, filter repository.AssetFilter) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, filter)
	}
	return 0, nil
}

func (m *mockAssetRepository) CountByStatus(ctx context.Context) (*model.AssetStatusCounts, error) {
	if m.countByStatusFunc != nil {
		return m.countByStatusFunc(ctx)
	}
	return &model.AssetStatusCounts{}, nil
}

func (m *mockAssetRepository) Update(ctx context.Context, id string, asset *model.Asset) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, asset)
	}
	return nil
}

func (m *mockAssetRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockAssetRepository) SetCode(ctx context.Context, id string, code string) error {
	if m.setCodeFunc != nil {
		return m.setCodeFunc(ctx, id, code)
	}
	return nil
}

func (m *mockAssetRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockAssetRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type mockLoanCascade struct{ purged []string }

func (m *mockLoanCascade) DeleteByAsset(ctx context.Context, assetID string) error {
	m.purged = append(m.purged, assetID)
	return nil
}

type mockRequestCascade struct{ purged []string }

func (m *mockRequestCascade) DeleteByAsset(ctx context.Context, assetID string) error {
	m.purged = append(m.purged, assetID)
	return nil
}

type mockEventCascade struct{ pulled []string }

func (m *mockEventCascade) RemoveAssetReferences(ctx context.Context, assetID string) error {
	m.pulled = append(m.pulled, assetID)
	return nil
}

func newAssetService(repo *mockAssetRepository, cfg *config.Config) AssetService {
	return NewAssetService(
		repo,
		&mockLoanCascade{},
		&mockRequestCascade{},
		&mockEventCascade{},
		validator.NewAssetValidator(cfg.Log),
		cfg,
	)
}

func TestGenerateCode(t *testing.T) {
	cases := []struct {
		name     string
		category string
		seq      int64
		padding  int
		fallback string
		want     string
	}{
		{"long category", "Electronics", 7, 4, "GEN", "ELE-0007"},
		{"short category", "TV", 12, 4, "GEN", "TV-0012"},
		{"empty category falls back", "", 3, 4, "GEN", "GEN-0003"},
		{"whitespace only falls back", "   ", 3, 4, "GEN", "GEN-0003"},
		{"lowercase is uppercased", "projector", 1, 4, "GEN", "PRO-0001"},
		{"non-ascii category", "Микроскоп", 9, 4, "GEN", "МИК-0009"},
		{"wider padding", "Electronics", 42, 6, "GEN", "ELE-000042"},
		{"sequence exceeds padding", "Electronics", 123456, 4, "GEN", "ELE-123456"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := GenerateCode(tc.category, tc.seq, tc.padding, tc.fallback)
			if got != tc.want {
				t.Errorf("GenerateCode(%q, %d, %d, %q) = %q, want %q", tc.category, tc.seq, tc.padding, tc.fallback, got, tc.want)
			}
		})
	}
}

func TestCreate_AssignsGeneratedCode(t *testing.T) {
	cfg := newTestConfig()

	var assignedCode string
	mockRepo := &mockAssetRepository{
		createFunc: func(ctx context.Context, asset *model.Asset) error {
			asset.ID = "507f1f77bcf86cd799439011"
			asset.Seq = 7
			return nil
		},
		setCodeFunc: func(ctx context.Context, id string, code string) error {
			assignedCode = code
			return nil
		},
	}

	svc := newAssetService(mockRepo, cfg)

	asset := &model.Asset{
		Name:     "Oscilloscope",
		Category: "Electronics",
		Location: "Lab 2",
	}
	if err := svc.Create(context.Background(), asset); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if assignedCode != "ELE-0007" {
		t.Errorf("expected code ELE-0007, got %q", assignedCode)
	}
	if asset.Code != "ELE-0007" {
		t.Errorf("expected asset.Code ELE-0007, got %q", asset.Code)
	}
	if asset.Status != model.AssetAvailable {
		t.Errorf("expected default status available, got %q", asset.Status)
	}
}

func TestCreate_CodeAlreadySetIsNotAnError(t *testing.T) {
	cfg := newTestConfig()

	mockRepo := &mockAssetRepository{
		createFunc: func(ctx context.Context, asset *model.Asset) error {
			asset.ID = "507f1f77bcf86cd799439011"
			asset.Seq = 7
			return nil
		},
		setCodeFunc: func(ctx context.Context, id string, code string) error {
			return assetserrors.ErrCodeAlreadySet
		},
	}

	svc := newAssetService(mockRepo, cfg)

	asset := &model.Asset{
		Name:     "Oscilloscope",
		Category: "Electronics",
		Location: "Lab 2",
	}
	if err := svc.Create(context.Background(), asset); err != nil {
		t.Fatalf("expected lost code race to be swallowed, got: %v", err)
	}

	if asset.Code != "" {
		t.Errorf("expected code to stay empty when another writer won, got %q", asset.Code)
	}
}

func TestCreate_PresetCodeIsKept(t *testing.T) {
	cfg := newTestConfig()

	setCodeCalled := false
	mockRepo := &mockAssetRepository{
		createFunc: func(ctx context.Context, asset *model.Asset) error {
			asset.ID = "507f1f77bcf86cd799439011"
			asset.Seq = 7
			return nil
		},
		setCodeFunc: func(ctx context.Context, id string, code string) error {
			setCodeCalled = true
			return nil
		},
	}

	svc := newAssetService(mockRepo, cfg)

	asset := &model.Asset{
		Name:     "Oscilloscope",
		Code:     "CUSTOM-1",
		Category: "Electronics",
		Location: "Lab 2",
	}
	if err := svc.Create(context.Background(), asset); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if setCodeCalled {
		t.Error("SetCode should not run when the asset already carries a code")
	}
}

func TestUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	cfg := newTestConfig()
	svc := newAssetService(&mockAssetRepository{}, cfg)

	err := svc.UpdateStatus(context.Background(), "507f1f77bcf86cd799439011", "retired")
	if err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestDelete_CascadesReservationRecords(t *testing.T) {
	cfg := newTestConfig()

	deleted := false
	mockRepo := &mockAssetRepository{
		deleteFunc: func(ctx context.Context, id string) error {
			deleted = true
			return nil
		},
	}
	loans := &mockLoanCascade{}
	requests := &mockRequestCascade{}
	events := &mockEventCascade{}

	svc := NewAssetService(mockRepo, loans, requests, events, validator.NewAssetValidator(cfg.Log), cfg)

	id := "507f1f77bcf86cd799439011"
	if err := svc.Delete(context.Background(), id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !deleted {
		t.Error("expected asset document removed")
	}
	if len(loans.purged) != 1 || loans.purged[0] != id {
		t.Errorf("expected loans purged for %s, got %v", id, loans.purged)
	}
	if len(requests.purged) != 1 || requests.purged[0] != id {
		t.Errorf("expected requests purged for %s, got %v", id, requests.purged)
	}
	if len(events.pulled) != 1 || events.pulled[0] != id {
		t.Errorf("expected asset pulled from events, got %v", events.pulled)
	}
}

func TestDelete_MissingAssetSkipsCascade(t *testing.T) {
	cfg := newTestConfig()

	mockRepo := &mockAssetRepository{
		deleteFunc: func(ctx context.Context, id string) error {
			return assetserrors.ErrNotFound
		},
	}
	loans := &mockLoanCascade{}
	requests := &mockRequestCascade{}
	events := &mockEventCascade{}

	svc := NewAssetService(mockRepo, loans, requests, events, validator.NewAssetValidator(cfg.Log), cfg)

	err := svc.Delete(context.Background(), "507f1f77bcf86cd799439011")
	if err == nil {
		t.Fatal("expected error for missing asset")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeNotFound {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
	if len(loans.purged) != 0 || len(requests.purged) != 0 || len(events.pulled) != 0 {
		t.Error("cascade must not run when the asset does not exist")
	}
}
