package service

import (
	"context"
	"testing"
	"time"

	apperrors "depot/pkg/errors"
	"depot/pkg/model"
)

const testAssetID = "507f1f77bcf86cd799439011"

func TestIsAvailable_EmptyAssetID(t *testing.T) {
	cfg := newTestConfig()
	svc := NewAvailabilityService(&mockAssetRepo{}, &mockEventRepo{}, cfg)

	_, err := svc.IsAvailable(context.Background(), "", nil, nil)
	if err == nil {
		t.Fatal("expected error for empty asset ID")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestIsAvailable_CoarseStatusVeto(t *testing.T) {
	cfg := newTestConfig()

	overlapConsulted := false
	assets := &mockAssetRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Asset, error) {
			return &model.Asset{ID: id, Status: model.AssetMaintenance}, nil
		},
	}
	events := &mockEventRepo{
		hasBlockingOverlapFunc: func(ctx context.Context, assetID string, start, end time.Time) (bool, error) {
			overlapConsulted = true
			return false, nil
		},
	}

	svc := NewAvailabilityService(assets, events, cfg)

	available, err := svc.IsAvailable(context.Background(), testAssetID, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if available {
		t.Error("asset under maintenance must not be available")
	}
	if overlapConsulted {
		t.Error("coarse status veto should short-circuit the overlap query")
	}
}

func TestIsAvailable_BlockingOverlap(t *testing.T) {
	cfg := newTestConfig()

	assets := &mockAssetRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Asset, error) {
			return &model.Asset{ID: id, Status: model.AssetAvailable}, nil
		},
	}
	events := &mockEventRepo{
		hasBlockingOverlapFunc: func(ctx context.Context, assetID string, start, end time.Time) (bool, error) {
			return true, nil
		},
	}

	svc := NewAvailabilityService(assets, events, cfg)

	available, err := svc.IsAvailable(context.Background(), testAssetID, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if available {
		t.Error("blocking overlap must make the asset unavailable")
	}
}

func TestIsAvailable_WindowDefaults(t *testing.T) {
	cfg := newTestConfig()

	var gotStart, gotEnd time.Time
	assets := &mockAssetRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Asset, error) {
			return &model.Asset{ID: id, Status: model.AssetAvailable}, nil
		},
	}
	events := &mockEventRepo{
		hasBlockingOverlapFunc: func(ctx context.Context, assetID string, start, end time.Time) (bool, error) {
			gotStart, gotEnd = start, end
			return false, nil
		},
	}

	svc := NewAvailabilityService(assets, events, cfg)

	// Missing end collapses to the start instant.
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	available, err := svc.IsAvailable(context.Background(), testAssetID, &start, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !available {
		t.Error("expected asset to be available")
	}
	if !gotStart.Equal(start) || !gotEnd.Equal(start) {
		t.Errorf("expected zero-width window at %v, got [%v, %v)", start, gotStart, gotEnd)
	}

	// Missing both bounds means "right now".
	before := time.Now().UTC()
	if _, err := svc.IsAvailable(context.Background(), testAssetID, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after := time.Now().UTC()

	if gotStart.Before(before) || gotStart.After(after) {
		t.Errorf("expected window start near now, got %v", gotStart)
	}
	if !gotEnd.Equal(gotStart) {
		t.Errorf("expected instant window, got [%v, %v)", gotStart, gotEnd)
	}
}

func TestSearch_ExcludesReservedAssets(t *testing.T) {
	cfg := newTestConfig()

	reserved := map[string]struct{}{testAssetID: {}}

	var gotExclude map[string]struct{}
	assets := &mockAssetRepo{
		findAvailableFunc: func(ctx context.Context, name string, excludeIDs map[string]struct{}, limit int, offset int64) ([]*model.Asset, error) {
			gotExclude = excludeIDs
			return []*model.Asset{
				{ID: "507f1f77bcf86cd799439012", Name: "Projector", Status: model.AssetAvailable},
			}, nil
		},
		countAvailableFunc: func(ctx context.Context, name string, excludeIDs map[string]struct{}) (int64, error) {
			return 1, nil
		},
	}
	events := &mockEventRepo{
		reservedAssetIDsFunc: func(ctx context.Context, start, end time.Time) (map[string]struct{}, error) {
			return reserved, nil
		},
	}

	svc := NewAvailabilityService(assets, events, cfg)

	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	summaries, total, err := svc.Search(context.Background(), "", &start, &end, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if total != 1 || len(summaries) != 1 {
		t.Fatalf("expected 1 result, got total=%d len=%d", total, len(summaries))
	}
	if summaries[0].Name != "Projector" {
		t.Errorf("unexpected summary: %+v", summaries[0])
	}
	if _, excluded := gotExclude[testAssetID]; !excluded {
		t.Error("reserved asset should be excluded from the search")
	}
}
