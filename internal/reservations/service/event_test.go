package service

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"depot/internal/reservations/validator"
	apperrors "depot/pkg/errors"
	"depot/pkg/model"
)

const testEventID = "807f1f77bcf86cd799439002"

func newEventService(events *mockEventRepo, assets *mockAssetRepo, locks *mockLockRepo) EventService {
	cfg := newTestConfig()
	availability := NewAvailabilityService(assets, events, cfg)
	return NewEventService(events, availability, assets, locks, validator.NewEventValidator(cfg.Log), cfg)
}

func pendingEvent(assetIDs ...string) *model.Event {
	start := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Hour)
	return &model.Event{
		ID:               testEventID,
		Title:            "Equipment demo",
		Type:             model.EventTypeGeneric,
		StartTime:        start,
		EndTime:          &end,
		Status:           model.EventPending,
		ReservedAssetIDs: assetIDs,
	}
}

func TestEventApprove_LocksAssetsInSortedOrder(t *testing.T) {
	assetA := "507f1f77bcf86cd799439011"
	assetB := "107f1f77bcf86cd799439022"

	event := pendingEvent(assetA, assetB)

	var approvedStatus string
	events := &mockEventRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Event, error) {
			copied := *event
			return &copied, nil
		},
		updateStatusFunc: func(ctx context.Context, id string, status string) error {
			approvedStatus = status
			return nil
		},
	}
	assets := &mockAssetRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Asset, error) {
			return &model.Asset{ID: id, Status: model.AssetAvailable}, nil
		},
	}

	var acquired []string
	locks := &mockLockRepo{
		createFunc: func(ctx context.Context, lock *model.AssetLock) (*model.AssetLock, error) {
			acquired = append(acquired, lock.ID)
			return lock, nil
		},
	}

	svc := newEventService(events, assets, locks)

	if err := svc.Approve(context.Background(), testEventID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if approvedStatus != model.EventApproved {
		t.Errorf("expected event approved, got %q", approvedStatus)
	}
	if len(acquired) != 2 {
		t.Fatalf("expected 2 locks, got %d", len(acquired))
	}
	if !sort.StringsAreSorted(acquired) {
		t.Errorf("locks must be acquired in sorted order, got %v", acquired)
	}
	if len(locks.deleted) != 2 {
		t.Errorf("expected both locks released, got %v", locks.deleted)
	}
}

func TestEventApprove_ConflictLeavesEventPending(t *testing.T) {
	event := pendingEvent(testAssetID)

	statusUpdated := false
	events := &mockEventRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Event, error) {
			copied := *event
			return &copied, nil
		},
		updateStatusFunc: func(ctx context.Context, id string, status string) error {
			statusUpdated = true
			return nil
		},
		hasBlockingOverlapFunc: func(ctx context.Context, assetID string, start, end time.Time) (bool, error) {
			return true, nil
		},
	}
	assets := &mockAssetRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Asset, error) {
			return &model.Asset{ID: id, Name: "Projector-1", Status: model.AssetAvailable}, nil
		},
	}
	locks := &mockLockRepo{}

	svc := newEventService(events, assets, locks)

	err := svc.Approve(context.Background(), testEventID)
	if err == nil {
		t.Fatal("expected conflict for overlapping reservation")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeConflict {
		t.Errorf("expected CONFLICT, got %v", err)
	}
	if msg := apperrors.AsAppError(err).Message; !strings.Contains(msg, "Projector-1") {
		t.Errorf("conflict message must name the asset, got %q", msg)
	}
	if statusUpdated {
		t.Error("event must stay pending when the window is taken")
	}
	if len(locks.deleted) != 1 {
		t.Errorf("expected lock released after abort, got %v", locks.deleted)
	}
}

func TestEventApprove_RequiresPendingState(t *testing.T) {
	event := pendingEvent(testAssetID)
	event.Status = model.EventApproved

	events := &mockEventRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Event, error) {
			copied := *event
			return &copied, nil
		},
	}

	svc := newEventService(events, &mockAssetRepo{}, &mockLockRepo{})

	err := svc.Approve(context.Background(), testEventID)
	if err == nil {
		t.Fatal("expected error for non-pending event")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestEventCreate_PendingReservesNothing(t *testing.T) {
	overlapConsulted := false
	events := &mockEventRepo{
		hasBlockingOverlapFunc: func(ctx context.Context, assetID string, start, end time.Time) (bool, error) {
			overlapConsulted = true
			return true, nil
		},
	}

	svc := newEventService(events, &mockAssetRepo{}, &mockLockRepo{})

	event := pendingEvent(testAssetID)
	event.ID = ""
	if err := svc.Create(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if event.Status != model.EventPending {
		t.Errorf("expected pending status, got %q", event.Status)
	}
	if overlapConsulted {
		t.Error("creating a pending event must not run availability checks")
	}
}

func TestCalendar_ResolvesMissingEnd(t *testing.T) {
	start := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)

	events := &mockEventRepo{
		findInWindowFunc: func(ctx context.Context, from, to *time.Time) ([]*model.Event, error) {
			return []*model.Event{
				{ID: "1", Title: "Open-ended visit", Type: model.EventTypeVisit, Status: model.EventApproved, StartTime: start},
			}, nil
		},
	}

	svc := newEventService(events, &mockAssetRepo{}, &mockLockRepo{})

	entries, err := svc.Calendar(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if !entries[0].End.Equal(start) {
		t.Errorf("expected end to fall back to start, got %v", entries[0].End)
	}
}
