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
	"depot/pkg/interval"
	"depot/pkg/model"
)

// AvailabilityService answers "can this asset be reserved for this window".
// It is a pure read: no call here ever mutates state, so callers may consult
// it as often as they like.
type AvailabilityService interface {
	IsAvailable(ctx context.Context, assetID string, start, end *time.Time) (bool, error)
	Search(ctx context.Context, name string, start, end *time.Time, limit int, offset int64) ([]model.AssetSummary, int64, error)
}

type availabilityService struct {
	assets repository.AssetRepository
	events repository.EventRepository
	cfg    *config.Config
}

func NewAvailabilityService(
	assets repository.AssetRepository,
	events repository.EventRepository,
	cfg *config.Config,
) AvailabilityService {
	return &availabilityService{
		assets: assets,
		events: events,
		cfg:    cfg,
	}
}

// IsAvailable checks the coarse status first and only then the interval
// machinery: an asset under maintenance or on loan is unavailable no matter
// what the calendar says. Omitted bounds default to now, so a bare call
// means "is it free right this instant".
func (s *availabilityService) IsAvailable(ctx context.Context, assetID string, start, end *time.Time) (bool, error) {
	if assetID == "" {
		return false, apperrors.InvalidInput("Asset ID cannot be empty")
	}

	window := resolveWindow(start, end)

	asset, err := s.assets.FindByID(ctx, assetID)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrAssetNotFound) {
			return false, apperrors.NotFoundWithID("Asset", assetID)
		}
		if errors.Is(err, reservationserrors.ErrInvalidID) {
			return false, apperrors.InvalidInput("Invalid asset ID format")
		}
		return false, apperrors.Internal("Failed to retrieve asset", err)
	}

	if asset.Status != model.AssetAvailable {
		return false, nil
	}

	overlap, err := s.events.HasBlockingOverlap(ctx, assetID, window.Start, window.End)
	if err != nil {
		s.cfg.Log.Error("Failed to check event overlap", "asset_id", assetID, "error", err)
		return false, apperrors.Internal("Failed to check availability", err)
	}

	return !overlap, nil
}

// Search lists assets with no blocking reservation in the window. The
// exclusion set comes from the event calendar alone; each summary still
// carries the coarse status so callers can see an asset that is free for
// the window but on loan today.
func (s *availabilityService) Search(ctx context.Context, name string, start, end *time.Time, limit int, offset int64) ([]model.AssetSummary, int64, error) {
	window := resolveWindow(start, end)

	reserved, err := s.events.ReservedAssetIDs(ctx, window.Start, window.End)
	if err != nil {
		s.cfg.Log.Error("Failed to list reserved assets", "error", err)
		return nil, 0, apperrors.Internal("Failed to search available assets", err)
	}

	var assets []*model.Asset
	var total int64
	var errFind, errCount error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		assets, errFind = s.assets.FindAvailable(ctx, name, reserved, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to search available assets", "error", errFind)
			errFind = apperrors.Internal("Failed to search available assets", errFind)
		}
	}()

	go func() {
		defer wg.Done()
		total, errCount = s.assets.CountAvailable(ctx, name, reserved)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count available assets", "error", errCount)
			errCount = apperrors.Internal("Failed to count available assets", errCount)
		}
	}()

	wg.Wait()
	if errFind != nil {
		return nil, 0, errFind
	}
	if errCount != nil {
		return nil, 0, errCount
	}

	summaries := make([]model.AssetSummary, 0, len(assets))
	for _, asset := range assets {
		summaries = append(summaries, asset.Summary())
	}

	return summaries, total, nil
}

// resolveWindow applies the defaulting rule: a missing start is now, a
// missing end collapses to the start. Both missing yields the zero-width
// "right now" instant.
func resolveWindow(start, end *time.Time) interval.Range {
	s := time.Now().UTC()
	if start != nil {
		s = *start
	}
	return interval.New(s, end)
}
