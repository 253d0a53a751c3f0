package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	assetserrors "depot/internal/assets/errors"
	"depot/internal/assets/repository"
	"depot/internal/assets/validator"
	"depot/pkg/config"
	apperrors "depot/pkg/errors"
	"depot/pkg/model"
	"depot/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

// Deleting an asset cascades to the reservation records that reference it.
// Each interface is the slice of a reservations repository the cascade
// needs.
type LoanCascade interface {
	DeleteByAsset(ctx context.Context, assetID string) error
}

type RequestCascade interface {
	DeleteByAsset(ctx context.Context, assetID string) error
}

type EventCascade interface {
	RemoveAssetReferences(ctx context.Context, assetID string) error
}

type AssetService interface {
	Create(ctx context.Context, asset *model.Asset) error
	GetByID(ctx context.Context, id string) (*model.Asset, error)
	GetAll(ctx context.Context, filter repository.AssetFilter, limit int, offset int64) ([]*model.Asset, int64, *model.AssetStatusCounts, error)
	Update(ctx context.Context, id string, updates *model.AssetUpdate) error
	UpdateStatus(ctx context.Context, id string, status string) error
	Delete(ctx context.Context, id string) error
}

type assetService struct {
	repo      repository.AssetRepository
	loans     LoanCascade
	requests  RequestCascade
	events    EventCascade
	validator *validator.AssetValidator
	cfg       *config.Config
}

func NewAssetService(
	repo repository.AssetRepository,
	loans LoanCascade,
	requests RequestCascade,
	events EventCascade,
	validator *validator.AssetValidator,
	cfg *config.Config,
) AssetService {
	return &assetService{
		repo:      repo,
		loans:     loans,
		requests:  requests,
		events:    events,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *assetService) Create(ctx context.Context, asset *model.Asset) error {
	s.applyDefaults(asset)
	s.sanitize(asset)
	if err := s.validate(asset); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, asset); err != nil {
		s.cfg.Log.Error("Failed to create asset", "error", err)
		return apperrors.Internal("Failed to create asset", err)
	}

	if asset.Code == "" {
		code := GenerateCode(asset.Category, asset.Seq, s.cfg.AssetCodePadding, s.cfg.DefaultCategoryPrefix)
		if err := s.repo.SetCode(ctx, asset.ID, code); err != nil {
			if errors.Is(err, assetserrors.ErrCodeAlreadySet) {
				// Another writer assigned the code between insert and
				// update; the stored value stands.
				s.cfg.Log.Warn("Asset code already assigned", "id", asset.ID)
			} else {
				s.cfg.Log.Error("Failed to assign asset code", "id", asset.ID, "error", err)
				return apperrors.Internal("Failed to assign asset code", err)
			}
		} else {
			asset.Code = code
		}
	}

	s.cfg.Log.Info("Asset created successfully",
		"id", asset.ID,
		"asset_code", asset.Code,
		"category", asset.Category,
	)
	return nil
}

func (s *assetService) GetByID(ctx context.Context, id string) (*model.Asset, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Asset ID cannot be empty")
	}

	asset, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateLookupError(err, id)
	}

	return asset, nil
}

func (s *assetService) GetAll(ctx context.Context, filter repository.AssetFilter, limit int, offset int64) ([]*model.Asset, int64, *model.AssetStatusCounts, error) {
	var assets []*model.Asset
	var count int64
	var counts *model.AssetStatusCounts
	var errFind, errCount, errStatus error
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		assets, errFind = s.repo.FindAll(ctx, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list assets", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve assets", errFind)
		}
	}()

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count assets", "error", errCount)
			errCount = apperrors.Internal("Failed to count assets", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		counts, errStatus = s.repo.CountByStatus(ctx)
		if errStatus != nil {
			s.cfg.Log.Error("Failed to count assets by status", "error", errStatus)
			errStatus = apperrors.Internal("Failed to count assets by status", errStatus)
		}
	}()

	wg.Wait()
	if errFind != nil {
		return nil, 0, nil, errFind
	}
	if errCount != nil {
		return nil, 0, nil, errCount
	}
	if errStatus != nil {
		return nil, 0, nil, errStatus
	}

	return assets, count, counts, nil
}

func (s *assetService) Update(ctx context.Context, id string, updates *model.AssetUpdate) error {
	if id == "" {
		return apperrors.InvalidInput("Asset ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return s.translateLookupError(err, id)
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Asset update validation failed", "id", id, "error", err)
		return apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	merged := s.mergeAssetUpdates(existing, updates)
	s.sanitize(merged)
	if err := s.validate(merged); err != nil {
		return err
	}

	if err := s.repo.Update(ctx, id, merged); err != nil {
		if errors.Is(err, assetserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Asset", id)
		}
		s.cfg.Log.Error("Failed to update asset", "id", id, "error", err)
		return apperrors.Internal("Failed to update asset", err)
	}

	s.cfg.Log.Info("Asset updated successfully", "id", id)
	return nil
}

// UpdateStatus is the manual status edit. It bypasses the claim machinery
// on purpose: the reconciliation engine corrects any drift it introduces.
func (s *assetService) UpdateStatus(ctx context.Context, id string, status string) error {
	if id == "" {
		return apperrors.InvalidInput("Asset ID cannot be empty")
	}

	switch status {
	case model.AssetAvailable, model.AssetInUse, model.AssetMaintenance:
	default:
		return apperrors.InvalidInput(fmt.Sprintf("Invalid asset status: %s", status))
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, assetserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Asset", id)
		}
		if errors.Is(err, assetserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid asset ID format")
		}
		s.cfg.Log.Error("Failed to update asset status", "id", id, "error", err)
		return apperrors.Internal("Failed to update asset status", err)
	}

	s.cfg.Log.Info("Asset status updated", "id", id, "status", status)
	return nil
}

// Delete removes the asset and, in the same transaction, the loans and
// requests referencing it, and pulls its ID out of every event. Without the
// cascade the orphaned records would keep feeding the overlap queries.
func (s *assetService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Asset ID cannot be empty")
	}

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.Delete(sessCtx, id); err != nil {
			if errors.Is(err, assetserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Asset", id)
			}
			if errors.Is(err, assetserrors.ErrInvalidID) {
				return apperrors.InvalidInput("Invalid asset ID format")
			}
			return apperrors.Internal("Failed to delete asset", err)
		}
		if err := s.loans.DeleteByAsset(sessCtx, id); err != nil {
			return apperrors.Internal("Failed to delete loans for asset", err)
		}
		if err := s.requests.DeleteByAsset(sessCtx, id); err != nil {
			return apperrors.Internal("Failed to delete loan requests for asset", err)
		}
		if err := s.events.RemoveAssetReferences(sessCtx, id); err != nil {
			return apperrors.Internal("Failed to remove asset from events", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to delete asset", "id", id, "error", err)
		return err
	}

	s.cfg.Log.Info("Asset deleted successfully", "id", id)
	return nil
}

// --- Helpers ---

// GenerateCode derives the human-facing inventory code from the category
// and the asset's allocated sequence number: first three letters of the
// category uppercased (fallback prefix when the category is too short to
// matter), a dash, and the zero-padded sequence.
func GenerateCode(category string, seq int64, padding int, fallbackPrefix string) string {
	prefix := fallbackPrefix
	runes := []rune(strings.TrimSpace(category))
	if len(runes) >= 3 {
		prefix = strings.ToUpper(string(runes[:3]))
	} else if len(runes) > 0 {
		prefix = strings.ToUpper(string(runes))
	}
	return fmt.Sprintf("%s-%0*d", prefix, padding, seq)
}

func (s *assetService) applyDefaults(a *model.Asset) {
	if a.Status == "" {
		a.Status = model.AssetAvailable
	}
}

func (s *assetService) sanitize(a *model.Asset) {
	a.Name = sanitizer.NormalizeName(a.Name)
	a.Category = sanitizer.NormalizeName(a.Category)
	a.Location = sanitizer.NormalizeLocation(a.Location)
}

func (s *assetService) mergeAssetUpdates(existing *model.Asset, updates *model.AssetUpdate) *model.Asset {
	merged := *existing

	if updates.Name != "" {
		merged.Name = updates.Name
	}
	if updates.Category != "" {
		merged.Category = updates.Category
	}
	if updates.Location != "" {
		merged.Location = updates.Location
	}
	if updates.Status != "" {
		merged.Status = updates.Status
	}

	return &merged
}

func (s *assetService) validate(asset *model.Asset) error {
	if err := s.validator.Validate(asset); err != nil {
		s.cfg.Log.Warn("Asset validation failed", "error", err)
		return apperrors.Validation("Asset validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *assetService) translateLookupError(err error, id string) error {
	if errors.Is(err, assetserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Asset", id)
	}
	if errors.Is(err, assetserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid asset ID format")
	}
	return apperrors.Internal("Failed to retrieve asset", err)
}
