package service

import (
	"context"

	"depot/pkg/config"
	apperrors "depot/pkg/errors"
	"depot/pkg/model"
)

// AssetLister is the slice of the asset repository the reconciliation
// engine needs: the full inventory plus targeted status writes.
type AssetLister interface {
	ListAll(ctx context.Context) ([]*model.Asset, error)
	UpdateStatus(ctx context.Context, id string, status string) error
}

// MaintenanceClaims reports which assets are held by open maintenance tasks.
type MaintenanceClaims interface {
	OpenTaskAssetIDs(ctx context.Context) (map[string]struct{}, error)
}

// LoanClaims reports which assets are held by active loans.
type LoanClaims interface {
	ActiveLoanAssetIDs(ctx context.Context) (map[string]struct{}, error)
}

type ResyncService interface {
	Resync(ctx context.Context) (*ResyncReport, error)
}

// ResyncReport summarizes one reconciliation pass.
type ResyncReport struct {
	Scanned   int `json:"scanned"`
	Corrected int `json:"corrected"`
}

type resyncService struct {
	assets      AssetLister
	maintenance MaintenanceClaims
	loans       LoanClaims
	notifier    ResyncNotifier
	cfg         *config.Config
}

func NewResyncService(
	assets AssetLister,
	maintenance MaintenanceClaims,
	loans LoanClaims,
	notifier ResyncNotifier,
	cfg *config.Config,
) ResyncService {
	return &resyncService{
		assets:      assets,
		maintenance: maintenance,
		loans:       loans,
		notifier:    notifier,
		cfg:         cfg,
	}
}

// DesiredStatus is the precedence rule for the denormalized asset status:
// an open maintenance task outranks an active loan, which outranks
// availability. Events are deliberately not consulted; they are enforced at
// reservation time by the availability check.
func DesiredStatus(openMaintenance, activeLoan bool) string {
	if openMaintenance {
		return model.AssetMaintenance
	}
	if activeLoan {
		return model.AssetInUse
	}
	return model.AssetAvailable
}

// Resync recomputes each asset's status from the claims held against it and
// writes only where the stored value differs. Running it twice in a row
// corrects nothing on the second pass.
func (s *resyncService) Resync(ctx context.Context) (*ResyncReport, error) {
	openMaintenance, err := s.maintenance.OpenTaskAssetIDs(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to load open maintenance tasks", "error", err)
		return nil, apperrors.Internal("Failed to load open maintenance tasks", err)
	}

	activeLoans, err := s.loans.ActiveLoanAssetIDs(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to load active loans", "error", err)
		return nil, apperrors.Internal("Failed to load active loans", err)
	}

	assets, err := s.assets.ListAll(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list assets for reconciliation", "error", err)
		return nil, apperrors.Internal("Failed to list assets", err)
	}

	report := &ResyncReport{Scanned: len(assets)}

	for _, asset := range assets {
		_, hasMaintenance := openMaintenance[asset.ID]
		_, hasLoan := activeLoans[asset.ID]

		desired := DesiredStatus(hasMaintenance, hasLoan)
		if asset.Status == desired {
			continue
		}

		if err := s.assets.UpdateStatus(ctx, asset.ID, desired); err != nil {
			s.cfg.Log.Error("Failed to correct asset status",
				"id", asset.ID,
				"from", asset.Status,
				"to", desired,
				"error", err,
			)
			return report, apperrors.Internal("Failed to correct asset status", err)
		}

		s.cfg.Log.Info("Asset status corrected",
			"id", asset.ID,
			"from", asset.Status,
			"to", desired,
		)
		report.Corrected++
	}

	s.cfg.Log.Info("Reconciliation pass completed",
		"scanned", report.Scanned,
		"corrected", report.Corrected,
	)

	if err := s.notifier.ResyncCompleted(ctx, report.Scanned, report.Corrected); err != nil {
		// Notification failure does not invalidate the corrections.
		s.cfg.Log.Warn("Failed to publish reconciliation notification", "error", err)
	}

	return report, nil
}
