package service

import (
	"context"
	"time"

	"depot/internal/reservations/repository"
	"depot/pkg/config"
	apperrors "depot/pkg/errors"
	"depot/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

// assetLocker serializes writers per asset with an advisory lock document.
// The lock _id is derived from the asset ID, so a duplicate-key error on
// insert means another request holds the asset. ExpiresAt backs a TTL index
// that reaps locks leaked by crashed holders.
type assetLocker struct {
	locks repository.AssetLockRepository
	cfg   *config.Config
}

func newAssetLocker(locks repository.AssetLockRepository, cfg *config.Config) *assetLocker {
	return &assetLocker{
		locks: locks,
		cfg:   cfg,
	}
}

func (l *assetLocker) acquire(ctx context.Context, assetID string) (string, error) {
	lockID := "asset_lock_" + assetID

	lock := &model.AssetLock{
		ID:        lockID,
		Owner:     uuid.New().String(),
		ExpiresAt: time.Now().Add(l.cfg.AssetLockTTL),
	}

	_, err := l.locks.Create(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Conflict("This asset is currently being reserved by another request. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire asset lock", err)
	}

	return lockID, nil
}

func (l *assetLocker) release(ctx context.Context, lockID string) error {
	return l.locks.Delete(ctx, lockID)
}
