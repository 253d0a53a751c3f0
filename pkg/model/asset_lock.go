package model

import "time"

// AssetLock is an advisory lock document. Its _id is derived from the asset
// ID, so a unique-index violation on insert means another request holds the
// asset. ExpiresAt backs a TTL index that reaps locks leaked by crashed
// holders.
type AssetLock struct {
	ID        string    `bson:"_id"`
	Owner     string    `bson:"owner"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}
