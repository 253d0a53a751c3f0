package model

import "time"

const (
	AssetAvailable   = "available"
	AssetInUse       = "in_use"
	AssetMaintenance = "maintenance"
)

// Asset is the root entity of the inventory. Status is a denormalized
// summary of the claims held against the asset; the reservation service
// maintains it transactionally and the resync engine corrects drift.
type Asset struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Seq       int64     `json:"-" bson:"seq"`
	Name      string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Code      string    `json:"asset_code" bson:"asset_code"`
	Category  string    `json:"category" bson:"category" validate:"required,min=2,max=100"`
	Location  string    `json:"location" bson:"location" validate:"required,max=100"`
	Status    string    `json:"status" bson:"status" validate:"required,oneof=available in_use maintenance"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// AssetUpdate carries the mutable fields of an asset. Code is deliberately
// absent: once generated it is never reassigned.
type AssetUpdate struct {
	Name     string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Category string `json:"category,omitempty" validate:"omitempty,min=2,max=100"`
	Location string `json:"location,omitempty" validate:"omitempty,max=100"`
	Status   string `json:"status,omitempty" validate:"omitempty,oneof=available in_use maintenance"`
}

// AssetSummary is the listing/search projection returned to callers.
type AssetSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"asset_code"`
	Category string `json:"category"`
	Location string `json:"location"`
	Status   string `json:"status"`
}

// AssetStatusCounts are the per-status totals shown on the inventory list.
type AssetStatusCounts struct {
	Total       int64 `json:"total"`
	Available   int64 `json:"available"`
	InUse       int64 `json:"in_use"`
	Maintenance int64 `json:"maintenance"`
}

func (a *Asset) Summary() AssetSummary {
	return AssetSummary{
		ID:       a.ID,
		Name:     a.Name,
		Code:     a.Code,
		Category: a.Category,
		Location: a.Location,
		Status:   a.Status,
	}
}
