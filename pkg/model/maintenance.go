package model

import "time"

const (
	MaintenancePending    = "pending"
	MaintenanceInProgress = "in_progress"
	MaintenanceCompleted  = "completed"
)

// MaintenanceTask takes an asset out of rotation while open. There is no
// interval attached: a single open task blocks the asset outright.
type MaintenanceTask struct {
	ID            string     `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	AssetID       string     `json:"asset_id" bson:"asset_id" validate:"required,mongodb"`
	TechnicianID  string     `json:"technician_id,omitempty" bson:"technician_id,omitempty"`
	Description   string     `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=2000"`
	Status        string     `json:"status" bson:"status" validate:"required,oneof=pending in_progress completed"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty" bson:"scheduled_date,omitempty"`
	CompletedDate *time.Time `json:"completed_date,omitempty" bson:"completed_date,omitempty"`
	PerformedBy   string     `json:"performed_by,omitempty" bson:"performed_by,omitempty" validate:"omitempty,max=100"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// IsOpen reports whether the task still holds the asset.
func (m *MaintenanceTask) IsOpen() bool {
	return m.Status == MaintenancePending || m.Status == MaintenanceInProgress
}

// MaintenanceStatusCounts are the per-status totals shown on the task list.
type MaintenanceStatusCounts struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
}
