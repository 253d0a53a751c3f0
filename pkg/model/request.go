package model

import "time"

const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// LoanRequest is a borrower's proposal for a loan window. Approval spawns a
// Loan and a loan-block Event atomically; rejection is terminal and never
// touches the asset.
type LoanRequest struct {
	ID           string     `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	AssetID      string     `json:"asset_id" bson:"asset_id" validate:"required,mongodb"`
	RequesterID  string     `json:"requester_id" bson:"requester_id" validate:"required"`
	Reason       string     `json:"reason,omitempty" bson:"reason,omitempty" validate:"omitempty,max=2000"`
	StartDate    *time.Time `json:"start_date,omitempty" bson:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty" bson:"end_date,omitempty"`
	Status       string     `json:"status" bson:"status" validate:"required,oneof=pending approved rejected"`
	AdminComment string     `json:"admin_comment,omitempty" bson:"admin_comment,omitempty" validate:"omitempty,max=2000"`
	ReviewedBy   string     `json:"reviewed_by,omitempty" bson:"reviewed_by,omitempty"`
	ResponseDate *time.Time `json:"response_date,omitempty" bson:"response_date,omitempty"`
	RequestDate  time.Time  `json:"request_date" bson:"request_date" validate:"omitempty"`
}

// ApprovalResult identifies the records created by a successful approval.
type ApprovalResult struct {
	RequestID string `json:"request_id"`
	LoanID    string `json:"loan_id"`
	EventID   string `json:"event_id"`
}
