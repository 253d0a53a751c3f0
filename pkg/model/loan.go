package model

import "time"

const (
	LoanActive   = "active"
	LoanReturned = "returned"
)

// Loan records an asset handed to a borrower. At most one active loan may
// exist per asset; the approval transaction enforces this, not the store.
type Loan struct {
	ID         string     `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	AssetID    string     `json:"asset_id" bson:"asset_id" validate:"required,mongodb"`
	BorrowerID string     `json:"borrower_id" bson:"borrower_id" validate:"required"`
	LoanDate   time.Time  `json:"loan_date" bson:"loan_date" validate:"required"`
	DueDate    time.Time  `json:"due_date" bson:"due_date" validate:"required"`
	ReturnDate *time.Time `json:"return_date,omitempty" bson:"return_date,omitempty"`
	Status     string     `json:"status" bson:"status" validate:"required,oneof=active returned"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// IsOverdue is derived at query time, never stored.
func (l *Loan) IsOverdue(now time.Time) bool {
	return l.Status == LoanActive && l.DueDate.Before(now)
}

// LoanView is a Loan plus its derived fields, as returned by list endpoints.
type LoanView struct {
	Loan
	Overdue bool `json:"overdue"`
}

// LoanStatusCounts are the per-status totals shown on the loan list.
type LoanStatusCounts struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Returned int64 `json:"returned"`
	Overdue  int64 `json:"overdue"`
}
