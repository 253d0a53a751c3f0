package service

import (
	"context"
	"time"

	"depot/pkg/kafka"
	"depot/pkg/model"
)

const (
	requestApprovedEvent = "request.approved"
	requestRejectedEvent = "request.rejected"
	loanReturnedEvent    = "loan.returned"
)

// Notifier publishes reservation lifecycle notifications. Messages are
// keyed by asset ID so consumers see the history of one asset in order.
type Notifier interface {
	RequestApproved(ctx context.Context, request *model.LoanRequest, result *model.ApprovalResult) error
	RequestRejected(ctx context.Context, request *model.LoanRequest) error
	LoanReturned(ctx context.Context, loan *model.Loan) error
}

type requestNotification struct {
	RequestID   string     `json:"request_id"`
	AssetID     string     `json:"asset_id"`
	RequesterID string     `json:"requester_id"`
	Status      string     `json:"status"`
	LoanID      string     `json:"loan_id,omitempty"`
	EventID     string     `json:"event_id,omitempty"`
	ReviewedBy  string     `json:"reviewed_by,omitempty"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
}

type loanNotification struct {
	LoanID     string     `json:"loan_id"`
	AssetID    string     `json:"asset_id"`
	BorrowerID string     `json:"borrower_id"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
}

type kafkaNotifier struct {
	producer *kafka.Producer
	source   string
}

func NewKafkaNotifier(producer *kafka.Producer, source string) Notifier {
	return &kafkaNotifier{
		producer: producer,
		source:   source,
	}
}

func (n *kafkaNotifier) RequestApproved(ctx context.Context, request *model.LoanRequest, result *model.ApprovalResult) error {
	return n.producer.Publish(ctx, kafka.NewMessage().
		WithKey(request.AssetID).
		WithEventType(requestApprovedEvent).
		WithSource(n.source).
		WithValue(requestNotification{
			RequestID:   request.ID,
			AssetID:     request.AssetID,
			RequesterID: request.RequesterID,
			Status:      request.Status,
			LoanID:      result.LoanID,
			EventID:     result.EventID,
			ReviewedBy:  request.ReviewedBy,
			DecidedAt:   request.ResponseDate,
		}).
		Build())
}

func (n *kafkaNotifier) RequestRejected(ctx context.Context, request *model.LoanRequest) error {
	return n.producer.Publish(ctx, kafka.NewMessage().
		WithKey(request.AssetID).
		WithEventType(requestRejectedEvent).
		WithSource(n.source).
		WithValue(requestNotification{
			RequestID:   request.ID,
			AssetID:     request.AssetID,
			RequesterID: request.RequesterID,
			Status:      request.Status,
			ReviewedBy:  request.ReviewedBy,
			DecidedAt:   request.ResponseDate,
		}).
		Build())
}

func (n *kafkaNotifier) LoanReturned(ctx context.Context, loan *model.Loan) error {
	return n.producer.Publish(ctx, kafka.NewMessage().
		WithKey(loan.AssetID).
		WithEventType(loanReturnedEvent).
		WithSource(n.source).
		WithValue(loanNotification{
			LoanID:     loan.ID,
			AssetID:    loan.AssetID,
			BorrowerID: loan.BorrowerID,
			ReturnDate: loan.ReturnDate,
		}).
		Build())
}

// NoopNotifier is used when no Kafka brokers are configured.
type NoopNotifier struct{}

func (NoopNotifier) RequestApproved(ctx context.Context, request *model.LoanRequest, result *model.ApprovalResult) error {
	return nil
}

func (NoopNotifier) RequestRejected(ctx context.Context, request *model.LoanRequest) error {
	return nil
}

func (NoopNotifier) LoanReturned(ctx context.Context, loan *model.Loan) error {
	return nil
}
