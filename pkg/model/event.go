package model

import (
	"time"

	"depot/pkg/interval"
)

const (
	EventTypeGeneric   = "event"
	EventTypeVisit     = "visit"
	EventTypeLoanBlock = "loan-block"

	EventPending  = "pending"
	EventApproved = "approved"
	EventRejected = "rejected"
	EventActive   = "active"
)

// Event is a time-boxed occurrence that may reserve assets. A loan-block
// event is synthesized by the approval transaction so that active loans are
// visible to the interval-overlap machinery.
type Event struct {
	ID               string     `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Title            string     `json:"title" bson:"title" validate:"required,min=2,max=150"`
	Description      string     `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=2000"`
	Type             string     `json:"type" bson:"type" validate:"required,oneof=event visit loan-block"`
	StartTime        time.Time  `json:"start_time" bson:"start_time" validate:"required"`
	EndTime          *time.Time `json:"end_time,omitempty" bson:"end_time,omitempty"`
	Location         string     `json:"location,omitempty" bson:"location,omitempty" validate:"omitempty,max=200"`
	Visitor          string     `json:"visitor,omitempty" bson:"visitor,omitempty" validate:"omitempty,max=200"`
	ResponsibleID    string     `json:"responsible_id,omitempty" bson:"responsible_id,omitempty"`
	Status           string     `json:"status" bson:"status" validate:"required,oneof=pending approved rejected active"`
	ReservedAssetIDs []string   `json:"reserved_asset_ids,omitempty" bson:"reserved_asset_ids,omitempty" validate:"omitempty,dive,mongodb"`
	CreatedAt        time.Time  `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// Window returns the event's interval. An absent end collapses to a
// zero-width instant at start.
func (e *Event) Window() interval.Range {
	return interval.New(e.StartTime, e.EndTime)
}

// Blocks reports whether the event's reservations count against
// availability.
func (e *Event) Blocks() bool {
	return e.Status == EventApproved || e.Status == EventActive
}

// CalendarEntry is the projection served to the calendar UI. End falls back
// to Start when the event has no explicit end.
type CalendarEntry struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description,omitempty"`
}

func (e *Event) CalendarEntry() CalendarEntry {
	end := e.StartTime
	if e.EndTime != nil {
		end = *e.EndTime
	}
	return CalendarEntry{
		ID:          e.ID,
		Title:       e.Title,
		Type:        e.Type,
		Status:      e.Status,
		Start:       e.StartTime,
		End:         end,
		Description: e.Description,
	}
}
