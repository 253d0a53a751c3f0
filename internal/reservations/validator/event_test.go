package validator

import (
	"testing"
	"time"

	"depot/pkg/model"
)

func validEvent() *model.Event {
	start := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	return &model.Event{
		Title:            "Equipment demo",
		Type:             model.EventTypeGeneric,
		StartTime:        start,
		EndTime:          &end,
		Status:           model.EventPending,
		ReservedAssetIDs: []string{"507f1f77bcf86cd799439011"},
	}
}

func TestEventValidate_Valid(t *testing.T) {
	v := NewEventValidator(newTestLogger())

	if err := v.Validate(validEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEventValidate_OpenEndedIsValid(t *testing.T) {
	v := NewEventValidator(newTestLogger())

	event := validEvent()
	event.EndTime = nil

	if err := v.Validate(event); err != nil {
		t.Fatalf("open-ended event must be accepted, got: %v", err)
	}
}

func TestEventValidate_EndBeforeStart(t *testing.T) {
	v := NewEventValidator(newTestLogger())

	event := validEvent()
	end := event.StartTime.Add(-time.Minute)
	event.EndTime = &end

	if err := v.Validate(event); err == nil {
		t.Fatal("expected error when end_time precedes start_time")
	}
}

func TestEventValidate_MalformedReservedAssetID(t *testing.T) {
	v := NewEventValidator(newTestLogger())

	event := validEvent()
	event.ReservedAssetIDs = []string{"not-an-object-id"}

	if err := v.Validate(event); err == nil {
		t.Fatal("expected error for malformed reserved asset ID")
	}
}

func TestEventValidate_UnknownType(t *testing.T) {
	v := NewEventValidator(newTestLogger())

	event := validEvent()
	event.Type = "party"

	if err := v.Validate(event); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}
