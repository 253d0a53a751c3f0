package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	reservationserrors "depot/internal/reservations/errors"
	"depot/internal/reservations/repository"
	"depot/internal/reservations/validator"
	"depot/pkg/config"
	apperrors "depot/pkg/errors"
	"depot/pkg/model"
	"depot/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

type EventService interface {
	Create(ctx context.Context, event *model.Event) error
	Approve(ctx context.Context, id string) error
	Reject(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	GetAll(ctx context.Context, status string, limit int, offset int64) ([]*model.Event, int64, error)
	Calendar(ctx context.Context, from, to *time.Time) ([]model.CalendarEntry, error)
}

type eventService struct {
	repo         repository.EventRepository
	availability AvailabilityService
	assets       repository.AssetRepository
	locker       *assetLocker
	validator    *validator.EventValidator
	cfg          *config.Config
}

func NewEventService(
	repo repository.EventRepository,
	availability AvailabilityService,
	assets repository.AssetRepository,
	locks repository.AssetLockRepository,
	validator *validator.EventValidator,
	cfg *config.Config,
) EventService {
	return &eventService{
		repo:         repo,
		availability: availability,
		assets:       assets,
		locker:       newAssetLocker(locks, cfg),
		validator:    validator,
		cfg:          cfg,
	}
}

// Create records the event as pending. Pending events reserve nothing;
// conflicts are checked at approval time.
func (s *eventService) Create(ctx context.Context, event *model.Event) error {
	s.applyDefaults(event)
	s.sanitize(event)
	if err := s.validate(event); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, event); err != nil {
		s.cfg.Log.Error("Failed to create event", "error", err)
		return apperrors.Internal("Failed to create event", err)
	}

	s.cfg.Log.Info("Event created",
		"id", event.ID,
		"type", event.Type,
		"start_time", event.StartTime,
		"reserved_assets", len(event.ReservedAssetIDs),
	)
	return nil
}

// Approve flips a pending event to approved, making its reservations
// blocking. Every reserved asset is locked (in sorted order, so two
// approvals touching the same assets cannot deadlock) and re-checked for
// the event's window before the flip.
func (s *eventService) Approve(ctx context.Context, id string) error {
	event, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if event.Status != model.EventPending {
		return apperrors.InvalidInput(fmt.Sprintf("Cannot approve an event in state %q", event.Status))
	}

	assetIDs := append([]string(nil), event.ReservedAssetIDs...)
	sort.Strings(assetIDs)

	var held []string
	release := func() {
		for _, lockID := range held {
			if releaseErr := s.locker.release(ctx, lockID); releaseErr != nil {
				s.cfg.Log.Warn("Failed to release asset lock", "lock_id", lockID, "error", releaseErr)
			}
		}
	}
	defer release()

	for _, assetID := range assetIDs {
		lockID, err := s.locker.acquire(ctx, assetID)
		if err != nil {
			return err
		}
		held = append(held, lockID)
	}

	window := event.Window()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		for _, assetID := range assetIDs {
			available, err := s.availability.IsAvailable(sessCtx, assetID, &window.Start, &window.End)
			if err != nil {
				return err
			}
			if !available {
				name := assetID
				if asset, lookupErr := s.assets.FindByID(sessCtx, assetID); lookupErr == nil {
					name = asset.Name
				}
				return apperrors.Conflict(fmt.Sprintf(
					"Asset '%s' is not available for %s - %s",
					name,
					window.Start.Format(time.RFC3339),
					window.End.Format(time.RFC3339),
				))
			}
		}

		if err := s.repo.UpdateStatus(sessCtx, id, model.EventApproved); err != nil {
			return apperrors.Internal("Failed to approve event", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to approve event", "id", id, "error", err)
		return err
	}

	s.cfg.Log.Info("Event approved", "id", id, "reserved_assets", len(assetIDs))
	return nil
}

func (s *eventService) Reject(ctx context.Context, id string) error {
	event, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if event.Status != model.EventPending {
		return apperrors.InvalidInput(fmt.Sprintf("Cannot reject an event in state %q", event.Status))
	}

	if err := s.repo.UpdateStatus(ctx, id, model.EventRejected); err != nil {
		s.cfg.Log.Error("Failed to reject event", "id", id, "error", err)
		return apperrors.Internal("Failed to reject event", err)
	}

	s.cfg.Log.Info("Event rejected", "id", id)
	return nil
}

func (s *eventService) GetByID(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Event ID cannot be empty")
	}

	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrEventNotFound) {
			return nil, apperrors.NotFoundWithID("Event", id)
		}
		if errors.Is(err, reservationserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid event ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve event", err)
	}

	return event, nil
}

func (s *eventService) GetAll(ctx context.Context, status string, limit int, offset int64) ([]*model.Event, int64, error) {
	var events []*model.Event
	var total int64
	var errFind, errCount error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		events, errFind = s.repo.FindAll(ctx, status, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list events", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve events", errFind)
		}
	}()

	go func() {
		defer wg.Done()
		total, errCount = s.repo.Count(ctx, status)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count events", "error", errCount)
			errCount = apperrors.Internal("Failed to count events", errCount)
		}
	}()

	wg.Wait()
	if errFind != nil {
		return nil, 0, errFind
	}
	if errCount != nil {
		return nil, 0, errCount
	}

	return events, total, nil
}

// Calendar lists events intersecting the optional window as flat entries
// with both bounds resolved.
func (s *eventService) Calendar(ctx context.Context, from, to *time.Time) ([]model.CalendarEntry, error) {
	events, err := s.repo.FindInWindow(ctx, from, to)
	if err != nil {
		s.cfg.Log.Error("Failed to load calendar events", "error", err)
		return nil, apperrors.Internal("Failed to load calendar", err)
	}

	entries := make([]model.CalendarEntry, 0, len(events))
	for _, event := range events {
		entries = append(entries, event.CalendarEntry())
	}

	return entries, nil
}

// --- Helpers ---

func (s *eventService) applyDefaults(e *model.Event) {
	if e.Status == "" {
		e.Status = model.EventPending
	}
	if e.Type == "" {
		e.Type = model.EventTypeGeneric
	}
}

func (s *eventService) sanitize(e *model.Event) {
	e.Title = sanitizer.NormalizeName(e.Title)
	e.Description = sanitizer.NormalizeText(e.Description)
	e.Location = sanitizer.NormalizeLocation(e.Location)
	e.Visitor = sanitizer.NormalizeName(e.Visitor)
}

func (s *eventService) validate(event *model.Event) error {
	if err := s.validator.Validate(event); err != nil {
		s.cfg.Log.Warn("Event validation failed", "error", err)
		return apperrors.Validation("Event validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}
