package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "campusconnect/internal/errors"
	"campusconnect/internal/model"
	"campusconnect/internal/repository"
)

const upcomingEventsLimit = 100

// CreateEventInput carries the fields of a new event.
type CreateEventInput struct {
	Title       string
	Description *string
	StartDate   time.Time
	EndDate     time.Time
	Location    *string
	Banner      *string
}

// EventService handles campus events.
type EventService interface {
	Create(ctx context.Context, userID uuid.UUID, in CreateEventInput) (model.EventView, error)
	List(ctx context.Context) ([]model.EventView, error)
	Get(ctx context.Context, id uuid.UUID) (model.EventView, error)
}

type eventService struct {
	events repository.EventRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewEventService creates a new event service.
func NewEventService(events repository.EventRepository, logger *zap.Logger) EventService {
	return &eventService{
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// Create publishes an event owned by userID.
func (s *eventService) Create(ctx context.Context, userID uuid.UUID, in CreateEventInput) (model.EventView, error) {
	if in.EndDate.Before(in.StartDate) {
		return model.EventView{}, fmt.Errorf("%w: endDate must not precede startDate", apperrors.ErrInvalidInput)
	}

	event := &model.Event{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		StartDate:   in.StartDate.UTC(),
		EndDate:     in.EndDate.UTC(),
		Location:    in.Location,
		Banner:      in.Banner,
		CreatedByID: userID,
	}
	if err := s.events.Create(ctx, event); err != nil {
		s.logger.Error("event.create.failed", zap.String("userId", userID.String()), zap.Error(err))
		return model.EventView{}, fmt.Errorf("create event: %w", err)
	}

	created, err := s.events.FindByID(ctx, event.ID)
	if err != nil {
		return model.EventView{}, fmt.Errorf("reload event: %w", err)
	}

	s.logger.Info("event.create.success", zap.String("eventId", event.ID.String()), zap.String("userId", userID.String()))
	return model.NewEventView(created), nil
}

// List returns events that have not ended, soonest first.
func (s *eventService) List(ctx context.Context) ([]model.EventView, error) {
	events, err := s.events.ListUpcoming(ctx, s.now(), upcomingEventsLimit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	out := make([]model.EventView, 0, len(events))
	for i := range events {
		out = append(out, model.NewEventView(&events[i]))
	}
	return out, nil
}

// Get returns one event.
func (s *eventService) Get(ctx context.Context, id uuid.UUID) (model.EventView, error) {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.EventView{}, apperrors.ErrNotFound
		}
		return model.EventView{}, fmt.Errorf("find event: %w", err)
	}
	return model.NewEventView(event), nil
}
