package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"campusconnect/internal/model"
)

// EventRepository defines event persistence operations.
type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error)
	ListUpcoming(ctx context.Context, from time.Time, limit int) ([]model.Event, error)
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func withCreator(db *gorm.DB) *gorm.DB {
	return db.Preload("CreatedBy", func(tx *gorm.DB) *gorm.DB {
		return tx.Select(model.SummaryColumns)
	})
}

// Create creates a new event.
func (r *eventRepository) Create(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Omit("CreatedBy").Create(event).Error
}

// FindByID finds an event with its creator.
func (r *eventRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	var event model.Event
	if err := withCreator(r.db.WithContext(ctx)).Where("id = ?", id).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// ListUpcoming lists events that have not ended yet, soonest first.
func (r *eventRepository) ListUpcoming(ctx context.Context, from time.Time, limit int) ([]model.Event, error) {
	var events []model.Event
	err := withCreator(r.db.WithContext(ctx)).
		Where("end_date >= ?", from).
		Order("start_date ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
