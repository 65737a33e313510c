package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event is a campus event published by a user.
type Event struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey"`
	Title       string    `gorm:"size:100;not null"`
	Description *string   `gorm:"size:500"`
	StartDate   time.Time `gorm:"not null;index"`
	EndDate     time.Time `gorm:"not null"`
	Location    *string   `gorm:"size:200"`
	Banner      *string   `gorm:"size:512"`
	CreatedByID uuid.UUID `gorm:"type:char(36);not null;index"`
	CreatedAt   time.Time

	CreatedBy User `gorm:"foreignKey:CreatedByID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate sets UUID before creating the record.
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// EventView is the API shape of an event.
type EventView struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Description *string     `json:"description"`
	StartDate   time.Time   `json:"startDate"`
	EndDate     time.Time   `json:"endDate"`
	Location    *string     `json:"location"`
	Banner      *string     `json:"banner"`
	CreatedAt   time.Time   `json:"createdAt"`
	CreatedBy   UserSummary `json:"createdBy"`
}

// NewEventView projects an Event with its preloaded creator.
func NewEventView(e *Event) EventView {
	return EventView{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		StartDate:   e.StartDate,
		EndDate:     e.EndDate,
		Location:    e.Location,
		Banner:      e.Banner,
		CreatedAt:   e.CreatedAt,
		CreatedBy:   NewUserSummary(&e.CreatedBy),
	}
}
