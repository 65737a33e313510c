package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LivestreamStatus is the lifecycle state of a stream.
type LivestreamStatus string

const (
	LivestreamLive  LivestreamStatus = "LIVE"
	LivestreamEnded LivestreamStatus = "ENDED"
)

// Livestream is a hosted live room; media runs through the room provider.
type Livestream struct {
	ID          uuid.UUID        `gorm:"type:char(36);primaryKey"`
	UserID      uuid.UUID        `gorm:"type:char(36);not null;index"`
	Title       string           `gorm:"size:100;not null"`
	Status      LivestreamStatus `gorm:"size:10;not null;default:'LIVE';index"`
	ViewerCount int64            `gorm:"not null;default:0"`
	StartedAt   time.Time        `gorm:"not null;index"`
	EndedAt     *time.Time

	Host User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate sets UUID and start time before creating the record.
func (l *Livestream) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.StartedAt.IsZero() {
		l.StartedAt = time.Now()
	}
	return nil
}

// RoomName is the provider room backing the stream.
func (l *Livestream) RoomName() string {
	return RoomPrefix + l.ID.String()
}

// RoomPrefix marks provider rooms owned by livestreams.
const RoomPrefix = "livestream-"

// LivestreamView is the API shape of a stream.
type LivestreamView struct {
	ID          uuid.UUID        `json:"id"`
	Title       string           `json:"title"`
	Status      LivestreamStatus `json:"status"`
	ViewerCount int64            `json:"viewerCount"`
	StartedAt   time.Time        `json:"startedAt"`
	EndedAt     *time.Time       `json:"endedAt"`
	Host        UserSummary      `json:"host"`
}

// NewLivestreamView projects a Livestream with its preloaded host.
func NewLivestreamView(l *Livestream) LivestreamView {
	return LivestreamView{
		ID:          l.ID,
		Title:       l.Title,
		Status:      l.Status,
		ViewerCount: l.ViewerCount,
		StartedAt:   l.StartedAt,
		EndedAt:     l.EndedAt,
		Host:        NewUserSummary(&l.Host),
	}
}
