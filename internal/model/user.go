package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserType tags the kind of campus account.
type UserType string

const (
	UserTypeStudent UserType = "student"
	UserTypeFaculty UserType = "faculty"
	UserTypeAdmin   UserType = "admin"
)

// User is the persisted identity record. It carries credential state and is
// never serialized directly; handlers only ever see PublicUser.
type User struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey"`
	Email        string    `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	FirstName    string    `gorm:"size:50;not null"`
	LastName     string    `gorm:"size:50;not null"`
	UserType     UserType  `gorm:"size:20;not null;default:'student'"`
	IsVerified   bool      `gorm:"not null;default:false"`

	VerificationToken          *string `gorm:"size:64;index"`
	VerificationTokenExpiresAt *time.Time
	PasswordResetTokenHash     *string `gorm:"size:64;index"`
	PasswordResetExpiresAt     *time.Time

	ProfilePicture *string    `gorm:"size:512"`
	Bio            *string    `gorm:"size:250"`
	City           *string    `gorm:"size:50"`
	Websites       StringList `gorm:"type:json"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// PublicUser is the only user shape that leaves the service layer. It has no
// credential fields, so adding one to User cannot leak it.
type PublicUser struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	IsVerified     bool      `json:"isVerified"`
	ProfilePicture *string   `json:"profilePicture"`
	Bio            *string   `json:"bio"`
	UserType       UserType  `json:"userType"`
	City           *string   `json:"city"`
	Websites       []string  `json:"websites"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewPublicUser projects a User onto its public view.
func NewPublicUser(u *User) PublicUser {
	websites := make([]string, len(u.Websites))
	copy(websites, u.Websites)
	return PublicUser{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		IsVerified:     u.IsVerified,
		ProfilePicture: u.ProfilePicture,
		Bio:            u.Bio,
		UserType:       u.UserType,
		City:           u.City,
		Websites:       websites,
		CreatedAt:      u.CreatedAt,
	}
}

// UserSummary is the author block embedded in posts, listings and streams.
type UserSummary struct {
	ID             uuid.UUID `json:"id"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	ProfilePicture *string   `json:"profilePicture"`
	UserType       UserType  `json:"userType"`
}

// NewUserSummary projects a User onto its author summary.
func NewUserSummary(u *User) UserSummary {
	return UserSummary{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		ProfilePicture: u.ProfilePicture,
		UserType:       u.UserType,
	}
}

// SummaryColumns are the columns needed to build a UserSummary.
const SummaryColumns = "id, first_name, last_name, profile_picture, user_type"
