package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ListingCategory groups marketplace listings.
type ListingCategory string

const (
	CategoryTextbooks   ListingCategory = "textbooks"
	CategoryElectronics ListingCategory = "electronics"
	CategoryFurniture   ListingCategory = "furniture"
	CategoryClothing    ListingCategory = "clothing"
	CategoryAccessories ListingCategory = "accessories"
	CategoryOther       ListingCategory = "other"
)

// ItemCondition describes the wear of a listed item.
type ItemCondition string

const (
	ConditionLikeNew   ItemCondition = "likeNew"
	ConditionExcellent ItemCondition = "excellent"
	ConditionGood      ItemCondition = "good"
	ConditionFair      ItemCondition = "fair"
	ConditionPoor      ItemCondition = "poor"
)

// ListingStatus is the lifecycle state of a listing.
type ListingStatus string

const (
	ListingActive   ListingStatus = "active"
	ListingSold     ListingStatus = "sold"
	ListingInactive ListingStatus = "inactive"
	ListingDeleted  ListingStatus = "deleted"
)

// Listing is a marketplace item offered by a seller.
type Listing struct {
	ID            uuid.UUID           `gorm:"type:char(36);primaryKey"`
	Title         string              `gorm:"size:100;not null"`
	Description   string              `gorm:"size:2000;not null"`
	Price         decimal.Decimal     `gorm:"type:decimal(10,2);not null;index"`
	OriginalPrice decimal.NullDecimal `gorm:"type:decimal(10,2)"`
	Images        StringList          `gorm:"type:json"`
	Condition     ItemCondition       `gorm:"size:20;not null;index"`
	Category      ListingCategory     `gorm:"size:20;not null;index"`
	Location      string              `gorm:"size:200;not null"`
	Views         int64               `gorm:"not null;default:0"`
	Status        ListingStatus       `gorm:"size:20;not null;default:'active';index"`
	SellerID      uuid.UUID           `gorm:"type:char(36);not null;index"`
	CreatedAt     time.Time           `gorm:"index"`
	UpdatedAt     time.Time

	Seller        User  `gorm:"foreignKey:SellerID;constraint:OnDelete:CASCADE"`
	FavoriteCount int64 `gorm:"->;-:migration"`
}

// BeforeCreate sets UUID before creating the record.
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Favorite marks a listing as saved by a user.
type Favorite struct {
	UserID    uuid.UUID `gorm:"type:char(36);primaryKey"`
	ListingID uuid.UUID `gorm:"type:char(36);primaryKey;index"`
	CreatedAt time.Time

	User    User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Listing Listing `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
}

// ListingView is the API shape of a listing.
type ListingView struct {
	ID            uuid.UUID        `json:"id"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice"`
	Images        []string         `json:"images"`
	Condition     ItemCondition    `json:"condition"`
	Category      ListingCategory  `json:"category"`
	Location      string           `json:"location"`
	Views         int64            `json:"views"`
	Status        ListingStatus    `json:"status"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
	Seller        UserSummary      `json:"seller"`
	FavoriteCount int64            `json:"favoriteCount"`
}

// NewListingView projects a Listing with its preloaded seller.
func NewListingView(l *Listing) ListingView {
	v := ListingView{
		ID:            l.ID,
		Title:         l.Title,
		Description:   l.Description,
		Price:         l.Price,
		Images:        append([]string{}, l.Images...),
		Condition:     l.Condition,
		Category:      l.Category,
		Location:      l.Location,
		Views:         l.Views,
		Status:        l.Status,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
		Seller:        NewUserSummary(&l.Seller),
		FavoriteCount: l.FavoriteCount,
	}
	if l.OriginalPrice.Valid {
		op := l.OriginalPrice.Decimal
		v.OriginalPrice = &op
	}
	return v
}
