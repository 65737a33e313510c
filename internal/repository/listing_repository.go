package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"campusconnect/internal/model"
)

// Listing sort orders.
const (
	SortRecent    = "recent"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
	SortPopular   = "popular"
)

// ListingFilter narrows ListingRepository.List. Nil and empty fields do not filter.
type ListingFilter struct {
	Category  model.ListingCategory
	Condition model.ItemCondition
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	Search    string
	SellerID  *uuid.UUID
	Status    model.ListingStatus
	SortBy    string
	Limit     int
	Offset    int
}

// ListingRepository defines marketplace persistence operations.
type ListingRepository interface {
	Create(ctx context.Context, listing *model.Listing) error
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Listing, error)
	List(ctx context.Context, filter ListingFilter) ([]model.Listing, int64, error)
	IncrementViews(ctx context.Context, id uuid.UUID) error
	ToggleFavorite(ctx context.Context, userID, listingID uuid.UUID) (bool, error)
	ListFavorites(ctx context.Context, userID uuid.UUID) ([]model.Listing, error)
}

const listingSelect = "listings.*, (SELECT COUNT(*) FROM favorites WHERE favorites.listing_id = listings.id) AS favorite_count"

type listingRepository struct {
	db *gorm.DB
}

// NewListingRepository creates a new listing repository.
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) withSeller(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Select(listingSelect).
		Preload("Seller", func(tx *gorm.DB) *gorm.DB {
			return tx.Select(model.SummaryColumns)
		})
}

// Create creates a new listing.
func (r *listingRepository) Create(ctx context.Context, listing *model.Listing) error {
	return r.db.WithContext(ctx).Omit("Seller").Create(listing).Error
}

// Update writes the given columns of a listing.
func (r *listingRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Listing{}).Where("id = ?", id).Updates(fields)
	return res.Error
}

// FindByID finds a listing with its seller and favorite count.
func (r *listingRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Listing, error) {
	var listing model.Listing
	if err := r.withSeller(ctx).Where("listings.id = ?", id).First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func applyListingFilter(q *gorm.DB, f ListingFilter) *gorm.DB {
	if f.Status != "" {
		q = q.Where("listings.status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("listings.category = ?", f.Category)
	}
	if f.Condition != "" {
		q = q.Where("listings.condition = ?", f.Condition)
	}
	if f.MinPrice != nil {
		q = q.Where("listings.price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("listings.price <= ?", *f.MaxPrice)
	}
	if f.SellerID != nil {
		q = q.Where("listings.seller_id = ?", *f.SellerID)
	}
	if f.Search != "" {
		like := "%" + escapeLike(f.Search) + "%"
		q = q.Where(`(listings.title LIKE ? ESCAPE '\\' OR listings.description LIKE ? ESCAPE '\\')`, like, like)
	}
	return q
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func listingOrder(sortBy string) string {
	switch sortBy {
	case SortPriceLow:
		return "listings.price ASC"
	case SortPriceHigh:
		return "listings.price DESC"
	case SortPopular:
		return "listings.views DESC"
	default:
		return "listings.created_at DESC"
	}
}

// List returns one page of listings matching filter and the total match count.
func (r *listingRepository) List(ctx context.Context, filter ListingFilter) ([]model.Listing, int64, error) {
	var total int64
	if err := applyListingFilter(r.db.WithContext(ctx).Model(&model.Listing{}), filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var listings []model.Listing
	err := applyListingFilter(r.withSeller(ctx), filter).
		Order(listingOrder(filter.SortBy)).
		Order("listings.id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&listings).Error
	if err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}

// IncrementViews bumps the view counter atomically. Deleted listings are not
// counted and report gorm.ErrRecordNotFound.
func (r *listingRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&model.Listing{}).
		Where("id = ? AND status <> ?", id, model.ListingDeleted).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ToggleFavorite adds the favorite when absent and removes it otherwise. It
// reports whether the listing is now a favorite.
func (r *listingRepository) ToggleFavorite(ctx context.Context, userID, listingID uuid.UUID) (bool, error) {
	var favorited bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND listing_id = ?", userID, listingID).Delete(&model.Favorite{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			favorited = false
			return nil
		}
		fav := &model.Favorite{UserID: userID, ListingID: listingID}
		if err := tx.Omit("User", "Listing").Create(fav).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				favorited = true
				return nil
			}
			return err
		}
		favorited = true
		return nil
	})
	return favorited, err
}

// ListFavorites lists listings the user saved, most recently saved first.
func (r *listingRepository) ListFavorites(ctx context.Context, userID uuid.UUID) ([]model.Listing, error) {
	var listings []model.Listing
	err := r.withSeller(ctx).
		Joins("JOIN favorites ON favorites.listing_id = listings.id").
		Where("favorites.user_id = ? AND listings.status <> ?", userID, model.ListingDeleted).
		Order("favorites.created_at DESC").
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}
