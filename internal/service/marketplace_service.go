package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campusconnect/internal/cache"
	apperrors "campusconnect/internal/errors"
	"campusconnect/internal/model"
	"campusconnect/internal/repository"
)

const (
	listingCachePrefix  = "listing:"
	listingCacheTTL     = time.Minute
	defaultListingLimit = 20
	maxListingLimit     = 100
)

// CreateListingInput carries the fields of a new listing.
type CreateListingInput struct {
	Title         string
	Description   string
	Price         decimal.Decimal
	OriginalPrice *decimal.Decimal
	Images        []string
	Condition     model.ItemCondition
	Category      model.ListingCategory
	Location      string
}

// UpdateListingInput holds the listing fields to change. Nil fields are left untouched.
type UpdateListingInput struct {
	Title         *string
	Description   *string
	Price         *decimal.Decimal
	OriginalPrice *decimal.Decimal
	Images        *[]string
	Condition     *model.ItemCondition
	Category      *model.ListingCategory
	Location      *string
	Status        *model.ListingStatus
}

// ListingPage is one page of listings.
type ListingPage struct {
	Listings []model.ListingView `json:"listings"`
	Total    int64               `json:"total"`
	Limit    int                 `json:"limit"`
	Offset   int                 `json:"offset"`
}

// MarketplaceService handles marketplace listings and favorites.
type MarketplaceService interface {
	List(ctx context.Context, filter repository.ListingFilter) (*ListingPage, error)
	Get(ctx context.Context, id uuid.UUID) (model.ListingView, error)
	Create(ctx context.Context, sellerID uuid.UUID, in CreateListingInput) (model.ListingView, error)
	Update(ctx context.Context, userID, id uuid.UUID, in UpdateListingInput) (model.ListingView, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	IncrementViews(ctx context.Context, id uuid.UUID) (model.ListingView, error)
	ToggleFavorite(ctx context.Context, userID, id uuid.UUID) (bool, error)
	Favorites(ctx context.Context, userID uuid.UUID) ([]model.ListingView, error)
}

type marketplaceService struct {
	listings repository.ListingRepository
	cache    *cache.Client
	logger   *zap.Logger
}

// NewMarketplaceService creates a new marketplace service.
func NewMarketplaceService(listings repository.ListingRepository, cacheClient *cache.Client, logger *zap.Logger) MarketplaceService {
	return &marketplaceService{
		listings: listings,
		cache:    cacheClient,
		logger:   logger,
	}
}

func listingCacheKey(id uuid.UUID) string {
	return listingCachePrefix + id.String()
}

// List returns listings matching filter. Status defaults to active.
func (s *marketplaceService) List(ctx context.Context, filter repository.ListingFilter) (*ListingPage, error) {
	if filter.Status == "" {
		filter.Status = model.ListingActive
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListingLimit
	}
	if filter.Limit > maxListingLimit {
		filter.Limit = maxListingLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, fmt.Errorf("%w: minPrice exceeds maxPrice", apperrors.ErrInvalidInput)
	}
	filter.Search = strings.TrimSpace(filter.Search)

	listings, total, err := s.listings.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}

	page := &ListingPage{
		Listings: make([]model.ListingView, 0, len(listings)),
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}
	for i := range listings {
		page.Listings = append(page.Listings, model.NewListingView(&listings[i]))
	}
	return page, nil
}

// Get returns one listing, from cache when possible.
func (s *marketplaceService) Get(ctx context.Context, id uuid.UUID) (model.ListingView, error) {
	var cached model.ListingView
	if s.cache.GetJSON(ctx, listingCacheKey(id), &cached) {
		return cached, nil
	}

	listing, err := s.find(ctx, id)
	if err != nil {
		return model.ListingView{}, err
	}
	view := model.NewListingView(listing)
	_ = s.cache.SetJSON(ctx, listingCacheKey(id), view, listingCacheTTL)
	return view, nil
}

func (s *marketplaceService) find(ctx context.Context, id uuid.UUID) (*model.Listing, error) {
	listing, err := s.listings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find listing: %w", err)
	}
	if listing.Status == model.ListingDeleted {
		return nil, apperrors.ErrNotFound
	}
	return listing, nil
}

// findOwned loads a listing and checks that userID is its seller.
func (s *marketplaceService) findOwned(ctx context.Context, userID, id uuid.UUID) (*model.Listing, error) {
	listing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing.SellerID != userID {
		s.logger.Warn("marketplace.listing.forbidden", zap.String("listingId", id.String()), zap.String("userId", userID.String()))
		return nil, apperrors.ErrForbidden
	}
	return listing, nil
}

// Create lists a new item for sellerID.
func (s *marketplaceService) Create(ctx context.Context, sellerID uuid.UUID, in CreateListingInput) (model.ListingView, error) {
	if !in.Price.IsPositive() {
		return model.ListingView{}, fmt.Errorf("%w: price must be positive", apperrors.ErrInvalidInput)
	}

	listing := &model.Listing{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price.Round(2),
		Images:      model.StringList(append([]string{}, in.Images...)),
		Condition:   in.Condition,
		Category:    in.Category,
		Location:    strings.TrimSpace(in.Location),
		Status:      model.ListingActive,
		SellerID:    sellerID,
	}
	if in.OriginalPrice != nil {
		listing.OriginalPrice = decimal.NewNullDecimal(in.OriginalPrice.Round(2))
	}

	if err := s.listings.Create(ctx, listing); err != nil {
		s.logger.Error("marketplace.listing.create.failed", zap.String("userId", sellerID.String()), zap.Error(err))
		return model.ListingView{}, fmt.Errorf("create listing: %w", err)
	}

	created, err := s.find(ctx, listing.ID)
	if err != nil {
		return model.ListingView{}, err
	}
	s.logger.Info("marketplace.listing.create.success", zap.String("listingId", listing.ID.String()))
	return model.NewListingView(created), nil
}

// Update changes a listing owned by userID.
func (s *marketplaceService) Update(ctx context.Context, userID, id uuid.UUID, in UpdateListingInput) (model.ListingView, error) {
	if _, err := s.findOwned(ctx, userID, id); err != nil {
		return model.ListingView{}, err
	}

	fields := make(map[string]interface{})
	if in.Title != nil {
		fields["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		fields["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		if !in.Price.IsPositive() {
			return model.ListingView{}, fmt.Errorf("%w: price must be positive", apperrors.ErrInvalidInput)
		}
		fields["price"] = in.Price.Round(2)
	}
	if in.OriginalPrice != nil {
		fields["original_price"] = decimal.NewNullDecimal(in.OriginalPrice.Round(2))
	}
	if in.Images != nil {
		fields["images"] = model.StringList(append([]string{}, (*in.Images)...))
	}
	if in.Condition != nil {
		fields["condition"] = *in.Condition
	}
	if in.Category != nil {
		fields["category"] = *in.Category
	}
	if in.Location != nil {
		fields["location"] = strings.TrimSpace(*in.Location)
	}
	if in.Status != nil {
		fields["status"] = *in.Status
	}

	if len(fields) > 0 {
		if err := s.listings.Update(ctx, id, fields); err != nil {
			s.logger.Error("marketplace.listing.update.failed", zap.String("listingId", id.String()), zap.Error(err))
			return model.ListingView{}, fmt.Errorf("update listing: %w", err)
		}
		_ = s.cache.Delete(ctx, listingCacheKey(id))
	}

	updated, err := s.find(ctx, id)
	if err != nil {
		return model.ListingView{}, err
	}
	return model.NewListingView(updated), nil
}

// Delete soft-deletes a listing owned by userID.
func (s *marketplaceService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.findOwned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.listings.Update(ctx, id, map[string]interface{}{"status": model.ListingDeleted}); err != nil {
		s.logger.Error("marketplace.listing.delete.failed", zap.String("listingId", id.String()), zap.Error(err))
		return fmt.Errorf("delete listing: %w", err)
	}
	_ = s.cache.Delete(ctx, listingCacheKey(id))
	s.logger.Info("marketplace.listing.delete.success", zap.String("listingId", id.String()))
	return nil
}

// IncrementViews bumps the view counter and returns the fresh listing.
func (s *marketplaceService) IncrementViews(ctx context.Context, id uuid.UUID) (model.ListingView, error) {
	if err := s.listings.IncrementViews(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.ListingView{}, apperrors.ErrNotFound
		}
		return model.ListingView{}, fmt.Errorf("increment views: %w", err)
	}
	_ = s.cache.Delete(ctx, listingCacheKey(id))

	listing, err := s.find(ctx, id)
	if err != nil {
		return model.ListingView{}, err
	}
	return model.NewListingView(listing), nil
}

// ToggleFavorite saves or unsaves a listing and reports whether it is now saved.
func (s *marketplaceService) ToggleFavorite(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	if _, err := s.find(ctx, id); err != nil {
		return false, err
	}
	favorited, err := s.listings.ToggleFavorite(ctx, userID, id)
	if err != nil {
		s.logger.Error("marketplace.favorite.toggle.failed", zap.String("listingId", id.String()), zap.Error(err))
		return false, fmt.Errorf("toggle favorite: %w", err)
	}
	_ = s.cache.Delete(ctx, listingCacheKey(id))
	return favorited, nil
}

// Favorites lists the listings userID saved.
func (s *marketplaceService) Favorites(ctx context.Context, userID uuid.UUID) ([]model.ListingView, error) {
	listings, err := s.listings.ListFavorites(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	out := make([]model.ListingView, 0, len(listings))
	for i := range listings {
		out = append(out, model.NewListingView(&listings[i]))
	}
	return out, nil
}
