package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "campusconnect/internal/errors"
	"campusconnect/internal/model"
	"campusconnect/internal/repository"
)

func newMarketplace(repo *MockListingRepository) MarketplaceService {
	return NewMarketplaceService(repo, nil, zap.NewNop())
}

func TestMarketplaceService_ListNormalizesFilter(t *testing.T) {
	tests := []struct {
		name          string
		filter        repository.ListingFilter
		expectedLimit int
		expectedState model.ListingStatus
	}{
		{name: "defaults", filter: repository.ListingFilter{}, expectedLimit: 20, expectedState: model.ListingActive},
		{name: "limit capped", filter: repository.ListingFilter{Limit: 1000}, expectedLimit: 100, expectedState: model.ListingActive},
		{name: "explicit status kept", filter: repository.ListingFilter{Limit: 5, Status: model.ListingSold}, expectedLimit: 5, expectedState: model.ListingSold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockListingRepository{}
			repo.On("List", mock.Anything, mock.MatchedBy(func(f repository.ListingFilter) bool {
				return f.Limit == tt.expectedLimit && f.Status == tt.expectedState
			})).Return([]model.Listing{{ID: uuid.New(), Title: "Calculus textbook", Price: decimal.RequireFromString("45.00")}}, int64(1), nil)

			page, err := newMarketplace(repo).List(context.Background(), tt.filter)

			require.NoError(t, err)
			assert.Equal(t, int64(1), page.Total)
			assert.Equal(t, tt.expectedLimit, page.Limit)
			require.Len(t, page.Listings, 1)
			repo.AssertExpectations(t)
		})
	}
}

func TestMarketplaceService_ListRejectsInvertedPriceRange(t *testing.T) {
	repo := &MockListingRepository{}
	low, high := decimal.NewFromInt(10), decimal.NewFromInt(50)

	_, err := newMarketplace(repo).List(context.Background(), repository.ListingFilter{MinPrice: &high, MaxPrice: &low})

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestMarketplaceService_Create(t *testing.T) {
	sellerID := uuid.New()
	listingID := uuid.New()

	t.Run("rejects non-positive price", func(t *testing.T) {
		repo := &MockListingRepository{}
		_, err := newMarketplace(repo).Create(context.Background(), sellerID, CreateListingInput{Title: "Lamp", Price: decimal.Zero})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("stores active listing with rounded prices", func(t *testing.T) {
		repo := &MockListingRepository{}
		original := decimal.RequireFromString("120.005")
		repo.On("Create", mock.Anything, mock.MatchedBy(func(l *model.Listing) bool {
			return l.SellerID == sellerID &&
				l.Status == model.ListingActive &&
				l.Price.Equal(decimal.RequireFromString("79.99")) &&
				l.OriginalPrice.Valid
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*model.Listing).ID = listingID
		}).Return(nil)
		repo.On("FindByID", mock.Anything, listingID).Return(&model.Listing{
			ID: listingID, SellerID: sellerID, Status: model.ListingActive, Price: decimal.RequireFromString("79.99"),
		}, nil)

		view, err := newMarketplace(repo).Create(context.Background(), sellerID, CreateListingInput{
			Title:         " Desk ",
			Description:   "Sturdy oak desk",
			Price:         decimal.RequireFromString("79.99"),
			OriginalPrice: &original,
			Condition:     model.ConditionGood,
			Category:      model.CategoryFurniture,
			Location:      "Oviatt Library",
		})

		require.NoError(t, err)
		assert.Equal(t, listingID, view.ID)
		repo.AssertExpectations(t)
	})
}

func TestMarketplaceService_OwnerOnlyMutations(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()
	listingID := uuid.New()
	listing := &model.Listing{ID: listingID, SellerID: owner, Status: model.ListingActive}

	t.Run("update by stranger", func(t *testing.T) {
		repo := &MockListingRepository{}
		repo.On("FindByID", mock.Anything, listingID).Return(listing, nil)
		title := "Mine now"

		_, err := newMarketplace(repo).Update(context.Background(), stranger, listingID, UpdateListingInput{Title: &title})

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("delete by stranger", func(t *testing.T) {
		repo := &MockListingRepository{}
		repo.On("FindByID", mock.Anything, listingID).Return(listing, nil)

		err := newMarketplace(repo).Delete(context.Background(), stranger, listingID)

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("delete by owner is soft", func(t *testing.T) {
		repo := &MockListingRepository{}
		repo.On("FindByID", mock.Anything, listingID).Return(listing, nil)
		repo.On("Update", mock.Anything, listingID, map[string]interface{}{"status": model.ListingDeleted}).Return(nil)

		err := newMarketplace(repo).Delete(context.Background(), owner, listingID)

		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("update by owner writes only given fields", func(t *testing.T) {
		repo := &MockListingRepository{}
		repo.On("FindByID", mock.Anything, listingID).Return(listing, nil)
		sold := model.ListingSold
		repo.On("Update", mock.Anything, listingID, map[string]interface{}{"status": sold}).Return(nil)

		_, err := newMarketplace(repo).Update(context.Background(), owner, listingID, UpdateListingInput{Status: &sold})

		require.NoError(t, err)
		repo.AssertExpectations(t)
	})
}

func TestMarketplaceService_DeletedListingIsNotFound(t *testing.T) {
	repo := &MockListingRepository{}
	id := uuid.New()
	repo.On("FindByID", mock.Anything, id).Return(&model.Listing{ID: id, Status: model.ListingDeleted}, nil)

	_, err := newMarketplace(repo).Get(context.Background(), id)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMarketplaceService_IncrementViews(t *testing.T) {
	repo := &MockListingRepository{}
	missing := uuid.New()
	repo.On("IncrementViews", mock.Anything, missing).Return(gorm.ErrRecordNotFound)

	_, err := newMarketplace(repo).IncrementViews(context.Background(), missing)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMarketplaceService_ToggleFavorite(t *testing.T) {
	repo := &MockListingRepository{}
	userID, listingID := uuid.New(), uuid.New()
	repo.On("FindByID", mock.Anything, listingID).Return(&model.Listing{ID: listingID, Status: model.ListingActive}, nil)
	repo.On("ToggleFavorite", mock.Anything, userID, listingID).Return(true, nil).Once()
	repo.On("ToggleFavorite", mock.Anything, userID, listingID).Return(false, nil).Once()
	svc := newMarketplace(repo)

	first, err := svc.ToggleFavorite(context.Background(), userID, listingID)
	require.NoError(t, err)
	second, err := svc.ToggleFavorite(context.Background(), userID, listingID)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
}
