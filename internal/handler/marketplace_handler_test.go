package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "campusconnect/internal/errors"
	"campusconnect/internal/model"
	"campusconnect/internal/repository"
	"campusconnect/internal/service"
)

func newMarketplaceServer(svc *MockMarketplaceService, user *model.PublicUser) *echo.Echo {
	h := NewMarketplaceHandler(svc)
	e := newServer(user)
	e.GET("/marketplace", h.ListListings)
	e.GET("/marketplace/favorites", h.ListFavorites)
	e.GET("/marketplace/:id", h.GetListing)
	e.POST("/marketplace", h.CreateListing)
	e.PUT("/marketplace/:id", h.UpdateListing)
	e.DELETE("/marketplace/:id", h.DeleteListing)
	e.POST("/marketplace/:id/view", h.RecordView)
	e.POST("/marketplace/:id/favorite", h.ToggleFavorite)
	return e
}

func TestListListingsHandler(t *testing.T) {
	sellerID := uuid.New()

	t.Run("filters are parsed", func(t *testing.T) {
		svc := new(MockMarketplaceService)
		svc.On("List", mock.Anything, mock.MatchedBy(func(f repository.ListingFilter) bool {
			return f.Category == model.CategoryTextbooks &&
				f.MinPrice != nil && f.MinPrice.Equal(decimal.RequireFromString("5")) &&
				f.MaxPrice != nil && f.MaxPrice.Equal(decimal.RequireFromString("40.50")) &&
				f.SellerID != nil && *f.SellerID == sellerID &&
				f.SortBy == repository.SortPriceLow && f.Limit == 10 && f.Offset == 20 && f.Search == "calc"
		})).Return(&service.ListingPage{Listings: []model.ListingView{}, Total: 0, Limit: 10, Offset: 20}, nil)

		path := "/marketplace?category=textbooks&minPrice=5&maxPrice=40.50&sellerId=" + sellerID.String() +
			"&sortBy=price-low&limit=10&offset=20&search=calc"
		rec := do(newMarketplaceServer(svc, nil), http.MethodGet, path, "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"listings":[],"total":0,"limit":10,"offset":20}`, rec.Body.String())
		svc.AssertExpectations(t)
	})

	for _, path := range []string{"/marketplace?minPrice=cheap", "/marketplace?sellerId=42"} {
		t.Run(path, func(t *testing.T) {
			rec := do(newMarketplaceServer(new(MockMarketplaceService), nil), http.MethodGet, path, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "INVALID_QUERY", decodeError(t, rec.Body.Bytes()).Code)
		})
	}
}

func TestCreateListingHandler(t *testing.T) {
	user := model.PublicUser{ID: uuid.New()}
	valid := `{"title":"Calculus book","description":"Early transcendentals, 8th edition","price":"25.5",` +
		`"condition":"good","category":"textbooks","location":"Oviatt Library"}`

	tests := []struct {
		name           string
		body           string
		mockSetup      func(*MockMarketplaceService)
		expectedStatus int
	}{
		{
			name: "created",
			body: valid,
			mockSetup: func(m *MockMarketplaceService) {
				m.On("Create", mock.Anything, user.ID, mock.MatchedBy(func(in service.CreateListingInput) bool {
					return in.Price.Equal(decimal.RequireFromString("25.5")) && in.Condition == model.ConditionGood
				})).Return(model.ListingView{ID: uuid.New(), Title: "Calculus book"}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "unknown category",
			body:           `{"title":"Calculus book","description":"Early transcendentals","price":"25","condition":"good","category":"cars","location":"Oviatt"}`,
			mockSetup:      func(m *MockMarketplaceService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "non-positive price",
			body: valid,
			mockSetup: func(m *MockMarketplaceService) {
				m.On("Create", mock.Anything, user.ID, mock.Anything).Return(model.ListingView{}, apperrors.ErrInvalidInput)
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockMarketplaceService)
			tt.mockSetup(svc)

			rec := do(newMarketplaceServer(svc, &user), http.MethodPost, "/marketplace", tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestUpdateAndDeleteListingHandlers(t *testing.T) {
	user := model.PublicUser{ID: uuid.New()}
	listingID := uuid.New()
	svc := new(MockMarketplaceService)
	svc.On("Update", mock.Anything, user.ID, listingID, mock.MatchedBy(func(in service.UpdateListingInput) bool {
		return in.Status != nil && *in.Status == model.ListingSold && in.Title == nil
	})).Return(model.ListingView{ID: listingID, Status: model.ListingSold}, nil)
	svc.On("Delete", mock.Anything, user.ID, listingID).Return(apperrors.ErrForbidden)
	e := newMarketplaceServer(svc, &user)

	rec := do(e, http.MethodPut, "/marketplace/"+listingID.String(), `{"status":"sold"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var view model.ListingView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, model.ListingSold, view.Status)

	rec = do(e, http.MethodPut, "/marketplace/"+listingID.String(), `{"status":"deleted"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodDelete, "/marketplace/"+listingID.String(), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	svc.AssertExpectations(t)
}

func TestFavoritesAndViewsHandlers(t *testing.T) {
	user := model.PublicUser{ID: uuid.New()}
	listingID := uuid.New()
	svc := new(MockMarketplaceService)
	svc.On("ToggleFavorite", mock.Anything, user.ID, listingID).Return(true, nil)
	svc.On("Favorites", mock.Anything, user.ID).Return([]model.ListingView{{ID: listingID}}, nil)
	svc.On("IncrementViews", mock.Anything, listingID).Return(model.ListingView{ID: listingID, Views: 3}, nil)
	e := newMarketplaceServer(svc, &user)

	rec := do(e, http.MethodPost, "/marketplace/"+listingID.String()+"/favorite", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"favorited":true}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/marketplace/favorites", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var favorites []model.ListingView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &favorites))
	assert.Len(t, favorites, 1)

	rec = do(e, http.MethodPost, "/marketplace/"+listingID.String()+"/view", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"views":3`)
	svc.AssertExpectations(t)
}
