package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"campusconnect/internal/errors"
	"campusconnect/internal/model"
	"campusconnect/internal/repository"
	"campusconnect/internal/service"
)

// MarketplaceHandler handles marketplace listing endpoints.
type MarketplaceHandler struct {
	marketplaceService service.MarketplaceService
}

// NewMarketplaceHandler creates a new marketplace handler.
func NewMarketplaceHandler(marketplaceService service.MarketplaceService) *MarketplaceHandler {
	return &MarketplaceHandler{marketplaceService: marketplaceService}
}

// CreateListingRequest represents a listing creation request.
type CreateListingRequest struct {
	Title         string           `json:"title" validate:"required,min=3,max=100"`
	Description   string           `json:"description" validate:"required,min=10,max=2000"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice"`
	Images        []string         `json:"images" validate:"max=10,dive,url"`
	Condition     string           `json:"condition" validate:"required,oneof=likeNew excellent good fair poor"`
	Category      string           `json:"category" validate:"required,oneof=textbooks electronics furniture clothing accessories other"`
	Location      string           `json:"location" validate:"required,min=2,max=200"`
}

// UpdateListingRequest holds the listing fields to change.
type UpdateListingRequest struct {
	Title         *string          `json:"title" validate:"omitempty,min=3,max=100"`
	Description   *string          `json:"description" validate:"omitempty,min=10,max=2000"`
	Price         *decimal.Decimal `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice"`
	Images        *[]string        `json:"images" validate:"omitempty,max=10,dive,url"`
	Condition     *string          `json:"condition" validate:"omitempty,oneof=likeNew excellent good fair poor"`
	Category      *string          `json:"category" validate:"omitempty,oneof=textbooks electronics furniture clothing accessories other"`
	Location      *string          `json:"location" validate:"omitempty,min=2,max=200"`
	Status        *string          `json:"status" validate:"omitempty,oneof=active sold inactive"`
}

// FavoriteResponse reports the favorite state after a toggle.
type FavoriteResponse struct {
	Favorited bool `json:"favorited"`
}

func invalidQuery(name string) error {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
		Error: "invalid " + name,
		Code:  "INVALID_QUERY",
	})
}

func queryDecimal(c echo.Context, name string) (*decimal.Decimal, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, invalidQuery(name)
	}
	return &d, nil
}

// ListListings godoc
// @Summary Search marketplace listings
// @Tags marketplace
// @Produce json
// @Param category query string false "Category"
// @Param condition query string false "Condition"
// @Param minPrice query string false "Minimum price"
// @Param maxPrice query string false "Maximum price"
// @Param search query string false "Title or description search"
// @Param sellerId query string false "Seller ID"
// @Param status query string false "Status (default active)"
// @Param sortBy query string false "recent, price-low, price-high or popular"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} service.ListingPage
// @Failure 400 {object} errors.ErrorResponse
// @Router /marketplace [get]
func (h *MarketplaceHandler) ListListings(c echo.Context) error {
	filter := repository.ListingFilter{
		Category:  model.ListingCategory(c.QueryParam("category")),
		Condition: model.ItemCondition(c.QueryParam("condition")),
		Search:    c.QueryParam("search"),
		Status:    model.ListingStatus(c.QueryParam("status")),
		SortBy:    c.QueryParam("sortBy"),
		Limit:     queryInt(c, "limit"),
		Offset:    queryInt(c, "offset"),
	}

	var err error
	if filter.MinPrice, err = queryDecimal(c, "minPrice"); err != nil {
		return err
	}
	if filter.MaxPrice, err = queryDecimal(c, "maxPrice"); err != nil {
		return err
	}
	if raw := c.QueryParam("sellerId"); raw != "" {
		sellerID, err := uuid.Parse(raw)
		if err != nil {
			return invalidQuery("sellerId")
		}
		filter.SellerID = &sellerID
	}

	page, err := h.marketplaceService.List(c.Request().Context(), filter)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, page)
}

// GetListing godoc
// @Summary Get a listing
// @Tags marketplace
// @Produce json
// @Param id path string true "Listing ID"
// @Success 200 {object} model.ListingView
// @Failure 404 {object} errors.ErrorResponse
// @Router /marketplace/{id} [get]
func (h *MarketplaceHandler) GetListing(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	listing, err := h.marketplaceService.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, listing)
}

// CreateListing godoc
// @Summary Create a listing
// @Tags marketplace
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateListingRequest true "Listing data"
// @Success 201 {object} model.ListingView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /marketplace [post]
func (h *MarketplaceHandler) CreateListing(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req CreateListingRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	listing, err := h.marketplaceService.Create(c.Request().Context(), user.ID, service.CreateListingInput{
		Title:         req.Title,
		Description:   req.Description,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		Images:        req.Images,
		Condition:     model.ItemCondition(req.Condition),
		Category:      model.ListingCategory(req.Category),
		Location:      req.Location,
	})
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, listing)
}

// UpdateListing godoc
// @Summary Update a listing
// @Tags marketplace
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Param request body UpdateListingRequest true "Listing fields"
// @Success 200 {object} model.ListingView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /marketplace/{id} [put]
func (h *MarketplaceHandler) UpdateListing(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req UpdateListingRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	in := service.UpdateListingInput{
		Title:         req.Title,
		Description:   req.Description,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		Images:        req.Images,
		Location:      req.Location,
	}
	if req.Condition != nil {
		condition := model.ItemCondition(*req.Condition)
		in.Condition = &condition
	}
	if req.Category != nil {
		category := model.ListingCategory(*req.Category)
		in.Category = &category
	}
	if req.Status != nil {
		status := model.ListingStatus(*req.Status)
		in.Status = &status
	}

	listing, err := h.marketplaceService.Update(c.Request().Context(), user.ID, id, in)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, listing)
}

// DeleteListing godoc
// @Summary Delete a listing
// @Tags marketplace
// @Produce json
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /marketplace/{id} [delete]
func (h *MarketplaceHandler) DeleteListing(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.marketplaceService.Delete(c.Request().Context(), user.ID, id); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Listing deleted successfully"})
}

// RecordView godoc
// @Summary Count a view of a listing
// @Tags marketplace
// @Produce json
// @Param id path string true "Listing ID"
// @Success 200 {object} model.ListingView
// @Failure 404 {object} errors.ErrorResponse
// @Router /marketplace/{id}/view [post]
func (h *MarketplaceHandler) RecordView(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	listing, err := h.marketplaceService.IncrementViews(c.Request().Context(), id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, listing)
}

// ToggleFavorite godoc
// @Summary Add or remove a listing from favorites
// @Tags marketplace
// @Produce json
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Success 200 {object} FavoriteResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /marketplace/{id}/favorite [post]
func (h *MarketplaceHandler) ToggleFavorite(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	favorited, err := h.marketplaceService.ToggleFavorite(c.Request().Context(), user.ID, id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, FavoriteResponse{Favorited: favorited})
}

// ListFavorites godoc
// @Summary List the authenticated user's favorite listings
// @Tags marketplace
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.ListingView
// @Failure 401 {object} errors.ErrorResponse
// @Router /marketplace/favorites [get]
func (h *MarketplaceHandler) ListFavorites(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	listings, err := h.marketplaceService.Favorites(c.Request().Context(), user.ID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, listings)
}
