package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"campusconnect/internal/errors"
	"campusconnect/internal/model"
	"campusconnect/internal/service"
)

// UserHandler handles profile endpoints.
type UserHandler struct {
	authService service.AuthService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(authService service.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

// UpsertProfileRequest holds the profile fields to change. Absent fields are kept.
type UpsertProfileRequest struct {
	FirstName      *string   `json:"firstName" validate:"omitempty,min=2,max=20"`
	LastName       *string   `json:"lastName" validate:"omitempty,min=2,max=20"`
	ProfilePicture *string   `json:"profilePicture" validate:"omitempty,max=512"`
	Bio            *string   `json:"bio" validate:"omitempty,max=250"`
	City           *string   `json:"city" validate:"omitempty,max=50"`
	Websites       *[]string `json:"websites" validate:"omitempty,max=5,dive,url"`
}

// UserResponse wraps a single user.
type UserResponse struct {
	User model.PublicUser `json:"user"`
}

// UpsertProfileResponse represents a profile update response.
type UpsertProfileResponse struct {
	Message string           `json:"message"`
	Data    model.PublicUser `json:"data"`
}

// Me godoc
// @Summary Get the authenticated user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, UserResponse{User: user})
}

// UpsertProfile godoc
// @Summary Update profile fields of the authenticated user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpsertProfileRequest true "Profile fields"
// @Success 200 {object} UpsertProfileResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /users/upsert-profile [put]
func (h *UserHandler) UpsertProfile(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req UpsertProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	updated, err := h.authService.UpsertProfile(c.Request().Context(), user.ID, service.ProfileUpdate{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		ProfilePicture: req.ProfilePicture,
		Bio:            req.Bio,
		City:           req.City,
		Websites:       req.Websites,
	})
	if err != nil {
		return respondError(err)
	}

	return c.JSON(http.StatusOK, UpsertProfileResponse{
		Message: "Profile upserted successfully",
		Data:    updated,
	})
}

// PublicProfile godoc
// @Summary Get a user's public profile
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} model.PublicUser
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/public_profile/{id} [get]
func (h *UserHandler) PublicProfile(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	profile, err := h.authService.PublicProfile(c.Request().Context(), id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

// DeleteAccount godoc
// @Summary Delete the authenticated user's account
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteAccount(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if id != user.ID {
		return respondError(errors.ErrForbidden)
	}

	if err := h.authService.DeleteAccount(c.Request().Context(), id); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Account deleted successfully"})
}

// ListUsers godoc
// @Summary List all users (development only)
// @Tags users
// @Produce json
// @Success 200 {array} model.PublicUser
// @Failure 500 {object} errors.ErrorResponse
// @Router /users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.authService.ListUsers(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, users)
}
