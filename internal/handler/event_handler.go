package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"campusconnect/internal/service"
)

// EventHandler handles campus event endpoints.
type EventHandler struct {
	eventService service.EventService
}

// NewEventHandler creates a new event handler.
func NewEventHandler(eventService service.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// CreateEventRequest represents an event creation request.
type CreateEventRequest struct {
	Title       string    `json:"title" validate:"required,min=3,max=100"`
	Description *string   `json:"description" validate:"omitempty,max=500"`
	StartDate   time.Time `json:"startDate" validate:"required"`
	EndDate     time.Time `json:"endDate" validate:"required"`
	Location    *string   `json:"location" validate:"omitempty,max=200"`
	Banner      *string   `json:"banner" validate:"omitempty,url"`
}

// CreateEvent godoc
// @Summary Create a campus event
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateEventRequest true "Event data"
// @Success 201 {object} model.EventView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /events [post]
func (h *EventHandler) CreateEvent(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req CreateEventRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	event, err := h.eventService.Create(c.Request().Context(), user.ID, service.CreateEventInput{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Location:    req.Location,
		Banner:      req.Banner,
	})
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, event)
}

// ListEvents godoc
// @Summary List upcoming events
// @Tags events
// @Produce json
// @Success 200 {array} model.EventView
// @Failure 500 {object} errors.ErrorResponse
// @Router /events [get]
func (h *EventHandler) ListEvents(c echo.Context) error {
	events, err := h.eventService.List(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, events)
}

// GetEvent godoc
// @Summary Get an event
// @Tags events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} model.EventView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /events/{id} [get]
func (h *EventHandler) GetEvent(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	event, err := h.eventService.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, event)
}
