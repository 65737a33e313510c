package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"campusconnect/internal/errors"
	"campusconnect/internal/livekit"
	"campusconnect/internal/service"
)

// WebhookParser verifies and decodes a room provider callback.
type WebhookParser interface {
	ParseWebhook(r *http.Request) (*livekit.WebhookEvent, error)
}

// LivestreamHandler handles live room endpoints.
type LivestreamHandler struct {
	livestreamService service.LivestreamService
	webhooks          WebhookParser
	logger            *zap.Logger
}

// NewLivestreamHandler creates a new livestream handler. webhooks may be nil
// when the room provider is not configured.
func NewLivestreamHandler(livestreamService service.LivestreamService, webhooks WebhookParser, logger *zap.Logger) *LivestreamHandler {
	return &LivestreamHandler{
		livestreamService: livestreamService,
		webhooks:          webhooks,
		logger:            logger,
	}
}

// StartLivestreamRequest represents a livestream start request.
type StartLivestreamRequest struct {
	Title string `json:"title" validate:"required,min=3,max=100"`
}

// StartLivestream godoc
// @Summary Start a livestream
// @Tags livestreams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body StartLivestreamRequest true "Stream title"
// @Success 201 {object} service.RoomSession
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /livestreams [post]
func (h *LivestreamHandler) StartLivestream(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req StartLivestreamRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	session, err := h.livestreamService.Start(c.Request().Context(), user.ID, req.Title)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, session)
}

// JoinLivestream godoc
// @Summary Join a livestream
// @Tags livestreams
// @Produce json
// @Security BearerAuth
// @Param id path string true "Livestream ID"
// @Success 200 {object} service.RoomSession
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /livestreams/{id}/join [post]
func (h *LivestreamHandler) JoinLivestream(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	session, err := h.livestreamService.Join(c.Request().Context(), user.ID, id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, session)
}

// EndLivestream godoc
// @Summary End a livestream
// @Tags livestreams
// @Produce json
// @Security BearerAuth
// @Param id path string true "Livestream ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /livestreams/{id}/end [post]
func (h *LivestreamHandler) EndLivestream(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.livestreamService.End(c.Request().Context(), user.ID, id); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Livestream ended"})
}

// ListActive godoc
// @Summary List live streams
// @Tags livestreams
// @Produce json
// @Success 200 {array} model.LivestreamView
// @Failure 500 {object} errors.ErrorResponse
// @Router /livestreams [get]
func (h *LivestreamHandler) ListActive(c echo.Context) error {
	streams, err := h.livestreamService.ListActive(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, streams)
}

// GetLivestream godoc
// @Summary Get a livestream
// @Tags livestreams
// @Produce json
// @Param id path string true "Livestream ID"
// @Success 200 {object} model.LivestreamView
// @Failure 404 {object} errors.ErrorResponse
// @Router /livestreams/{id} [get]
func (h *LivestreamHandler) GetLivestream(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	stream, err := h.livestreamService.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, stream)
}

// Webhook godoc
// @Summary Receive room provider events
// @Tags livestreams
// @Accept json
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /livestreams/webhook [post]
func (h *LivestreamHandler) Webhook(c echo.Context) error {
	if h.webhooks == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, errors.ErrorResponse{
			Error: livekit.ErrNotConfigured.Error(),
			Code:  "LIVESTREAMS_UNAVAILABLE",
		})
	}

	event, err := h.webhooks.ParseWebhook(c.Request())
	if err != nil {
		h.logger.Warn("webhook_rejected", zap.Error(err))
		return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: "invalid webhook signature",
			Code:  "INVALID_WEBHOOK",
		})
	}

	if err := h.livestreamService.ApplyWebhook(c.Request().Context(), event); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "ok"})
}
