package handler

import (
	"log/slog"
	"net/http"

	"clinicbook/config"
	"clinicbook/internal/delivery/http/response"
	"clinicbook/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// CalendarHandler drives the external calendar authorization flow.
type CalendarHandler struct {
	uc          usecase.CalendarLinkUsecase
	frontendURL string
	logger      *slog.Logger
}

// NewCalendarHandler is the constructor for CalendarHandler, injected by Fx.
func NewCalendarHandler(uc usecase.CalendarLinkUsecase, cfg *config.Config, logger *slog.Logger) *CalendarHandler {
	return &CalendarHandler{
		uc:          uc,
		frontendURL: cfg.HTTP.FrontendURL,
		logger:      logger,
	}
}

// Connect handles GET /api/calendar/connect/:providerID and returns the
// authorization URL the user should be sent to.
func (h *CalendarHandler) Connect(c echo.Context) error {
	providerID, err := uuid.Parse(c.Param("providerID"))
	if err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Invalid provider ID")
	}

	url, err := h.uc.BeginLink(c.Request().Context(), providerID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"url": url}, "Authorization URL generated successfully")
}

// Callback handles GET /api/calendar/callback, the redirect target of the
// external authorization flow. On success the user lands back on the
// frontend when one is configured.
func (h *CalendarHandler) Callback(c echo.Context) error {
	state := c.QueryParam("state")
	code := c.QueryParam("code")
	if state == "" || code == "" {
		return response.BadRequest(c, "INVALID_INPUT", "Missing state or code")
	}

	if err := h.uc.CompleteLink(c.Request().Context(), state, code); err != nil {
		return errors.WithStack(err)
	}

	if h.frontendURL != "" {
		return c.Redirect(http.StatusFound, h.frontendURL+"?calendar_linked=true")
	}

	return response.Success(c, http.StatusOK, map[string]string{"status": "linked"}, "Calendar linked successfully")
}
