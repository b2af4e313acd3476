package handler

import (
	"log/slog"
	"net/http"
	"time"

	"clinicbook/internal/delivery/http/response"
	"clinicbook/internal/domain/entity"
	"clinicbook/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// ProviderHandler holds dependencies for provider-related handlers.
type ProviderHandler struct {
	uc     usecase.ProviderUsecase
	logger *slog.Logger
}

// NewProviderHandler is the constructor for ProviderHandler, injected by Fx.
func NewProviderHandler(uc usecase.ProviderUsecase, logger *slog.Logger) *ProviderHandler {
	return &ProviderHandler{
		uc:     uc,
		logger: logger,
	}
}

// profileRequest is the provider profile body.
type profileRequest struct {
	Name           string `json:"name" validate:"required"`
	Specialization string `json:"specialization"`
	Description    string `json:"description"`
	PhoneNumber    string `json:"phone_number"`
}

// workingHoursRequest carries the bookable window as "HH:mm" strings.
type workingHoursRequest struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

// Get handles GET /api/providers/:id.
func (h *ProviderHandler) Get(c echo.Context) error {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Invalid provider ID")
	}

	provider, err := h.uc.GetProvider(c.Request().Context(), providerID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toProviderResponse(provider), "Provider retrieved successfully")
}

// List handles GET /api/providers.
func (h *ProviderHandler) List(c echo.Context) error {
	providers, err := h.uc.ListProviders(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	items := make([]*providerResponse, 0, len(providers))
	for _, provider := range providers {
		items = append(items, toProviderResponse(provider))
	}

	return response.Success(c, http.StatusOK, items, "Providers retrieved successfully")
}

// UpsertProfile handles PUT /api/providers/:id/profile.
func (h *ProviderHandler) UpsertProfile(c echo.Context) error {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Invalid provider ID")
	}

	var req profileRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid profile input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	provider, err := h.uc.UpsertProfile(c.Request().Context(), providerID, &usecase.ProfileInput{
		Name:           req.Name,
		Specialization: req.Specialization,
		Description:    req.Description,
		PhoneNumber:    req.PhoneNumber,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toProviderResponse(provider), "Provider profile saved successfully")
}

// UpdateWorkingHours handles PATCH /api/providers/:id/working-hours.
func (h *ProviderHandler) UpdateWorkingHours(c echo.Context) error {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Invalid provider ID")
	}

	var req workingHoursRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid working hours input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	provider, err := h.uc.UpdateWorkingHours(c.Request().Context(), providerID, req.Start, req.End)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toProviderResponse(provider), "Working hours updated successfully")
}

// --- Response models ---

// providerResponse is the wire shape of a provider. Credential material is
// never exposed; only the fact that a calendar is linked.
type providerResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization,omitempty"`
	Description    string    `json:"description,omitempty"`
	PhoneNumber    string    `json:"phone_number,omitempty"`
	WorkStart      string    `json:"work_start"`
	WorkEnd        string    `json:"work_end"`
	CalendarLinked bool      `json:"calendar_linked"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toProviderResponse(provider *entity.Provider) *providerResponse {
	if provider == nil {
		return nil
	}

	return &providerResponse{
		ID:             provider.ID,
		Name:           provider.Name,
		Specialization: provider.Specialization,
		Description:    provider.Description,
		PhoneNumber:    provider.PhoneNumber,
		WorkStart:      provider.WorkingHours.Start.String(),
		WorkEnd:        provider.WorkingHours.End.String(),
		CalendarLinked: provider.SyncActive(),
		CreatedAt:      provider.CreatedAt,
		UpdatedAt:      provider.UpdatedAt,
	}
}
