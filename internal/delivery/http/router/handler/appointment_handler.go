// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"clinicbook/internal/delivery/http/response"
	"clinicbook/internal/domain/entity"
	"clinicbook/internal/domain/repository"
	"clinicbook/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const dateLayout = "2006-01-02"

// AppointmentHandler holds dependencies for appointment-related handlers.
type AppointmentHandler struct {
	bookingUC      usecase.BookingUsecase
	availabilityUC usecase.AvailabilityUsecase
	logger         *slog.Logger
}

// NewAppointmentHandler is the constructor for AppointmentHandler, injected by Fx.
func NewAppointmentHandler(
	bookingUC usecase.BookingUsecase,
	availabilityUC usecase.AvailabilityUsecase,
	logger *slog.Logger,
) *AppointmentHandler {
	return &AppointmentHandler{
		bookingUC:      bookingUC,
		availabilityUC: availabilityUC,
		logger:         logger,
	}
}

// createAppointmentRequest is the booking request body.
type createAppointmentRequest struct {
	ProviderID   string    `json:"provider_id" validate:"required,uuid"`
	PatientName  string    `json:"patient_name" validate:"required"`
	PatientPhone string    `json:"patient_phone" validate:"required"`
	Notes        string    `json:"notes"`
	StartTime    time.Time `json:"start_time" validate:"required"`
	EndTime      time.Time `json:"end_time" validate:"required"`
}

// updateAppointmentRequest carries a lifecycle transition.
type updateAppointmentRequest struct {
	Status string `json:"status" validate:"required"`
}

// AvailableSlots handles GET /api/appointments/available-slots/:providerID.
// The date query parameter selects the calendar day (YYYY-MM-DD, UTC).
func (h *AppointmentHandler) AvailableSlots(c echo.Context) error {
	providerID, err := uuid.Parse(c.Param("providerID"))
	if err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Invalid provider ID")
	}

	day, err := time.ParseInLocation(dateLayout, c.QueryParam("date"), time.UTC)
	if err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Invalid or missing date, expected YYYY-MM-DD")
	}

	availability, err := h.availabilityUC.ListAvailableSlots(c.Request().Context(), providerID, day)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, availability, "Available slots retrieved successfully")
}

// Create handles POST /api/appointments.
func (h *AppointmentHandler) Create(c echo.Context) error {
	var req createAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid appointment input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	providerID, err := uuid.Parse(req.ProviderID)
	if err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Invalid provider ID")
	}

	result, err := h.bookingUC.CreateBooking(c.Request().Context(), &usecase.BookingRequest{
		ProviderID:   providerID,
		PatientName:  req.PatientName,
		PatientPhone: req.PatientPhone,
		Notes:        req.Notes,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, toBookingResponse(result), "Appointment booked successfully")
}

// UpdateStatus handles PATCH /api/appointments/:id.
func (h *AppointmentHandler) UpdateStatus(c echo.Context) error {
	appointmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Invalid appointment ID")
	}

	var req updateAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid status input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	status, err := entity.ParseAppointmentStatus(req.Status)
	if err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Unknown appointment status")
	}

	result, err := h.bookingUC.UpdateStatus(c.Request().Context(), appointmentID, status)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toBookingResponse(result), "Appointment updated successfully")
}

// Cancel handles DELETE /api/appointments/:id as a cancellation.
func (h *AppointmentHandler) Cancel(c echo.Context) error {
	appointmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Invalid appointment ID")
	}

	result, err := h.bookingUC.UpdateStatus(c.Request().Context(), appointmentID, entity.StatusCancelled)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toBookingResponse(result), "Appointment cancelled successfully")
}

// ListByProvider handles GET /api/appointments/provider/:providerID with
// optional status and date filters.
func (h *AppointmentHandler) ListByProvider(c echo.Context) error {
	providerID, err := uuid.Parse(c.Param("providerID"))
	if err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Invalid provider ID")
	}

	var filter repository.AppointmentFilter

	if raw := c.QueryParam("status"); raw != "" {
		status, err := entity.ParseAppointmentStatus(raw)
		if err != nil {
			return response.BadRequest(c, "INVALID_INPUT", "Unknown appointment status")
		}
		filter.Status = status
	}

	if raw := c.QueryParam("date"); raw != "" {
		day, err := time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			return response.BadRequest(c, "INVALID_INPUT", "Invalid date, expected YYYY-MM-DD")
		}
		filter.Day = &day
	}

	appointments, err := h.bookingUC.ListProviderAppointments(c.Request().Context(), providerID, filter)
	if err != nil {
		return errors.WithStack(err)
	}

	items := make([]*appointmentResponse, 0, len(appointments))
	for _, appointment := range appointments {
		items = append(items, toAppointmentResponse(appointment))
	}

	return response.Success(c, http.StatusOK, items, "Appointments retrieved successfully")
}

// --- Response models ---

// appointmentResponse is the wire shape of an appointment.
type appointmentResponse struct {
	ID              uuid.UUID `json:"id"`
	ProviderID      uuid.UUID `json:"provider_id"`
	PatientName     string    `json:"patient_name"`
	PatientPhone    string    `json:"patient_phone"`
	Notes           string    `json:"notes,omitempty"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	Status          string    `json:"status"`
	ExternalEventID string    `json:"external_event_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// bookingResponse pairs the appointment with the calendar mirror outcome.
type bookingResponse struct {
	Appointment  *appointmentResponse `json:"appointment"`
	CalendarSync string               `json:"calendar_sync"`
}

func toAppointmentResponse(appointment *entity.Appointment) *appointmentResponse {
	if appointment == nil {
		return nil
	}

	return &appointmentResponse{
		ID:              appointment.ID,
		ProviderID:      appointment.ProviderID,
		PatientName:     appointment.PatientName,
		PatientPhone:    appointment.PatientPhone,
		Notes:           appointment.Notes,
		StartTime:       appointment.StartTime,
		EndTime:         appointment.EndTime,
		Status:          string(appointment.Status),
		ExternalEventID: appointment.ExternalEventID,
		CreatedAt:       appointment.CreatedAt,
		UpdatedAt:       appointment.UpdatedAt,
	}
}

func toBookingResponse(result *usecase.BookingResult) *bookingResponse {
	if result == nil {
		return nil
	}

	return &bookingResponse{
		Appointment:  toAppointmentResponse(result.Appointment),
		CalendarSync: string(result.CalendarSync),
	}
}
