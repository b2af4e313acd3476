// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"clinicbook/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AppointmentHandler *handler.AppointmentHandler
	ProviderHandler    *handler.ProviderHandler
	CalendarHandler    *handler.CalendarHandler
}

// router holds all the handlers that need to be registered.
type router struct {
	appointmentHandler *handler.AppointmentHandler
	providerHandler    *handler.ProviderHandler
	calendarHandler    *handler.CalendarHandler
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		appointmentHandler: params.AppointmentHandler,
		providerHandler:    params.ProviderHandler,
		calendarHandler:    params.CalendarHandler,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	api := e.Group("/api")

	providerGroup := api.Group("/providers")
	{
		providerGroup.GET("", r.providerHandler.List)
		providerGroup.GET("/:id", r.providerHandler.Get)
		providerGroup.PUT("/:id/profile", r.providerHandler.UpsertProfile)
		providerGroup.PATCH("/:id/working-hours", r.providerHandler.UpdateWorkingHours)
	}

	appointmentGroup := api.Group("/appointments")
	{
		appointmentGroup.GET("/available-slots/:providerID", r.appointmentHandler.AvailableSlots)
		appointmentGroup.GET("/provider/:providerID", r.appointmentHandler.ListByProvider)
		appointmentGroup.POST("", r.appointmentHandler.Create)
		appointmentGroup.PATCH("/:id", r.appointmentHandler.UpdateStatus)
		appointmentGroup.DELETE("/:id", r.appointmentHandler.Cancel)
	}

	calendarGroup := api.Group("/calendar")
	{
		calendarGroup.GET("/connect/:providerID", r.calendarHandler.Connect)
		calendarGroup.GET("/callback", r.calendarHandler.Callback)
	}
}
