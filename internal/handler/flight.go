package handler

import (
	"github.com/iliyamo/airport-kiosk/internal/service"
	"github.com/labstack/echo/v4"
)

// FlightHandler serves the read-only flight endpoints.
type FlightHandler struct {
	Flights *service.FlightService
}

// NewFlightHandler panics when flights is nil.
func NewFlightHandler(flights *service.FlightService) *FlightHandler {
	if flights == nil {
		panic("nil service passed to NewFlightHandler")
	}
	return &FlightHandler{Flights: flights}
}

// List handles GET /api/flights.
func (h *FlightHandler) List(c echo.Context) error {
	flights, err := h.Flights.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, flights, "Flights retrieved successfully")
}

// Get handles GET /api/flights/:flightId.
func (h *FlightHandler) Get(c echo.Context) error {
	flight, err := h.Flights.Get(c.Request().Context(), c.Param("flightId"))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, flight, "Flight retrieved successfully")
}
