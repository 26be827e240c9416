package handler

import (
	"net/http"

	"github.com/iliyamo/airport-kiosk/internal/service"
	"github.com/labstack/echo/v4"
)

// BaggageHandler serves baggage check-in and the per-flight totals.
type BaggageHandler struct {
	Baggage  *service.BaggageService
	Bookings *service.BookingService
}

// NewBaggageHandler panics when a dependency is nil.
func NewBaggageHandler(baggage *service.BaggageService, bookings *service.BookingService) *BaggageHandler {
	if baggage == nil || bookings == nil {
		panic("nil service passed to NewBaggageHandler")
	}
	return &BaggageHandler{Baggage: baggage, Bookings: bookings}
}

type baggageCheckInRequest struct {
	Weight float64 `json:"weight"`
	Count  int     `json:"count"`
}

// CheckIn handles POST /api/bookings/:bookingId/baggage.  The flight is
// taken from the booking.
func (h *BaggageHandler) CheckIn(c echo.Context) error {
	var req baggageCheckInRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_INPUT", "invalid request body")
	}
	ctx := c.Request().Context()
	booking, err := h.Bookings.Get(ctx, c.Param("bookingId"))
	if err != nil {
		return respondError(c, err)
	}
	rec, err := h.Baggage.CheckIn(ctx, booking.BookingID, booking.FlightID, req.Weight, req.Count)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, echo.Map{"baggage": rec, "tagNumber": rec.TagNumber}, "Baggage checked in successfully")
}

// List handles GET /api/flights/:flightId/baggage.
func (h *BaggageHandler) List(c echo.Context) error {
	recs, err := h.Baggage.Records(c.Request().Context(), c.Param("flightId"))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, echo.Map{"baggage": recs, "count": len(recs)}, "Baggage records retrieved successfully")
}

// Count handles GET /api/flights/:flightId/baggage/count.
func (h *BaggageHandler) Count(c echo.Context) error {
	n, err := h.Baggage.Count(c.Request().Context(), c.Param("flightId"))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, echo.Map{"count": n}, "Baggage count retrieved successfully")
}
