package handler

import (
	"net/http"

	"github.com/iliyamo/airport-kiosk/internal/service"
	"github.com/labstack/echo/v4"
)

// SeatHandler exposes the seat reservation engine.  Holder tokens are
// the kiosk session ids chosen by the client; no authentication is
// performed.
type SeatHandler struct {
	Seats    *service.SeatService
	Bookings *service.BookingService
}

// NewSeatHandler panics when a dependency is nil.
func NewSeatHandler(seats *service.SeatService, bookings *service.BookingService) *SeatHandler {
	if seats == nil || bookings == nil {
		panic("nil service passed to NewSeatHandler")
	}
	return &SeatHandler{Seats: seats, Bookings: bookings}
}

type seatLockRequest struct {
	SessionID string `json:"sessionId"`
}

type seatConfirmRequest struct {
	BookingID string `json:"bookingId"`
	SessionID string `json:"sessionId"`
}

// Map handles GET /api/flights/:flightId/seats.
func (h *SeatHandler) Map(c echo.Context) error {
	m, err := h.Seats.SeatMap(c.Request().Context(), c.Param("flightId"))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, m, "Seat map retrieved successfully")
}

// Assignments handles GET /api/flights/:flightId/seats/assignments.
func (h *SeatHandler) Assignments(c echo.Context) error {
	list, err := h.Seats.Assignments(c.Request().Context(), c.Param("flightId"))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, echo.Map{"assignments": list, "count": len(list)}, "Seat assignments retrieved successfully")
}

// Lock handles POST /api/flights/:flightId/seats/:seatId/lock.  A seat
// that is not available is a normal outcome reported as success=false.
func (h *SeatHandler) Lock(c echo.Context) error {
	var req seatLockRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_INPUT", "invalid request body")
	}
	locked, err := h.Seats.Lock(c.Request().Context(), c.Param("flightId"), c.Param("seatId"), req.SessionID)
	if err != nil {
		return respondError(c, err)
	}
	if !locked {
		return ok(c, outcome(false, echo.Map{"message": "Seat is not available"}), "Seat unavailable")
	}
	return ok(c, outcome(true, echo.Map{
		"message":          "Seat locked successfully",
		"expiresInSeconds": int(h.Seats.LockTTL().Seconds()),
	}), "Seat locked")
}

// Confirm handles POST /api/flights/:flightId/seats/:seatId/confirm.
// The booking reference is resolved case-insensitively first so that
// the seat carries the canonical id.
func (h *SeatHandler) Confirm(c echo.Context) error {
	var req seatConfirmRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_INPUT", "invalid request body")
	}
	ctx := c.Request().Context()
	flightID, seatID := c.Param("flightId"), c.Param("seatId")
	confirmed, err := h.Seats.Confirm(ctx, flightID, seatID, h.Bookings.CanonicalID(ctx, req.BookingID), req.SessionID)
	if err != nil {
		return respondError(c, err)
	}
	if !confirmed {
		return ok(c, outcome(false, nil), "Failed to confirm seat")
	}
	seat, err := h.Seats.Seat(ctx, flightID, seatID)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, outcome(true, echo.Map{"seat": seat}), "Seat confirmed successfully")
}

// Unlock handles DELETE /api/flights/:flightId/seats/:seatId/unlock?sessionId=.
func (h *SeatHandler) Unlock(c echo.Context) error {
	released, err := h.Seats.Unlock(c.Request().Context(), c.Param("flightId"), c.Param("seatId"), c.QueryParam("sessionId"))
	if err != nil {
		return respondError(c, err)
	}
	if !released {
		return ok(c, outcome(false, nil), "Failed to unlock seat")
	}
	return ok(c, outcome(true, nil), "Seat unlocked successfully")
}
