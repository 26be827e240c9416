package handler

import (
	"fmt"
	"net/http"

	"github.com/iliyamo/airport-kiosk/internal/service"
	"github.com/labstack/echo/v4"
)

// BookingHandler serves booking lookup and boarding pass issuance.
type BookingHandler struct {
	Bookings *service.BookingService
}

// NewBookingHandler panics when bookings is nil.
func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	if bookings == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: bookings}
}

type bookingSearchRequest struct {
	BookingReference string `json:"bookingReference"`
	PassportNumber   string `json:"passportNumber"`
}

// Search handles POST /api/bookings/search.  Either field may be given;
// the booking reference wins when both are.
func (h *BookingHandler) Search(c echo.Context) error {
	var req bookingSearchRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_INPUT", "invalid request body")
	}
	hit, err := h.Bookings.Search(c.Request().Context(), req.BookingReference, req.PassportNumber)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, hit, "Booking found successfully")
}

// Get handles GET /api/bookings/:bookingId and returns the booking with
// its flight.
func (h *BookingHandler) Get(c echo.Context) error {
	hit, err := h.Bookings.GetWithFlight(c.Request().Context(), c.Param("bookingId"))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, hit, "Booking retrieved successfully")
}

// BoardingPass handles POST /api/bookings/:bookingId/boarding-pass.
func (h *BookingHandler) BoardingPass(c echo.Context) error {
	bp, err := h.Bookings.BoardingPass(c.Request().Context(), c.Param("bookingId"))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, echo.Map{
		"boardingPass": bp,
		"pdfUrl":       fmt.Sprintf("/api/bookings/%s/boarding-pass/pdf", bp.BookingID),
	}, "Boarding pass generated successfully")
}

// BoardingPassPDF handles GET /api/bookings/:bookingId/boarding-pass/pdf.
// PDF rendering is not available; the endpoint exists so that the link
// in the pass resolves.
func (h *BookingHandler) BoardingPassPDF(c echo.Context) error {
	return c.String(http.StatusOK, "PDF generation not yet implemented")
}
