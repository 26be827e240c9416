package handler // handler holds the HTTP handlers of the kiosk API

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/iliyamo/airport-kiosk/internal/repository"
	"github.com/labstack/echo/v4"
)

// Envelope is the body of every JSON response of the /api tree.
type Envelope struct {
	Success   bool         `json:"success"`
	Data      any          `json:"data,omitempty"`
	Message   string       `json:"message,omitempty"`
	Timestamp string       `json:"timestamp"`
	Error     *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// now is replaced in tests.
var now = time.Now

func ok(c echo.Context, data any, message string) error {
	return c.JSON(http.StatusOK, Envelope{
		Success:   true,
		Data:      data,
		Message:   message,
		Timestamp: now().UTC().Format(time.RFC3339),
	})
}

func fail(c echo.Context, status int, code, message string) error {
	return c.JSON(status, Envelope{
		Success:   false,
		Message:   message,
		Timestamp: now().UTC().Format(time.RFC3339),
		Error:     &ErrorDetail{Code: code, Message: message},
	})
}

// respondError translates service errors into status codes.  Anything
// that is not a known sentinel is a store or transport failure.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrSeatNotFound):
		return fail(c, http.StatusNotFound, "SEAT_NOT_FOUND", err.Error())
	case errors.Is(err, repository.ErrFlightNotFound):
		return fail(c, http.StatusNotFound, "FLIGHT_NOT_FOUND", err.Error())
	case errors.Is(err, repository.ErrBookingNotFound):
		return fail(c, http.StatusNotFound, "BOOKING_NOT_FOUND", err.Error())
	case errors.Is(err, repository.ErrInvalidInput):
		return fail(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, repository.ErrCounterOutOfRange):
		slog.Warn("handler: state conflict", "path", c.Path(), "err", err)
		return fail(c, http.StatusConflict, "CONFLICT", err.Error())
	}
	slog.Error("handler: request failed", "method", c.Request().Method, "path", c.Path(), "err", err)
	return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}

// outcome is the data of operations whose precondition may fail without
// being an error.
func outcome(success bool, extra echo.Map) echo.Map {
	m := echo.Map{"success": success}
	for k, v := range extra {
		m[k] = v
	}
	return m
}
