package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/airport-kiosk/internal/handler" // import the handlers that implement the kiosk API
)

// Handlers bundles the handler sets mounted under /api.
type Handlers struct {
	Flights  *handler.FlightHandler
	Bookings *handler.BookingHandler
	Seats    *handler.SeatHandler
	Baggage  *handler.BaggageHandler
	Events   *handler.EventsHandler
}

// Middleware holds the optional Redis-backed middleware.  A nil entry is
// skipped.
type Middleware struct {
	RateLimit echo.MiddlewareFunc // applied to every /api route
	Cache     echo.MiddlewareFunc // applied to the flight read endpoints only
}

// RegisterRoutes registers the liveness probe and the kiosk API on the
// provided Echo instance.
func RegisterRoutes(e *echo.Echo, h Handlers, mw Middleware) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)

	api := e.Group("/api")
	if mw.RateLimit != nil {
		api.Use(mw.RateLimit)
	}
	cached := []echo.MiddlewareFunc{}
	if mw.Cache != nil {
		cached = append(cached, mw.Cache)
	}

	api.GET("/health", handler.APIHealth)

	// ---- Flights ----
	api.GET("/flights", h.Flights.List, cached...)
	api.GET("/flights/:flightId", h.Flights.Get, cached...)

	// ---- Bookings ----
	api.POST("/bookings/search", h.Bookings.Search)
	api.GET("/bookings/:bookingId", h.Bookings.Get)
	api.POST("/bookings/:bookingId/boarding-pass", h.Bookings.BoardingPass)
	api.GET("/bookings/:bookingId/boarding-pass/pdf", h.Bookings.BoardingPassPDF)

	// ---- Seats ----
	// Seat reads bypass the cache: kiosks must see every committed lock.
	seats := api.Group("/flights/:flightId/seats")
	seats.GET("", h.Seats.Map)
	seats.GET("/assignments", h.Seats.Assignments)
	seats.POST("/:seatId/lock", h.Seats.Lock)
	seats.POST("/:seatId/confirm", h.Seats.Confirm)
	seats.DELETE("/:seatId/unlock", h.Seats.Unlock)

	// ---- Baggage ----
	api.POST("/bookings/:bookingId/baggage", h.Baggage.CheckIn)
	api.GET("/flights/:flightId/baggage", h.Baggage.List)
	api.GET("/flights/:flightId/baggage/count", h.Baggage.Count)

	// ---- Real-time ----
	api.GET("/flights/:flightId/events", h.Events.Stream)
}
