package handler // declare the package name; contains HTTP handlers

import (
    "net/http" // net/http provides status codes and response helpers

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// ServiceName and Version are reported by the API health endpoint.
const (
    ServiceName = "Airport Check-In Kiosk System"
    Version     = "1.0.0"
)

// Health is a simple health‑check endpoint used by load balancers and
// monitoring systems to verify that the service is running.  It returns
// a plain text "ok" message with an HTTP 200 status code.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok") // write "ok" with a 200 OK status; String writes plain text
}

// APIHealth answers GET /api/health with the service identity wrapped
// in the standard envelope.  Kiosk frontends poll it to show the
// connection banner.
func APIHealth(c echo.Context) error {
    return ok(c, echo.Map{
        "status":  "UP",
        "service": ServiceName,
        "version": Version,
    }, "Service is healthy")
}
