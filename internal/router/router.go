// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/skyreserve/inventory-reservation/internal/handler"
)

// RegisterRoutes wires the health check and the reservation endpoints on
// the provided Echo instance.  The three engine operations live under /v1;
// rateLimit, when non-nil, is applied to the mutating routes only so that
// availability reads stay cheap.
func RegisterRoutes(e *echo.Echo, h *handler.ReservationHandler, rateLimit echo.MiddlewareFunc) {
	// Used by load balancers and monitoring to verify the service is up.
	e.GET("/healthz", handler.Health)

	v1 := e.Group("/v1")

	var mw []echo.MiddlewareFunc
	if rateLimit != nil {
		mw = append(mw, rateLimit)
	}

	// The booking orchestrator's three synchronous operations.
	v1.POST("/reservations", h.Reserve, mw...)
	v1.POST("/reservations/:id/confirm", h.Confirm, mw...)
	v1.DELETE("/reservations/:id", h.Cancel, mw...)

	// Non-authoritative capacity snapshot for search/display callers.
	v1.GET("/inventory/:id/availability", h.Availability)
}
