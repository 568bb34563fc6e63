package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// RegisterAdmin registers ADMIN-scoped endpoints under /v1/admin.
func RegisterAdmin(e *echo.Echo, d Deps) {
	g := e.Group("/v1/admin", auth(d, model.RoleAdmin)...)

	// ---- Ticket types ----
	g.PUT("/events/:event_id/ticket-types/:name", d.Inventory.Define)

	// ---- Bookings ----
	g.GET("/bookings", d.Bookings.ListAll)
}
