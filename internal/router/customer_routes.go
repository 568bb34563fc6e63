package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// RegisterBookings registers customer booking endpoints under /v1/bookings.
// All routes require a valid JWT with the CUSTOMER or ADMIN role; ownership
// of individual bookings is checked by the booking service.  Writes are
// rate limited per caller.
func RegisterBookings(e *echo.Echo, d Deps) {
	g := e.Group("/v1/bookings", auth(d, model.RoleCustomer, model.RoleAdmin)...)

	g.POST("", d.Bookings.Create, d.RateLimit)
	g.GET("", d.Bookings.ListMine)
	g.GET("/:id", d.Bookings.Get)
	g.GET("/:id/qr", d.Bookings.QRCode)
	g.POST("/:id/cancel", d.Bookings.Cancel, d.RateLimit)
}
