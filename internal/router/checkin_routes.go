package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// RegisterCheckin registers door-staff endpoints under /v1/checkin.  Both
// routes require the STAFF or ADMIN role and accept an optional ?event_id=
// to reject codes from other events.
func RegisterCheckin(e *echo.Echo, d Deps) {
	g := e.Group("/v1/checkin", append(auth(d, model.RoleStaff, model.RoleAdmin), d.RateLimit)...)

	g.GET("/:code", d.Checkin.Verify)
	g.POST("/:code", d.Checkin.CheckIn)
}
