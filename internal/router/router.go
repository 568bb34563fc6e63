package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/event-ticketing/internal/handler"    // handlers that translate HTTP to service calls
	"github.com/iliyamo/event-ticketing/internal/middleware" // JWT authentication, roles, caching and rate limiting
)

// Deps bundles everything the route groups need.  Cache and RateLimit may be
// pass-through middlewares when Redis is unavailable.
type Deps struct {
	JWTSecret string
	Health    echo.HandlerFunc
	Inventory *handler.InventoryHandler
	Bookings  *handler.BookingHandler
	Checkin   *handler.CheckinHandler
	Cache     echo.MiddlewareFunc
	RateLimit echo.MiddlewareFunc
}

// RegisterRoutes registers every route group on the provided Echo instance.
func RegisterRoutes(e *echo.Echo, d Deps) {
	d = withDefaults(d)
	RegisterPublic(e, d)
	RegisterBookings(e, d)
	RegisterCheckin(e, d)
	RegisterAdmin(e, d)
}

// RegisterPublic registers routes that do not require authentication: the
// health check and ticket availability.  Availability is read often and
// changes with every booking, so it goes through the short-lived response
// cache.
func RegisterPublic(e *echo.Echo, d Deps) {
	// Load balancers and monitoring systems probe this endpoint.
	e.GET("/healthz", d.Health)
	e.GET("/v1/events/:event_id/ticket-types", d.Inventory.ListAvailability, d.Cache)
}

func withDefaults(d Deps) Deps {
	pass := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	if d.Cache == nil {
		d.Cache = pass
	}
	if d.RateLimit == nil {
		d.RateLimit = pass
	}
	if d.Health == nil {
		d.Health = handler.Health(nil)
	}
	return d
}

// auth returns the JWT middleware followed by a role check.
func auth(d Deps, roles ...string) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(roles...),
	}
}
