package middleware

// identity.go defines helpers shared across middleware files and handlers
// for reading the authenticated caller from the Echo context.  JWTAuth
// stores the caller; these helpers only read it back.

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticketing/internal/model"
)

// PrincipalFrom returns the caller stored by JWTAuth.  ok is false on
// routes that are not behind JWTAuth.
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
    p, ok := c.Get(ContextPrincipal).(model.Principal)
    if !ok || p.ID == "" {
        return model.Principal{}, false
    }
    return p, true
}

// userID extracts a user identifier from the context.  It returns "guest"
// when no user is authenticated.
func userID(c echo.Context) string {
    if p, ok := PrincipalFrom(c); ok {
        return p.ID
    }
    if v, ok := c.Get(ContextUserID).(string); ok && v != "" {
        return v
    }
    return "guest"
}
