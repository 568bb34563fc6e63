package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "fmt"      // fmt renders numeric subject claims as strings
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
    "github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/event-ticketing/internal/model" // Principal is stored for handlers
)

// Context keys populated by JWTAuth.
const (
    ContextUserID    = "user_id"
    ContextRole      = "role"
    ContextEmail     = "email"
    ContextPrincipal = "principal"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the token's subject, role and email claims into the request
// context.  The provided secret must match the one used by the identity
// provider when issuing tokens.  Handlers read the caller through
// PrincipalFrom, or the raw values via `c.Get("user_id")` and `c.Get("role")`.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // Read the Authorization header.  A valid header should start
            // with "Bearer " followed by the JWT.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token", "code": "UNAUTHORIZED"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            // Parse the token and only accept HMAC signatures; exp is
            // validated by the library.
            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
                    return nil, echo.ErrUnauthorized
                }
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token", "code": "UNAUTHORIZED"})
            }

            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims", "code": "UNAUTHORIZED"})
            }

            p := model.Principal{
                ID:    subject(claims),
                Role:  stringClaim(claims, "role"),
                Email: stringClaim(claims, "email"),
            }
            // A token without a subject cannot own bookings.
            if p.ID == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token has no subject", "code": "UNAUTHORIZED"})
            }

            c.Set(ContextUserID, p.ID)
            c.Set(ContextRole, p.Role)
            c.Set(ContextEmail, p.Email)
            c.Set(ContextPrincipal, p)
            return next(c)
        }
    }
}

// subject returns the sub claim as a string.  Some issuers encode numeric
// user ids, which arrive as float64 after JSON decoding.
func subject(claims jwt.MapClaims) string {
    switch v := claims["sub"].(type) {
    case string:
        return v
    case float64:
        return fmt.Sprintf("%.0f", v)
    }
    return ""
}

func stringClaim(claims jwt.MapClaims, key string) string {
    if v, ok := claims[key].(string); ok {
        return v
    }
    return ""
}
