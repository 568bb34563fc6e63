package handler // handler defines http handlers

import (
    "errors"   // errors.Is / errors.As classify service errors
    "fmt"      // fmt builds validation messages
    "net/http" // HTTP status codes
    "reflect"  // reflect reads json tags for validation messages
    "strings"  // strings splits json tags

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/event-ticketing/internal/model"
)

// Stable error codes returned in the "code" field of error bodies.  Clients
// branch on these, never on the human-readable message.
const (
    CodeInsufficientInventory = "INSUFFICIENT_INVENTORY"
    CodeTicketTypeNotFound    = "TICKET_TYPE_NOT_FOUND"
    CodeBookingNotFound       = "BOOKING_NOT_FOUND"
    CodeNotFound              = "NOT_FOUND"
    CodeForbidden             = "FORBIDDEN"
    CodeUnauthorized          = "UNAUTHORIZED"
    CodeInvalidTransition     = "INVALID_TRANSITION"
    CodeAlreadyCanceled       = "ALREADY_CANCELED"
    CodeAlreadyCheckedIn      = "ALREADY_CHECKED_IN"
    CodeNotBooked             = "NOT_BOOKED"
    CodeStateConflict         = "STATE_CONFLICT"
    CodeInvalidQuantity       = "INVALID_QUANTITY"
    CodeInvalidInput          = "INVALID_INPUT"
    CodeIntegrityViolation    = "INTEGRITY_VIOLATION"
    CodeLimitBelowBooked      = "LIMIT_BELOW_BOOKED"
    CodeInternal              = "INTERNAL"
)

// errorMapping is checked in order; the first errors.Is match wins, so
// specific errors come before the categories they wrap.
var errorMapping = []struct {
    err    error
    status int
    code   string
}{
    {model.ErrInsufficientInventory, http.StatusConflict, CodeInsufficientInventory},
    {model.ErrTicketTypeNotFound, http.StatusNotFound, CodeTicketTypeNotFound},
    {model.ErrBookingNotFound, http.StatusNotFound, CodeBookingNotFound},
    {model.ErrNotFound, http.StatusNotFound, CodeNotFound},
    {model.ErrForbidden, http.StatusForbidden, CodeForbidden},
    {model.ErrInvalidTransition, http.StatusConflict, CodeInvalidTransition},
    {model.ErrAlreadyCanceled, http.StatusConflict, CodeAlreadyCanceled},
    {model.ErrAlreadyCheckedIn, http.StatusConflict, CodeAlreadyCheckedIn},
    {model.ErrNotBooked, http.StatusConflict, CodeNotBooked},
    {model.ErrStateConflict, http.StatusConflict, CodeStateConflict},
    {model.ErrInvalidQuantity, http.StatusBadRequest, CodeInvalidQuantity},
    {model.ErrInvalidInput, http.StatusBadRequest, CodeInvalidInput},
    {model.ErrIntegrityViolation, http.StatusInternalServerError, CodeIntegrityViolation},
}

// classify returns the HTTP status and stable code for err.
func classify(err error) (int, string) {
    for _, m := range errorMapping {
        if errors.Is(err, m.err) {
            return m.status, m.code
        }
    }
    var verrs validator.ValidationErrors
    if errors.As(err, &verrs) {
        return http.StatusBadRequest, CodeInvalidInput
    }
    return http.StatusInternalServerError, CodeInternal
}

// respondError writes the JSON error body for err.  Internal failures are
// logged with the request id and reported without their details.
func respondError(c echo.Context, log logrus.FieldLogger, err error) error {
    status, code := classify(err)
    msg := err.Error()
    var verrs validator.ValidationErrors
    if errors.As(err, &verrs) {
        msg = validationMessage(verrs)
    }
    if status >= http.StatusInternalServerError {
        log.WithError(err).WithFields(logrus.Fields{
            "code":       code,
            "path":       c.Path(),
            "request_id": c.Response().Header().Get(echo.HeaderXRequestID),
        }).Error("request failed")
        msg = "internal error"
        if code == CodeIntegrityViolation {
            msg = model.ErrIntegrityViolation.Error()
        }
    }
    return c.JSON(status, echo.Map{"error": msg, "code": code})
}

// badRequest writes a 400 with the generic input code.
func badRequest(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": CodeInvalidInput})
}

func validationMessage(verrs validator.ValidationErrors) string {
    parts := make([]string, 0, len(verrs))
    for _, fe := range verrs {
        switch fe.Tag() {
        case "required":
            parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
        case "min", "gte":
            parts = append(parts, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
        case "max", "lte":
            parts = append(parts, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
        default:
            parts = append(parts, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
        }
    }
    return strings.Join(parts, "; ")
}

// jsonFieldName makes validation errors use the JSON name of a field.
func jsonFieldName(f reflect.StructField) string {
    name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
    if name == "-" || name == "" {
        return f.Name
    }
    return name
}
