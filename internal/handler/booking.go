package handler

import (
    "context"  // context for service calls
    "net/http" // HTTP status codes
    "strconv"  // parsing paging query parameters

    "github.com/labstack/echo/v4" // Echo web framework
    "github.com/sirupsen/logrus"  // structured logging of failures

    "github.com/iliyamo/event-ticketing/internal/middleware" // caller identity
    "github.com/iliyamo/event-ticketing/internal/model"      // domain types
    "github.com/iliyamo/event-ticketing/internal/service"    // service inputs
    "github.com/iliyamo/event-ticketing/internal/utils"      // QR rendering
)

// BookingService is the part of the booking lifecycle the HTTP layer uses.
type BookingService interface {
    Create(ctx context.Context, in service.CreateBookingInput) (model.Booking, error)
    Cancel(ctx context.Context, in service.CancelBookingInput) (model.Booking, error)
    Get(ctx context.Context, id string, requester model.Principal) (model.Booking, error)
    ListMine(ctx context.Context, ownerID string) ([]model.Booking, error)
    ListAll(ctx context.Context, f model.BookingFilter) ([]model.Booking, error)
}

// BookingHandler serves the customer booking endpoints and the
// administrative listing.  All methods assume that JWT authentication and
// role validation have already been performed by middleware.
type BookingHandler struct {
    svc BookingService
    log logrus.FieldLogger
}

// NewBookingHandler constructs a BookingHandler and panics if svc is nil.
func NewBookingHandler(svc BookingService, log logrus.FieldLogger) *BookingHandler {
    if svc == nil {
        panic("nil booking service passed to NewBookingHandler")
    }
    if log == nil {
        log = logrus.StandardLogger()
    }
    return &BookingHandler{svc: svc, log: log}
}

// createBookingRequest is the body of POST /v1/bookings.
type createBookingRequest struct {
    EventID    string `json:"event_id" validate:"required,max=64"`
    TicketType string `json:"ticket_type" validate:"required,max=64"`
    Quantity   int    `json:"quantity" validate:"required,min=1"`
}

// Create handles POST /v1/bookings.  It reserves the requested quantity
// and returns 201 with the booking, including its admission code.  A sold
// out ticket type yields 409 INSUFFICIENT_INVENTORY.
func (h *BookingHandler) Create(c echo.Context) error {
    p, ok := middleware.PrincipalFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": CodeUnauthorized})
    }
    var body createBookingRequest
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    // a zero or negative quantity is reported with its own code
    if body.Quantity < 1 {
        return respondError(c, h.log, model.ErrInvalidQuantity)
    }
    if err := c.Validate(&body); err != nil {
        return respondError(c, h.log, err)
    }

    b, err := h.svc.Create(c.Request().Context(), service.CreateBookingInput{
        EventID:    body.EventID,
        TicketType: body.TicketType,
        Quantity:   body.Quantity,
        OwnerID:    p.ID,
        OwnerEmail: p.Email,
    })
    if err != nil {
        return respondError(c, h.log, err)
    }
    return c.JSON(http.StatusCreated, b)
}

// ListMine handles GET /v1/bookings and returns the caller's bookings,
// newest first.
func (h *BookingHandler) ListMine(c echo.Context) error {
    p, ok := middleware.PrincipalFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": CodeUnauthorized})
    }
    list, err := h.svc.ListMine(c.Request().Context(), p.ID)
    if err != nil {
        return respondError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": nonNil(list)})
}

// Get handles GET /v1/bookings/:id.  Only the owner or an administrator may
// read a booking.
func (h *BookingHandler) Get(c echo.Context) error {
    p, ok := middleware.PrincipalFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": CodeUnauthorized})
    }
    b, err := h.svc.Get(c.Request().Context(), c.Param("id"), p)
    if err != nil {
        return respondError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, b)
}

// QRCode handles GET /v1/bookings/:id/qr and returns the admission code as
// a PNG image.  Canceled bookings have no valid ticket and yield 409.
func (h *BookingHandler) QRCode(c echo.Context) error {
    p, ok := middleware.PrincipalFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": CodeUnauthorized})
    }
    b, err := h.svc.Get(c.Request().Context(), c.Param("id"), p)
    if err != nil {
        return respondError(c, h.log, err)
    }
    if b.State == model.BookingCanceled {
        return respondError(c, h.log, model.ErrNotBooked)
    }
    png, err := utils.QRCodePNG(b.Code)
    if err != nil {
        return respondError(c, h.log, err)
    }
    c.Response().Header().Set("Cache-Control", "private, max-age=300")
    return c.Blob(http.StatusOK, "image/png", png)
}

// Cancel handles POST /v1/bookings/:id/cancel.  The owner or an
// administrator may cancel a BOOKED booking; the units return to the
// ticket type.
func (h *BookingHandler) Cancel(c echo.Context) error {
    p, ok := middleware.PrincipalFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": CodeUnauthorized})
    }
    b, err := h.svc.Cancel(c.Request().Context(), service.CancelBookingInput{
        BookingID: c.Param("id"),
        Requester: p,
    })
    if err != nil {
        return respondError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, b)
}

// ListAll handles GET /v1/admin/bookings.  Optional query parameters:
// event_id, state (BOOKED|CANCELED|CHECKED_IN), limit and offset.
func (h *BookingHandler) ListAll(c echo.Context) error {
    f := model.BookingFilter{
        EventID: c.QueryParam("event_id"),
        State:   model.BookingState(c.QueryParam("state")),
    }
    var err error
    if f.Limit, err = queryInt(c, "limit"); err != nil {
        return badRequest(c, "invalid limit")
    }
    if f.Offset, err = queryInt(c, "offset"); err != nil {
        return badRequest(c, "invalid offset")
    }
    list, err := h.svc.ListAll(c.Request().Context(), f)
    if err != nil {
        return respondError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": nonNil(list)})
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(c echo.Context, name string) (int, error) {
    s := c.QueryParam(name)
    if s == "" {
        return 0, nil
    }
    n, err := strconv.Atoi(s)
    if err != nil || n < 0 {
        return 0, model.ErrInvalidInput
    }
    return n, nil
}

// nonNil makes empty lists encode as [] rather than null.
func nonNil[T any](list []T) []T {
    if list == nil {
        return []T{}
    }
    return list
}
