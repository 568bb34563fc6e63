package handler

import (
    "context"
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/service"
)

// Ledger lists and defines ticket types.
type Ledger interface {
    List(ctx context.Context, eventID string) ([]model.TicketType, error)
    Define(ctx context.Context, in service.DefineTicketTypeInput) (model.TicketType, error)
}

// InventoryHandler exposes ticket type availability and the admin
// definition endpoint.
type InventoryHandler struct {
    ledger Ledger
    log    logrus.FieldLogger
}

// NewInventoryHandler constructs an InventoryHandler and panics if ledger is nil.
func NewInventoryHandler(ledger Ledger, log logrus.FieldLogger) *InventoryHandler {
    if ledger == nil {
        panic("nil ledger passed to NewInventoryHandler")
    }
    if log == nil {
        log = logrus.StandardLogger()
    }
    return &InventoryHandler{ledger: ledger, log: log}
}

// ListAvailability handles GET /v1/events/:event_id/ticket-types.  It is
// public and served through the response cache, so figures may be a few
// seconds old.
func (h *InventoryHandler) ListAvailability(c echo.Context) error {
    list, err := h.ledger.List(c.Request().Context(), c.Param("event_id"))
    if err != nil {
        return respondError(c, h.log, err)
    }
    items := make([]model.Availability, 0, len(list))
    for _, t := range list {
        items = append(items, t.View())
    }
    return c.JSON(http.StatusOK, echo.Map{"event_id": c.Param("event_id"), "items": items})
}

type defineTicketTypeRequest struct {
    Limit      *int   `json:"limit" validate:"required,min=0"`
    PriceCents *int64 `json:"price_cents" validate:"required,min=0"`
}

// Define handles PUT /v1/admin/events/:event_id/ticket-types/:name.  It
// creates the ticket type or updates its limit and price.  A limit below
// the units already booked is refused with 409 LIMIT_BELOW_BOOKED; the
// stored ticket type is left unchanged.
func (h *InventoryHandler) Define(c echo.Context) error {
    var body defineTicketTypeRequest
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    if err := c.Validate(&body); err != nil {
        return respondError(c, h.log, err)
    }
    t, err := h.ledger.Define(c.Request().Context(), service.DefineTicketTypeInput{
        EventID:    c.Param("event_id"),
        Name:       c.Param("name"),
        Limit:      *body.Limit,
        PriceCents: *body.PriceCents,
    })
    if errors.Is(err, model.ErrIntegrityViolation) {
        return c.JSON(http.StatusConflict, echo.Map{"error": "limit is below the units already booked", "code": CodeLimitBelowBooked})
    }
    if err != nil {
        return respondError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, t.View())
}
