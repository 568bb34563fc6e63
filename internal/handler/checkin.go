package handler

import (
    "context"
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/event-ticketing/internal/middleware"
    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/service"
)

// CheckinService verifies and admits admission codes.
type CheckinService interface {
    Verify(ctx context.Context, code, eventID string) (model.Booking, error)
    CheckIn(ctx context.Context, in service.CheckInInput) (model.Booking, error)
}

// CheckinHandler serves the door-staff endpoints.
type CheckinHandler struct {
    svc CheckinService
    log logrus.FieldLogger
}

// NewCheckinHandler constructs a CheckinHandler and panics if svc is nil.
func NewCheckinHandler(svc CheckinService, log logrus.FieldLogger) *CheckinHandler {
    if svc == nil {
        panic("nil checkin service passed to NewCheckinHandler")
    }
    if log == nil {
        log = logrus.StandardLogger()
    }
    return &CheckinHandler{svc: svc, log: log}
}

// Verify handles GET /v1/checkin/:code[?event_id=].  It reports the booking
// behind a code without changing it, so staff can see whether it is still
// valid before admitting.
func (h *CheckinHandler) Verify(c echo.Context) error {
    if _, err := doorStaff(c); err != nil {
        return h.refuse(c, err)
    }
    b, err := h.svc.Verify(c.Request().Context(), c.Param("code"), c.QueryParam("event_id"))
    if err != nil {
        return respondError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "booking":  b,
        "admitted": b.State == model.BookingCheckedIn,
        "valid":    b.State == model.BookingBooked,
    })
}

// CheckIn handles POST /v1/checkin/:code[?event_id=].  A code is admitted
// exactly once; repeats get 409 ALREADY_CHECKED_IN and canceled bookings
// 409 NOT_BOOKED.
func (h *CheckinHandler) CheckIn(c echo.Context) error {
    p, err := doorStaff(c)
    if err != nil {
        return h.refuse(c, err)
    }
    b, err := h.svc.CheckIn(c.Request().Context(), service.CheckInInput{
        Code:    c.Param("code"),
        EventID: c.QueryParam("event_id"),
        ActorID: p.ID,
    })
    if err != nil {
        return respondError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, b)
}

var errNoPrincipal = errors.New("unauthorized")

// doorStaff returns the caller when their role may verify and admit codes.
func doorStaff(c echo.Context) (model.Principal, error) {
    p, ok := middleware.PrincipalFrom(c)
    if !ok {
        return model.Principal{}, errNoPrincipal
    }
    if !p.CanCheckIn() {
        return model.Principal{}, model.ErrForbidden
    }
    return p, nil
}

func (h *CheckinHandler) refuse(c echo.Context, err error) error {
    if errors.Is(err, errNoPrincipal) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": CodeUnauthorized})
    }
    return respondError(c, h.log, err)
}
