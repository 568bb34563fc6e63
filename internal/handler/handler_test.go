package handler

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
    "github.com/sirupsen/logrus/hooks/test"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/event-ticketing/internal/middleware"
    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/service"
)

type fakeBookings struct {
    created  service.CreateBookingInput
    canceled service.CancelBookingInput
    filter   model.BookingFilter
    booking  model.Booking
    list     []model.Booking
    err      error
}

func (f *fakeBookings) Create(_ context.Context, in service.CreateBookingInput) (model.Booking, error) {
    f.created = in
    return f.booking, f.err
}

func (f *fakeBookings) Cancel(_ context.Context, in service.CancelBookingInput) (model.Booking, error) {
    f.canceled = in
    return f.booking, f.err
}

func (f *fakeBookings) Get(_ context.Context, id string, _ model.Principal) (model.Booking, error) {
    if f.err != nil {
        return model.Booking{}, f.err
    }
    return f.booking, nil
}

func (f *fakeBookings) ListMine(_ context.Context, _ string) ([]model.Booking, error) {
    return f.list, f.err
}

func (f *fakeBookings) ListAll(_ context.Context, filter model.BookingFilter) ([]model.Booking, error) {
    f.filter = filter
    return f.list, f.err
}

type fakeCheckin struct {
    input   service.CheckInInput
    booking model.Booking
    err     error
}

func (f *fakeCheckin) Verify(_ context.Context, code, eventID string) (model.Booking, error) {
    f.input = service.CheckInInput{Code: code, EventID: eventID}
    return f.booking, f.err
}

func (f *fakeCheckin) CheckIn(_ context.Context, in service.CheckInInput) (model.Booking, error) {
    f.input = in
    return f.booking, f.err
}

type fakeLedger struct {
    defined service.DefineTicketTypeInput
    list    []model.TicketType
    err     error
}

func (f *fakeLedger) List(_ context.Context, _ string) ([]model.TicketType, error) {
    return f.list, f.err
}

func (f *fakeLedger) Define(_ context.Context, in service.DefineTicketTypeInput) (model.TicketType, error) {
    f.defined = in
    if f.err != nil {
        return model.TicketType{}, f.err
    }
    return model.TicketType{EventID: in.EventID, Name: in.Name, Limit: in.Limit, PriceCents: in.PriceCents}, nil
}

func quiet() logrus.FieldLogger {
    l, _ := test.NewNullLogger()
    return l
}

// as injects a principal the way JWTAuth would.
func as(p model.Principal) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            c.Set(middleware.ContextPrincipal, p)
            return next(c)
        }
    }
}

func newEcho() *echo.Echo {
    e := echo.New()
    e.Validator = NewRequestValidator()
    return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(method, target, strings.NewReader(body))
    if body != "" {
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
    t.Helper()
    var body struct {
        Error string `json:"error"`
        Code  string `json:"code"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
    return body.Error, body.Code
}

var customer = model.Principal{ID: "user-1", Role: model.RoleCustomer, Email: "one@example.com"}

func TestCreateBooking(t *testing.T) {
    svc := &fakeBookings{booking: model.Booking{ID: "b-1", Code: "ABCDEFGH12", State: model.BookingBooked}}
    e := newEcho()
    e.POST("/v1/bookings", NewBookingHandler(svc, quiet()).Create, as(customer))

    rec := do(e, http.MethodPost, "/v1/bookings", `{"event_id":"evt-1","ticket_type":"VIP","quantity":2}`)
    require.Equal(t, http.StatusCreated, rec.Code)
    assert.Contains(t, rec.Body.String(), `"code":"ABCDEFGH12"`)
    assert.Equal(t, service.CreateBookingInput{
        EventID: "evt-1", TicketType: "VIP", Quantity: 2, OwnerID: "user-1", OwnerEmail: "one@example.com",
    }, svc.created)
}

func TestCreateBookingValidation(t *testing.T) {
    e := newEcho()
    e.POST("/v1/bookings", NewBookingHandler(&fakeBookings{}, quiet()).Create, as(customer))

    rec := do(e, http.MethodPost, "/v1/bookings", `{"event_id":"evt-1","ticket_type":"VIP","quantity":0}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    _, code := errorBody(t, rec)
    assert.Equal(t, CodeInvalidQuantity, code)

    rec = do(e, http.MethodPost, "/v1/bookings", `{"ticket_type":"VIP","quantity":1}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    msg, code := errorBody(t, rec)
    assert.Equal(t, CodeInvalidInput, code)
    assert.Contains(t, msg, "event_id is required")

    rec = do(e, http.MethodPost, "/v1/bookings", `{"quantity":`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBookingRequiresPrincipal(t *testing.T) {
    e := newEcho()
    e.POST("/v1/bookings", NewBookingHandler(&fakeBookings{}, quiet()).Create)
    rec := do(e, http.MethodPost, "/v1/bookings", `{"event_id":"e","ticket_type":"t","quantity":1}`)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestErrorMapping(t *testing.T) {
    cases := []struct {
        err    error
        status int
        code   string
    }{
        {model.ErrInsufficientInventory, http.StatusConflict, CodeInsufficientInventory},
        {model.ErrTicketTypeNotFound, http.StatusNotFound, CodeTicketTypeNotFound},
        {fmt.Errorf("lookup: %w", model.ErrBookingNotFound), http.StatusNotFound, CodeBookingNotFound},
        {model.ErrForbidden, http.StatusForbidden, CodeForbidden},
        {model.ErrInvalidTransition, http.StatusConflict, CodeInvalidTransition},
        {model.ErrAlreadyCanceled, http.StatusConflict, CodeAlreadyCanceled},
        {model.ErrAlreadyCheckedIn, http.StatusConflict, CodeAlreadyCheckedIn},
        {model.ErrNotBooked, http.StatusConflict, CodeNotBooked},
        {fmt.Errorf("cancel booking b-1: %w", model.ErrConcurrentUpdate), http.StatusConflict, CodeStateConflict},
        {model.ErrInvalidLimit, http.StatusBadRequest, CodeInvalidInput},
        {model.ErrIntegrityViolation, http.StatusInternalServerError, CodeIntegrityViolation},
        {errors.New("connection refused"), http.StatusInternalServerError, CodeInternal},
    }
    for _, tc := range cases {
        t.Run(tc.code, func(t *testing.T) {
            e := newEcho()
            e.POST("/v1/bookings/:id/cancel", NewBookingHandler(&fakeBookings{err: tc.err}, quiet()).Cancel, as(customer))
            rec := do(e, http.MethodPost, "/v1/bookings/b-1/cancel", "")
            assert.Equal(t, tc.status, rec.Code)
            msg, code := errorBody(t, rec)
            assert.Equal(t, tc.code, code)
            if tc.code == CodeInternal {
                assert.Equal(t, "internal error", msg, "internal details are not leaked")
            }
        })
    }
}

func TestCancelPassesRequester(t *testing.T) {
    svc := &fakeBookings{booking: model.Booking{ID: "b-9", State: model.BookingCanceled}}
    e := newEcho()
    e.POST("/v1/bookings/:id/cancel", NewBookingHandler(svc, quiet()).Cancel, as(customer))

    rec := do(e, http.MethodPost, "/v1/bookings/b-9/cancel", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "b-9", svc.canceled.BookingID)
    assert.Equal(t, customer, svc.canceled.Requester)
}

func TestQRCode(t *testing.T) {
    svc := &fakeBookings{booking: model.Booking{ID: "b-1", Code: "QRCODE1234", State: model.BookingBooked}}
    e := newEcho()
    e.GET("/v1/bookings/:id/qr", NewBookingHandler(svc, quiet()).QRCode, as(customer))

    rec := do(e, http.MethodGet, "/v1/bookings/b-1/qr", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
    assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

    svc.booking.State = model.BookingCanceled
    rec = do(e, http.MethodGet, "/v1/bookings/b-1/qr", "")
    assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListMineEncodesEmptyList(t *testing.T) {
    e := newEcho()
    e.GET("/v1/bookings", NewBookingHandler(&fakeBookings{}, quiet()).ListMine, as(customer))
    rec := do(e, http.MethodGet, "/v1/bookings", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

func TestListAllFilters(t *testing.T) {
    svc := &fakeBookings{list: []model.Booking{{ID: "b-1"}}}
    e := newEcho()
    e.GET("/v1/admin/bookings", NewBookingHandler(svc, quiet()).ListAll)

    rec := do(e, http.MethodGet, "/v1/admin/bookings?event_id=evt-1&state=BOOKED&limit=10&offset=20", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, model.BookingFilter{EventID: "evt-1", State: model.BookingBooked, Limit: 10, Offset: 20}, svc.filter)

    rec = do(e, http.MethodGet, "/v1/admin/bookings?limit=-1", "")
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckinEndpoints(t *testing.T) {
    svc := &fakeCheckin{booking: model.Booking{ID: "b-1", Code: "ABCDEFGH12", State: model.BookingBooked}}
    h := NewCheckinHandler(svc, quiet())
    staff := model.Principal{ID: "staff-1", Role: model.RoleStaff}
    e := newEcho()
    e.GET("/v1/checkin/:code", h.Verify, as(staff))
    e.POST("/v1/checkin/:code", h.CheckIn, as(staff))

    rec := do(e, http.MethodGet, "/v1/checkin/abcdefgh12?event_id=evt-1", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"valid":true`)
    assert.Equal(t, "evt-1", svc.input.EventID)

    rec = do(e, http.MethodPost, "/v1/checkin/abcdefgh12", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, service.CheckInInput{Code: "abcdefgh12", ActorID: "staff-1"}, svc.input)

    svc.err = model.ErrAlreadyCheckedIn
    rec = do(e, http.MethodPost, "/v1/checkin/abcdefgh12", "")
    assert.Equal(t, http.StatusConflict, rec.Code)
    _, code := errorBody(t, rec)
    assert.Equal(t, CodeAlreadyCheckedIn, code)
}

func TestCheckinRefusesCustomers(t *testing.T) {
    svc := &fakeCheckin{booking: model.Booking{ID: "b-1", Code: "ABCDEFGH12", State: model.BookingBooked}}
    h := NewCheckinHandler(svc, quiet())
    e := newEcho()
    e.GET("/v1/checkin/:code", h.Verify, as(customer))
    e.POST("/v1/checkin/:code", h.CheckIn, as(customer))
    e.POST("/anon/:code", h.CheckIn)

    for _, method := range []string{http.MethodGet, http.MethodPost} {
        rec := do(e, method, "/v1/checkin/abcdefgh12", "")
        assert.Equal(t, http.StatusForbidden, rec.Code, method)
        _, code := errorBody(t, rec)
        assert.Equal(t, CodeForbidden, code, method)
    }
    assert.Empty(t, svc.input.Code, "service must not be reached")

    rec := do(e, http.MethodPost, "/anon/abcdefgh12", "")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    admin := model.Principal{ID: "admin-1", Role: model.RoleAdmin}
    e.POST("/admin/:code", h.CheckIn, as(admin))
    rec = do(e, http.MethodPost, "/admin/abcdefgh12", "")
    assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListAvailability(t *testing.T) {
    ledger := &fakeLedger{list: []model.TicketType{{EventID: "evt-1", Name: "VIP", Limit: 10, Booked: 4, PriceCents: 5000, UpdatedAt: time.Now()}}}
    e := newEcho()
    e.GET("/v1/events/:event_id/ticket-types", NewInventoryHandler(ledger, quiet()).ListAvailability)

    rec := do(e, http.MethodGet, "/v1/events/evt-1/ticket-types", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"event_id":"evt-1","items":[{"event_id":"evt-1","name":"VIP","limit":10,"booked":4,"available":6,"price_cents":5000}]}`, rec.Body.String())
}

func TestDefineTicketType(t *testing.T) {
    ledger := &fakeLedger{}
    e := newEcho()
    e.PUT("/v1/admin/events/:event_id/ticket-types/:name", NewInventoryHandler(ledger, quiet()).Define)

    rec := do(e, http.MethodPut, "/v1/admin/events/evt-1/ticket-types/VIP", `{"limit":0,"price_cents":2500}`)
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    assert.Equal(t, service.DefineTicketTypeInput{EventID: "evt-1", Name: "VIP", Limit: 0, PriceCents: 2500}, ledger.defined)

    rec = do(e, http.MethodPut, "/v1/admin/events/evt-1/ticket-types/VIP", `{"price_cents":2500}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    ledger.err = model.ErrIntegrityViolation
    rec = do(e, http.MethodPut, "/v1/admin/events/evt-1/ticket-types/VIP", `{"limit":1,"price_cents":2500}`)
    assert.Equal(t, http.StatusConflict, rec.Code)
    _, code := errorBody(t, rec)
    assert.Equal(t, CodeLimitBelowBooked, code)
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
    e := newEcho()
    e.GET("/ok", Health(pinger{}))
    e.GET("/down", Health(pinger{err: errors.New("gone")}))

    assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/ok", "").Code)
    assert.Equal(t, http.StatusServiceUnavailable, do(e, http.MethodGet, "/down", "").Code)
}
